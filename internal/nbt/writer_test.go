package nbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	mcnbt "github.com/Tnze/go-mc/nbt"
)

func TestWriteByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteTagByte("test", 42)

	data := buf.Bytes()
	if data[0] != TagByte {
		t.Fatalf("expected tag type %d, got %d", TagByte, data[0])
	}
	nameLen := binary.BigEndian.Uint16(data[1:3])
	if nameLen != 4 {
		t.Fatalf("expected name length 4, got %d", nameLen)
	}
	if string(data[3:7]) != "test" {
		t.Fatalf("expected name 'test', got %q", string(data[3:7]))
	}
	if data[7] != 42 {
		t.Fatalf("expected value 42, got %d", data[7])
	}
}

func TestWriteInt(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteInt("x", 12345)

	data := buf.Bytes()
	if data[0] != TagInt {
		t.Fatalf("expected tag type %d, got %d", TagInt, data[0])
	}
	// skip tag(1) + name_len(2) + name(1) = 4 bytes
	val := int32(binary.BigEndian.Uint32(data[4:8]))
	if val != 12345 {
		t.Fatalf("expected 12345, got %d", val)
	}
}

func TestWriteByteArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteByteArray("ba", []byte{1, 2, 3})

	data := buf.Bytes()
	if data[0] != TagByteArray {
		t.Fatalf("expected tag type %d, got %d", TagByteArray, data[0])
	}
	// tag(1) + name_len(2) + name(2) = 5, then length(4) + data(3)
	arrLen := int32(binary.BigEndian.Uint32(data[5:9]))
	if arrLen != 3 {
		t.Fatalf("expected array length 3, got %d", arrLen)
	}
	if !bytes.Equal(data[9:12], []byte{1, 2, 3}) {
		t.Fatalf("expected [1,2,3], got %v", data[9:12])
	}
}

func TestWriteString(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteString("s", "hello")

	data := buf.Bytes()
	if data[0] != TagString {
		t.Fatalf("expected tag type %d, got %d", TagString, data[0])
	}
	// tag(1) + name_len(2) + name(1) = 4, then string_len(2) + string(5)
	strLen := binary.BigEndian.Uint16(data[4:6])
	if strLen != 5 {
		t.Fatalf("expected string length 5, got %d", strLen)
	}
	if string(data[6:11]) != "hello" {
		t.Fatalf("expected 'hello', got %q", string(data[6:11]))
	}
}

func TestCompound(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.BeginCompound("")
	w.WriteTagByte("Y", 5)
	w.EndCompound()

	data := buf.Bytes()
	// Compound tag(1) + name_len(2, = 0) = 3
	if data[0] != TagCompound {
		t.Fatalf("expected compound tag")
	}
	// Last byte should be End tag
	if data[len(data)-1] != TagEnd {
		t.Fatalf("expected end tag at end, got %d", data[len(data)-1])
	}
}

func TestBeginList(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.BeginList("items", TagCompound, 2)

	data := buf.Bytes()
	if data[0] != TagList {
		t.Fatalf("expected list tag")
	}
	// tag(1) + name_len(2) + name(5) = 8, then elem_type(1) + count(4)
	elemType := data[8]
	if elemType != TagCompound {
		t.Fatalf("expected elem type %d, got %d", TagCompound, elemType)
	}
	count := int32(binary.BigEndian.Uint32(data[9:13]))
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestWriteLong(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteLong("L", 0x123456789ABCDEF0)

	data := buf.Bytes()
	if data[0] != TagLong {
		t.Fatalf("expected tag type %d, got %d", TagLong, data[0])
	}
	// tag(1) + name_len(2) + name(1) = 4, then long(8)
	val := int64(binary.BigEndian.Uint64(data[4:12]))
	if val != 0x123456789ABCDEF0 {
		t.Fatalf("expected 0x123456789ABCDEF0, got 0x%X", val)
	}
}

func TestEmptyListUsesEndElementType(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.BeginList("stacks", TagCompound, 0)

	data := buf.Bytes()
	// tag(1) + name_len(2) + name(6) = 9, then elem_type(1) + count(4)
	if data[9] != TagEnd {
		t.Fatalf("expected elem type End for empty list, got %d", data[9])
	}
}

func TestStringTooLong(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteString("s", strings.Repeat("x", 70000))
	if !errors.Is(w.Err(), ErrStringTooLong) {
		t.Fatalf("expected ErrStringTooLong, got %v", w.Err())
	}
}

func TestUnbalancedCompound(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.BeginCompound("")
	if !errors.Is(w.Err(), ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", w.Err())
	}
	w.EndCompound()
	if w.Err() != nil {
		t.Fatalf("unexpected error after closing: %v", w.Err())
	}
}

// The writer output must decode with an independent NBT implementation.
func TestDecodesWithGoMC(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Compound("Room", func() {
		w.WriteTagByte("type", 3)
		w.WriteInt("x", -7)
		w.WriteLong("updated", 1700000000000)
		w.WriteString("themes", "CAVE,DEFAULT")
		w.WriteByteArray("blocks", []byte{1, 2, 3, 4})
		w.Compound("meta", func() {
			w.WriteString("author", "alice")
		})
		w.CompoundList("stacks", 2, func(i int) {
			w.WriteInt("pos", int32(i+1))
			w.WriteInt("amount", int32(10*(i+1)))
		})
	})
	if err := w.Err(); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got struct {
		Type    int8   `nbt:"type"`
		X       int32  `nbt:"x"`
		Updated int64  `nbt:"updated"`
		Themes  string `nbt:"themes"`
		Blocks  []byte `nbt:"blocks"`
		Meta    struct {
			Author string `nbt:"author"`
		} `nbt:"meta"`
		Stacks []struct {
			Pos    int32 `nbt:"pos"`
			Amount int32 `nbt:"amount"`
		} `nbt:"stacks"`
	}
	name, err := mcnbt.NewDecoder(&buf).Decode(&got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "Room" {
		t.Errorf("root name = %q, want Room", name)
	}
	if got.Type != 3 || got.X != -7 || got.Updated != 1700000000000 || got.Themes != "CAVE,DEFAULT" {
		t.Errorf("scalars = %+v", got)
	}
	if !bytes.Equal(got.Blocks, []byte{1, 2, 3, 4}) {
		t.Errorf("blocks = %v", got.Blocks)
	}
	if got.Meta.Author != "alice" {
		t.Errorf("meta.author = %q", got.Meta.Author)
	}
	if len(got.Stacks) != 2 || got.Stacks[1].Pos != 2 || got.Stacks[1].Amount != 20 {
		t.Errorf("stacks = %+v", got.Stacks)
	}
}
