// Package nbt writes the named-binary-tag container used for room schematics.
package nbt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// NBT tag type IDs.
const (
	TagEnd       byte = 0
	TagByte      byte = 1
	TagInt       byte = 3
	TagLong      byte = 4
	TagByteArray byte = 7
	TagString    byte = 8
	TagList      byte = 9
	TagCompound  byte = 10
)

// ErrStringTooLong is reported when a name or string payload exceeds the
// 16-bit length prefix.
var ErrStringTooLong = errors.New("nbt: string longer than 65535 bytes")

// ErrUnbalanced is reported by Err when compounds were left open.
var ErrUnbalanced = errors.New("nbt: unbalanced compound")

// Writer writes NBT binary data to an io.Writer in big-endian format.
// All write methods accumulate errors internally; call Err() after writing
// to check for failures.
type Writer struct {
	w     io.Writer
	err   error
	depth int
}

// NewWriter creates a new NBT Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first error encountered during writing, or ErrUnbalanced
// when a compound is still open.
func (w *Writer) Err() error {
	if w.err != nil {
		return w.err
	}
	if w.depth != 0 {
		return fmt.Errorf("%w: %d open", ErrUnbalanced, w.depth)
	}
	return nil
}

func (w *Writer) write(data []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(data)
}

func (w *Writer) putByte(v byte) {
	w.write([]byte{v})
}

func (w *Writer) putUint16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}

func (w *Writer) putInt32(v int32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	w.write(buf[:])
}

func (w *Writer) putInt64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.write(buf[:])
}

func (w *Writer) putString(s string) {
	if len(s) > math.MaxUint16 {
		if w.err == nil {
			w.err = ErrStringTooLong
		}
		return
	}
	w.putUint16(uint16(len(s)))
	if len(s) > 0 {
		w.write([]byte(s))
	}
}

func (w *Writer) writeTagHeader(tagType byte, name string) {
	w.putByte(tagType)
	w.putString(name)
}

// BeginCompound writes a compound tag header. Use name="" for list elements.
func (w *Writer) BeginCompound(name string) {
	w.writeTagHeader(TagCompound, name)
	w.depth++
}

// BeginListCompound opens an unnamed compound inside a list of compounds.
func (w *Writer) BeginListCompound() {
	w.depth++
}

// EndCompound writes an End tag to close a compound.
func (w *Writer) EndCompound() {
	w.putByte(TagEnd)
	w.depth--
}

// Compound writes a named compound whose body is produced by fn.
func (w *Writer) Compound(name string, fn func()) {
	w.BeginCompound(name)
	fn()
	w.EndCompound()
}

// WriteTagByte writes a named byte tag.
func (w *Writer) WriteTagByte(name string, v byte) {
	w.writeTagHeader(TagByte, name)
	w.putByte(v)
}

// WriteInt writes a named int tag.
func (w *Writer) WriteInt(name string, v int32) {
	w.writeTagHeader(TagInt, name)
	w.putInt32(v)
}

// WriteLong writes a named long tag.
func (w *Writer) WriteLong(name string, v int64) {
	w.writeTagHeader(TagLong, name)
	w.putInt64(v)
}

// WriteByteArray writes a named byte array tag.
func (w *Writer) WriteByteArray(name string, v []byte) {
	w.writeTagHeader(TagByteArray, name)
	w.putInt32(int32(len(v)))
	w.write(v)
}

// WriteString writes a named string tag.
func (w *Writer) WriteString(name string, v string) {
	w.writeTagHeader(TagString, name)
	w.putString(v)
}

// BeginList writes a named list tag header. An empty list is written with
// element type End, matching what readers expect for zero-length lists.
func (w *Writer) BeginList(name string, elemType byte, count int32) {
	if count == 0 {
		elemType = TagEnd
	}
	w.writeTagHeader(TagList, name)
	w.putByte(elemType)
	w.putInt32(count)
}

// CompoundList writes a named list of n compounds; fn writes the body of
// element i. The element End tags are written here.
func (w *Writer) CompoundList(name string, n int, fn func(i int)) {
	w.BeginList(name, TagCompound, int32(n))
	for i := 0; i < n; i++ {
		w.BeginListCompound()
		fn(i)
		w.EndCompound()
	}
}
