// Package schematic encodes rooms to, and decodes rooms from, the tagged
// binary schematic record. A room with several themes encodes to one record
// per theme; decoding always restores the default-theme form.
package schematic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	mcnbt "github.com/Tnze/go-mc/nbt"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/nbt"
	"github.com/OCharnyshevich/dungeonator/internal/theme"
)

// RootName is the name of the record's root compound.
const RootName = "DungeonRoomSchematic"

var (
	// ErrMalformed is returned when a record is missing a required tag, has
	// a tag of the wrong type, or carries an array of the wrong length.
	ErrMalformed = errors.New("malformed schematic")
	// ErrNoGeometry is returned when encoding a room without block arrays.
	ErrNoGeometry = errors.New("room has no geometry")
)

// Meta is the record's authorship metadata.
type Meta struct {
	Author  string
	Updated time.Time
}

// Variant is one encoded record for a single theme.
type Variant struct {
	Theme   string
	Default bool
	Data    []byte
}

// Decoded is what a record carries beyond the room draft itself.
type Decoded struct {
	Meta  Meta
	Type  dungeon.RoomType
	Tiles []dungeon.TileEntity
	// Doorways is the number of doorway slots marked present.
	Doorways int
}

// Encode serializes room once per registered theme, the default theme first
// and the rest in sorted order. The default theme's geometry is written
// unmodified; every other theme's geometry is passed through tr from the
// default theme.
func Encode(room *dungeon.Room, meta Meta, tr theme.Translator) ([]Variant, error) {
	blocks, data := room.RawBlocks(), room.RawBlockData()
	if len(blocks) != dungeon.RoomVolume || len(data) != dungeon.RoomVolume {
		return nil, ErrNoGeometry
	}

	def := room.DefaultTheme()
	themes := []string{def}
	for _, name := range room.Themes() {
		if name != def {
			themes = append(themes, name)
		}
	}

	tiles := room.TileEntities()
	out := make([]Variant, 0, len(themes))
	for _, name := range themes {
		b, d := blocks, data
		isDefault := name == def
		if !isDefault {
			b, d = theme.TranslateArrays(tr, def, name, blocks, data)
		}

		var buf bytes.Buffer
		if err := writeRecord(&buf, room, meta, tiles, b, d); err != nil {
			return nil, fmt.Errorf("encode theme %s: %w", name, err)
		}
		out = append(out, Variant{Theme: name, Default: isDefault, Data: buf.Bytes()})
	}
	return out, nil
}

func writeRecord(w io.Writer, room *dungeon.Room, meta Meta, tiles []dungeon.TileEntity, blocks, data []byte) error {
	nw := nbt.NewWriter(w)
	nw.Compound(RootName, func() {
		nw.Compound("meta", func() {
			nw.WriteString("author", meta.Author)
			nw.WriteLong("dateUpdated", meta.Updated.UnixMilli())
		})
		nw.Compound("tileEntities", func() {
			for _, te := range tiles {
				writeTileEntity(nw, te)
			}
		})
		nw.WriteTagByte("type", byte(room.Type))
		nw.WriteByteArray("exits", room.DoorwaysRaw())
		nw.WriteString("themes", room.ThemeCSV())
		nw.WriteString("defaultTheme", room.DefaultTheme())
		nw.WriteByteArray("blocks", blocks)
		nw.WriteByteArray("blockData", data)
	})
	return nw.Err()
}

type record struct {
	Meta         mcnbt.RawMessage `nbt:"meta"`
	TileEntities mcnbt.RawMessage `nbt:"tileEntities"`
	Type         mcnbt.RawMessage `nbt:"type"`
	Exits        mcnbt.RawMessage `nbt:"exits"`
	Themes       mcnbt.RawMessage `nbt:"themes"`
	DefaultTheme mcnbt.RawMessage `nbt:"defaultTheme"`
	Blocks       mcnbt.RawMessage `nbt:"blocks"`
	BlockData    mcnbt.RawMessage `nbt:"blockData"`
}

type metaRecord struct {
	Author      string `nbt:"author"`
	DateUpdated int64  `nbt:"dateUpdated"`
}

// parsed holds a fully validated record before it touches the room.
type parsed struct {
	meta         Meta
	roomType     dungeon.RoomType
	exits        []byte
	themes       *string
	defaultTheme *string
	blocks       []byte
	blockData    []byte
	tiles        []dungeon.TileEntity
}

// Decode reads one record from r into room's draft. It fails closed: on any
// error the room's draft is cleared and its doorways reset.
func Decode(r io.Reader, room *dungeon.Room) (*Decoded, error) {
	p, err := parse(r)
	if err != nil {
		room.ClearDraft()
		room.ResetDoorways()
		return nil, err
	}

	room.SetRawBlocks(p.blocks)
	room.SetRawBlockData(p.blockData)
	room.Type = p.roomType

	room.ResetDoorways()
	doorways := 0
	for i, v := range p.exits {
		if v != 0 {
			room.SetDoorway(dungeon.Direction(i), true)
			doorways++
		}
	}

	if p.themes != nil {
		room.ResetThemes()
		for _, name := range strings.Split(*p.themes, ",") {
			room.AddTheme(name)
		}
	}
	if p.defaultTheme != nil {
		room.SetDefaultTheme(*p.defaultTheme)
	}

	return &Decoded{Meta: p.meta, Type: p.roomType, Tiles: p.tiles, Doorways: doorways}, nil
}

func parse(r io.Reader) (*parsed, error) {
	var rec record
	if _, err := mcnbt.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	p := &parsed{}
	var err error
	if p.exits, err = requireBytes(rec.Exits, "exits", dungeon.DoorwaySlots); err != nil {
		return nil, err
	}
	if p.blocks, err = requireBytes(rec.Blocks, "blocks", dungeon.RoomVolume); err != nil {
		return nil, err
	}
	if p.blockData, err = requireBytes(rec.BlockData, "blockData", dungeon.RoomVolume); err != nil {
		return nil, err
	}

	if rec.Type.Type != nbt.TagEnd {
		var v int8
		if err := optional(rec.Type, "type", nbt.TagByte, &v); err != nil {
			return nil, err
		}
		p.roomType = dungeon.RoomType(v)
	}
	if rec.Themes.Type != nbt.TagEnd {
		var s string
		if err := optional(rec.Themes, "themes", nbt.TagString, &s); err != nil {
			return nil, err
		}
		p.themes = &s
	}
	if rec.DefaultTheme.Type != nbt.TagEnd {
		var s string
		if err := optional(rec.DefaultTheme, "defaultTheme", nbt.TagString, &s); err != nil {
			return nil, err
		}
		p.defaultTheme = &s
	}
	if rec.Meta.Type != nbt.TagEnd {
		var m metaRecord
		if err := optional(rec.Meta, "meta", nbt.TagCompound, &m); err != nil {
			return nil, err
		}
		p.meta = Meta{Author: m.Author, Updated: time.UnixMilli(m.DateUpdated)}
	}
	if rec.TileEntities.Type != nbt.TagEnd {
		if p.tiles, err = decodeTileEntities(rec.TileEntities); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func requireBytes(raw mcnbt.RawMessage, name string, n int) ([]byte, error) {
	if raw.Type == nbt.TagEnd {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, name)
	}
	var out []byte
	if err := optional(raw, name, nbt.TagByteArray, &out); err != nil {
		return nil, err
	}
	if len(out) != n {
		return nil, fmt.Errorf("%w: %s has %d entries, want %d", ErrMalformed, name, len(out), n)
	}
	return out, nil
}

func optional(raw mcnbt.RawMessage, name string, tag byte, dst any) error {
	if raw.Type != tag {
		return fmt.Errorf("%w: %s has tag type %d, want %d", ErrMalformed, name, raw.Type, tag)
	}
	if err := raw.Unmarshal(dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}
