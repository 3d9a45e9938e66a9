package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

// ChunkRecord is the serializable representation of a chunk's room stack.
type ChunkRecord struct {
	World string       `json:"world"`
	X     int          `json:"x"`
	Z     int          `json:"z"`
	Rooms []RoomRecord `json:"rooms"`
}

// RoomRecord is the serializable representation of one room.
type RoomRecord struct {
	Level        int      `json:"level"`
	Seed         int64    `json:"seed"`
	Name         string   `json:"name,omitempty"`
	Filename     string   `json:"filename,omitempty"`
	LibraryID    int64    `json:"library_id,omitempty"`
	Type         byte     `json:"type"`
	Doorways     []byte   `json:"doorways"`
	Themes       []string `json:"themes,omitempty"`
	DefaultTheme string   `json:"default_theme"`
	Blocks       []byte   `json:"blocks,omitempty"`
	BlockData    []byte   `json:"block_data,omitempty"`
}

// LibraryRecord is a room saved to the reusable room library.
type LibraryRecord struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Filename     string    `json:"filename"`
	Type         byte      `json:"type"`
	Themes       []string  `json:"themes"`
	DefaultTheme string    `json:"default_theme"`
	Exits        []byte    `json:"exits"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RecordFromChunk extracts serializable data from a chunk. A ready chunk
// contributes its live geometry.
func RecordFromChunk(c *dungeon.Chunk) *ChunkRecord {
	rec := &ChunkRecord{World: c.World, X: c.X, Z: c.Z}
	for _, r := range c.Rooms() {
		rec.Rooms = append(rec.Rooms, RoomRecord{
			Level:        r.Level(),
			Seed:         r.Seed,
			Name:         r.Name,
			Filename:     r.Filename,
			LibraryID:    r.LibraryID,
			Type:         byte(r.Type),
			Doorways:     r.DoorwaysRaw(),
			Themes:       r.Themes(),
			DefaultTheme: r.DefaultTheme(),
			Blocks:       r.RawBlocks(),
			BlockData:    r.RawBlockData(),
		})
	}
	return rec
}

// Chunk rebuilds a detached, not-ready chunk from the record.
func (rec *ChunkRecord) Chunk() *dungeon.Chunk {
	c := dungeon.NewChunk(rec.World, rec.X, rec.Z, nil, dungeon.RoomTypeBasicTile)
	for _, rr := range rec.Rooms {
		r := c.Room(rr.Level)
		if r == nil {
			continue
		}
		r.Seed = rr.Seed
		r.Name = rr.Name
		r.Filename = rr.Filename
		r.LibraryID = rr.LibraryID
		r.Type = dungeon.RoomType(rr.Type)
		for i, v := range rr.Doorways {
			if v != 0 {
				r.SetDoorway(dungeon.Direction(i), true)
			}
		}
		for _, name := range rr.Themes {
			r.AddTheme(name)
		}
		if r.HasTheme(rr.DefaultTheme) {
			r.SetDefaultTheme(rr.DefaultTheme)
		}
		// A draft restores only when both arrays are a full room.
		if !r.SetRawBlocks(rr.Blocks) || !r.SetRawBlockData(rr.BlockData) {
			r.ClearDraft()
		}
	}
	return c
}

// LibraryRecordFromRoom extracts the library entry for room.
func LibraryRecordFromRoom(r *dungeon.Room, now time.Time) *LibraryRecord {
	return &LibraryRecord{
		ID:           r.LibraryID,
		Name:         r.Name,
		Filename:     r.Filename,
		Type:         byte(r.Type),
		Themes:       r.Themes(),
		DefaultTheme: r.DefaultTheme(),
		Exits:        r.DoorwaysRaw(),
		UpdatedAt:    now.UTC(),
	}
}

func themesFromCSV(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("storage: create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("storage: create zstd decoder: %v", err))
	}
}

// encodePayload marshals v to JSON and compresses it with zstd.
func encodePayload(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return encoder.EncodeAll(raw, nil), nil
}

// decodePayload reverses encodePayload.
func decodePayload(data []byte, v any) error {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}
	return nil
}
