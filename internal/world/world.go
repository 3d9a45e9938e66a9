// Package world is an in-memory live world of block columns. Each Column
// backs a ready dungeon.Chunk.
package world

import (
	"sync"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

// ChunkPos identifies a column by its chunk-grid X and Z coordinates.
type ChunkPos struct{ X, Z int }

// World tracks live columns per chunk coordinate.
type World struct {
	Name string

	mu      sync.RWMutex
	columns map[ChunkPos]*Column
}

// NewWorld creates an empty world.
func NewWorld(name string) *World {
	return &World{
		Name:    name,
		columns: make(map[ChunkPos]*Column),
	}
}

// Column returns the column at the given chunk coordinates, creating an
// all-air column if needed.
func (w *World) Column(cx, cz int) *Column {
	pos := ChunkPos{X: cx, Z: cz}

	w.mu.RLock()
	if c, ok := w.columns[pos]; ok {
		w.mu.RUnlock()
		return c
	}
	w.mu.RUnlock()

	c := newColumn(pos)

	w.mu.Lock()
	// Double-check after acquiring write lock.
	if existing, ok := w.columns[pos]; ok {
		w.mu.Unlock()
		return existing
	}
	w.columns[pos] = c
	w.mu.Unlock()
	return c
}

// HasColumn reports whether a column was created at the coordinates.
func (w *World) HasColumn(cx, cz int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.columns[ChunkPos{X: cx, Z: cz}]
	return ok
}

// GetBlock returns the block at world block coordinates.
func (w *World) GetBlock(x, y, z int) (typ, data byte) {
	return w.Column(x>>4, z>>4).Block(x&0xF, y, z&0xF)
}

// SetBlock writes the block at world block coordinates.
func (w *World) SetBlock(x, y, z int, typ, data byte) {
	w.Column(x>>4, z>>4).SetBlock(x&0xF, y, z&0xF, typ, data)
}

// Attach binds chunk to its live column and marks it ready. Tile entities
// staged on the chunk are moved onto the column.
func (w *World) Attach(chunk *dungeon.Chunk) *Column {
	col := w.Column(chunk.X, chunk.Z)
	chunk.Attach(col)
	chunk.MarkReady()
	chunk.FlushTileEntities()
	return col
}

// Commit writes every room draft of a not-yet-ready chunk into its column
// and recomputes lighting. Rooms without a draft are left untouched.
func (w *World) Commit(chunk *dungeon.Chunk) {
	if chunk.IsReady() {
		return
	}
	col := w.Column(chunk.X, chunk.Z)
	for _, r := range chunk.Rooms() {
		blocks := r.RawBlocks()
		if blocks == nil {
			continue
		}
		col.WriteBand(r.BaseY(), blocks, r.RawBlockData())
	}
	col.InitLighting()
}
