package world

import (
	"sync"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

const columnVolume = 16 * 16 * dungeon.ChunkHeight

// Entity is a non-block object standing in a column.
type Entity struct {
	ID     int
	Player bool
}

// Column is one 16×128×16 block column. It implements dungeon.Handle.
type Column struct {
	Pos ChunkPos

	mu       sync.RWMutex
	blocks   [columnVolume]byte
	data     [columnVolume]byte
	tiles    map[[3]int]dungeon.TileEntity
	entities []Entity
	lighting int
}

var _ dungeon.Handle = (*Column)(nil)

func newColumn(pos ChunkPos) *Column {
	return &Column{Pos: pos, tiles: make(map[[3]int]dungeon.TileEntity)}
}

func columnIndex(x, y, z int) (int, bool) {
	if x < 0 || x > 15 || z < 0 || z > 15 || y < 0 || y >= dungeon.ChunkHeight {
		return 0, false
	}
	return y*256 + z*16 + x, true
}

// Block returns the block at column-local coordinates. Out-of-range reads
// return air.
func (c *Column) Block(x, y, z int) (typ, data byte) {
	idx, ok := columnIndex(x, y, z)
	if !ok {
		return 0, 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[idx], c.data[idx]
}

// SetBlock writes the block at column-local coordinates. Out-of-range
// writes are ignored.
func (c *Column) SetBlock(x, y, z int, typ, data byte) {
	idx, ok := columnIndex(x, y, z)
	if !ok {
		return
	}
	c.mu.Lock()
	c.blocks[idx] = typ
	c.data[idx] = data
	c.mu.Unlock()
}

// WriteBand copies one room's block arrays (room index order) into the
// band starting at baseY. A nil data array writes sub-type 0.
func (c *Column) WriteBand(baseY int, blocks, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < dungeon.RoomVolume && i < len(blocks); i++ {
		x, y, z := dungeon.RoomCoords(i)
		idx, ok := columnIndex(x, baseY+y, z)
		if !ok {
			continue
		}
		c.blocks[idx] = blocks[i]
		if i < len(data) {
			c.data[idx] = data[i]
		} else {
			c.data[idx] = 0
		}
	}
}

// InitLighting recomputes lighting. Columns are fully lit, so this only
// records that a recompute was requested.
func (c *Column) InitLighting() {
	c.mu.Lock()
	c.lighting++
	c.mu.Unlock()
}

// LightingPasses returns how many times lighting was recomputed.
func (c *Column) LightingPasses() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lighting
}

// TileEntities lists the column's tile entities.
func (c *Column) TileEntities() []dungeon.TileEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]dungeon.TileEntity, 0, len(c.tiles))
	for _, te := range c.tiles {
		out = append(out, te)
	}
	return out
}

// PlaceTileEntity stores te, replacing any tile entity at the same position.
func (c *Column) PlaceTileEntity(te dungeon.TileEntity) {
	if _, ok := columnIndex(te.X, te.Y, te.Z); !ok {
		return
	}
	c.mu.Lock()
	c.tiles[[3]int{te.X, te.Y, te.Z}] = te
	c.mu.Unlock()
}

// AddEntity places an entity in the column.
func (c *Column) AddEntity(e Entity) {
	c.mu.Lock()
	c.entities = append(c.entities, e)
	c.mu.Unlock()
}

// Entities returns the entities in the column.
func (c *Column) Entities() []Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entity, len(c.entities))
	copy(out, c.entities)
	return out
}

// RemoveEntities drops every non-player entity and returns the count.
func (c *Column) RemoveEntities() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.entities[:0]
	removed := 0
	for _, e := range c.entities {
		if e.Player {
			kept = append(kept, e)
			continue
		}
		removed++
	}
	c.entities = kept
	return removed
}
