package dungeon

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Hash returns the canonical cache key for a chunk coordinate: world.x.z.
func Hash(world string, x, z int) string {
	return world + "." + strconv.Itoa(x) + "." + strconv.Itoa(z)
}

// Chunk is the vertical stack of rooms sharing (world, x, z).
// x and z are chunk-grid coordinates (block coordinate >> 4).
type Chunk struct {
	World string
	X, Z  int

	handle atomic.Pointer[handleRef]
	ready  atomic.Bool

	neighbors [4]*Chunk
	rooms     [RoomLevels]*Room

	mu     sync.Mutex
	staged []TileEntity
}

// NewChunk creates a chunk with a full stack of empty rooms of the given
// type. handle may be nil for a detached draft.
func NewChunk(world string, x, z int, handle Handle, roomType RoomType) *Chunk {
	c := &Chunk{World: world, X: x, Z: z}
	c.Attach(handle)
	for level := range c.rooms {
		r := newChunkRoom(c, level)
		r.Type = roomType
		c.rooms[level] = r
	}
	return c
}

// Hash returns the chunk's cache key.
func (c *Chunk) Hash() string {
	return Hash(c.World, c.X, c.Z)
}

// Room returns the room at the given level, or nil when out of range.
func (c *Chunk) Room(level int) *Room {
	if level < 0 || level >= RoomLevels {
		return nil
	}
	return c.rooms[level]
}

// Rooms returns the stack bottom-up.
func (c *Chunk) Rooms() []*Room {
	out := make([]*Room, RoomLevels)
	copy(out, c.rooms[:])
	return out
}

// HasNeighbor reports whether a chunk is linked in horizontal direction d.
func (c *Chunk) HasNeighbor(d Direction) bool {
	return IsValidChunkDirection(d) && c.neighbors[d] != nil
}

// Neighbor returns the linked chunk in direction d, or nil.
func (c *Chunk) Neighbor(d Direction) *Chunk {
	if !c.HasNeighbor(d) {
		return nil
	}
	return c.neighbors[d]
}

// SetNeighbor links n in horizontal direction d. Other directions are ignored.
func (c *Chunk) SetNeighbor(d Direction, n *Chunk) {
	if !IsValidChunkDirection(d) {
		return
	}
	c.neighbors[d] = n
}

// handleRef boxes a Handle so it can be swapped atomically.
type handleRef struct{ h Handle }

// Handle returns the live geometry handle, which may be nil.
func (c *Chunk) Handle() Handle {
	if ref := c.handle.Load(); ref != nil {
		return ref.h
	}
	return nil
}

// Attach sets the live geometry handle without changing readiness. It is
// safe to call while other goroutines read the chunk.
func (c *Chunk) Attach(h Handle) { c.handle.Store(&handleRef{h: h}) }

// IsReady reports whether room geometry reads hit the live handle.
func (c *Chunk) IsReady() bool {
	return c.liveHandle() != nil
}

// liveHandle returns the handle when the chunk is ready, else nil.
func (c *Chunk) liveHandle() Handle {
	if !c.ready.Load() {
		return nil
	}
	return c.Handle()
}

// MarkReady switches the chunk to live geometry. It fails without a handle.
func (c *Chunk) MarkReady() bool {
	if c.Handle() == nil {
		return false
	}
	c.ready.Store(true)
	return true
}

// MarkDraft switches room geometry reads back to the draft buffers.
func (c *Chunk) MarkDraft() {
	c.ready.Store(false)
}

// AddTileEntity places te at yOffset+te.Y. A ready chunk writes it to the
// live handle; otherwise it is staged until the chunk goes live.
func (c *Chunk) AddTileEntity(te TileEntity, yOffset int) {
	te.Y += yOffset
	if h := c.liveHandle(); h != nil {
		h.PlaceTileEntity(te)
		return
	}
	c.mu.Lock()
	c.staged = append(c.staged, te)
	c.mu.Unlock()
}

// TileEntities returns the staged tile entities.
func (c *Chunk) TileEntities() []TileEntity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TileEntity, len(c.staged))
	copy(out, c.staged)
	return out
}

// FlushTileEntities moves staged tile entities onto the live handle.
func (c *Chunk) FlushTileEntities() int {
	h := c.liveHandle()
	if h == nil {
		return 0
	}
	c.mu.Lock()
	staged := c.staged
	c.staged = nil
	c.mu.Unlock()
	for _, te := range staged {
		h.PlaceTileEntity(te)
	}
	return len(staged)
}
