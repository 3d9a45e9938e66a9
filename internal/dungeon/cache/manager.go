package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

// Generator populates the interior of a freshly built chunk.
type Generator interface {
	Generate(chunk *dungeon.Chunk) error
}

// neighborOffsets are chunk-grid offsets for the horizontal directions.
var neighborOffsets = [4]struct {
	dir    dungeon.Direction
	dx, dz int
}{
	{dungeon.N, 0, -1},
	{dungeon.E, 1, 0},
	{dungeon.S, 0, 1},
	{dungeon.W, -1, 0},
}

// Manager caches chunks by hash and tracks which coordinates have been
// generated. The two maps are guarded independently and are not updated
// atomically together.
type Manager struct {
	data     *DataManager
	gen      Generator
	roomType dungeon.RoomType
	log      *slog.Logger

	chunksMu sync.RWMutex
	chunks   map[string]*dungeon.Chunk

	generatedMu sync.RWMutex
	generated   map[string]bool

	inflight singleflight.Group
}

// NewManager creates a Manager. gen may be nil, in which case generated
// chunks keep their empty rooms.
func NewManager(data *DataManager, gen Generator, log *slog.Logger) *Manager {
	return &Manager{
		data:      data,
		gen:       gen,
		roomType:  dungeon.RoomTypeBasicTile,
		log:       log,
		chunks:    make(map[string]*dungeon.Chunk),
		generated: make(map[string]bool),
	}
}

// Chunk returns the chunk at the coordinate from the cache, falling back to
// the store. A store hit is cached.
func (m *Manager) Chunk(world string, x, z int) (*dungeon.Chunk, bool) {
	if c, ok := m.CachedChunk(world, x, z); ok {
		return c, true
	}
	c := m.data.GetChunk(world, x, z)
	if c == nil {
		return nil, false
	}
	m.UpdateCachedChunk(c)
	return c, true
}

// CachedChunk returns the chunk only if it is in the cache.
func (m *Manager) CachedChunk(world string, x, z int) (*dungeon.Chunk, bool) {
	m.chunksMu.RLock()
	defer m.chunksMu.RUnlock()
	c, ok := m.chunks[dungeon.Hash(world, x, z)]
	return c, ok
}

// IsChunkCached reports whether the coordinate is in the cache.
func (m *Manager) IsChunkCached(world string, x, z int) bool {
	_, ok := m.CachedChunk(world, x, z)
	return ok
}

// UpdateCachedChunk stores chunk in the cache under its hash.
func (m *Manager) UpdateCachedChunk(chunk *dungeon.Chunk) {
	m.chunksMu.Lock()
	m.chunks[chunk.Hash()] = chunk
	m.chunksMu.Unlock()
}

// EvictChunk drops the coordinate from the cache. The generation state is
// kept.
func (m *Manager) EvictChunk(world string, x, z int) bool {
	hash := dungeon.Hash(world, x, z)
	m.chunksMu.Lock()
	defer m.chunksMu.Unlock()
	if _, ok := m.chunks[hash]; !ok {
		return false
	}
	delete(m.chunks, hash)
	return true
}

// CachedCount returns the number of cached chunks.
func (m *Manager) CachedCount() int {
	m.chunksMu.RLock()
	defer m.chunksMu.RUnlock()
	return len(m.chunks)
}

// StoreChunk caches chunk, persists it, and marks its coordinate generated.
// It reports whether the store accepted the chunk.
func (m *Manager) StoreChunk(chunk *dungeon.Chunk) bool {
	m.UpdateCachedChunk(chunk)
	ok := m.data.SaveChunk(chunk)
	m.SetChunkGenerated(chunk.World, chunk.X, chunk.Z, true)
	return ok
}

// LoadChunk makes the coordinate resident, reading it from the store on a
// cache miss, and attaches handle when the chunk has none. The caller
// commits the drafts and marks the chunk ready.
func (m *Manager) LoadChunk(world string, x, z int, handle dungeon.Handle) (*dungeon.Chunk, bool) {
	c, ok := m.Chunk(world, x, z)
	if !ok {
		return nil, false
	}
	if handle != nil && c.Handle() == nil {
		c.Attach(handle)
	}
	return c, true
}

// IsChunkGenerated reports whether a chunk was generated at the coordinate.
// The first call consults the store; the answer is memoized.
func (m *Manager) IsChunkGenerated(world string, x, z int) bool {
	hash := dungeon.Hash(world, x, z)

	m.generatedMu.RLock()
	generated, ok := m.generated[hash]
	m.generatedMu.RUnlock()
	if ok {
		return generated
	}

	generated = m.data.GetChunk(world, x, z) != nil

	m.generatedMu.Lock()
	// A concurrent SetChunkGenerated wins over the probe.
	if existing, ok := m.generated[hash]; ok {
		m.generatedMu.Unlock()
		return existing
	}
	m.generated[hash] = generated
	m.generatedMu.Unlock()
	return generated
}

// SetChunkGenerated overrides the generation state of the coordinate.
func (m *Manager) SetChunkGenerated(world string, x, z int, generated bool) {
	m.generatedMu.Lock()
	m.generated[dungeon.Hash(world, x, z)] = generated
	m.generatedMu.Unlock()
}

// GenerateChunk builds a chunk at the coordinate, links it with generated
// horizontal neighbors in both directions, and fills it through the
// Generator. The chunk is cached and marked generated; persist it with
// StoreChunk. Concurrent calls for one coordinate share a single result,
// and a coordinate already generated and cached is returned as is.
func (m *Manager) GenerateChunk(world string, x, z int, handle dungeon.Handle) (*dungeon.Chunk, error) {
	hash := dungeon.Hash(world, x, z)
	v, err, _ := m.inflight.Do(hash, func() (any, error) {
		if c, ok := m.CachedChunk(world, x, z); ok && m.IsChunkGenerated(world, x, z) {
			return c, nil
		}
		return m.generate(world, x, z, handle)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dungeon.Chunk), nil
}

func (m *Manager) generate(world string, x, z int, handle dungeon.Handle) (*dungeon.Chunk, error) {
	chunk := dungeon.NewChunk(world, x, z, handle, m.roomType)

	for _, off := range neighborOffsets {
		nx, nz := x+off.dx, z+off.dz
		if !m.IsChunkGenerated(world, nx, nz) {
			continue
		}
		n, ok := m.Chunk(world, nx, nz)
		if !ok {
			continue
		}
		chunk.SetNeighbor(off.dir, n)
		n.SetNeighbor(dungeon.Opposite(off.dir), chunk)
	}

	if m.gen != nil {
		if err := m.gen.Generate(chunk); err != nil {
			return nil, fmt.Errorf("generate chunk %s: %w", chunk.Hash(), err)
		}
	}

	m.UpdateCachedChunk(chunk)
	m.SetChunkGenerated(world, x, z, true)
	m.log.Debug("generated chunk", "location", chunk.Hash())
	return chunk, nil
}
