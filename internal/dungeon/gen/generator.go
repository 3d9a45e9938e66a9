// Package gen fills freshly built chunks with room content.
//
// Room selection against doorway compatibility is not decided here: the
// Generator wires the room graph and hands each room to a Strategy.
package gen

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

const blockStone = 1

// Strategy decides the interior content of one room.
type Strategy interface {
	Fill(chunk *dungeon.Chunk, room *dungeon.Room) error
}

// EmptyStrategy leaves every room as an enclosed, all-air draft.
type EmptyStrategy struct{}

func (EmptyStrategy) Fill(_ *dungeon.Chunk, room *dungeon.Room) error {
	room.SetRawBlocks(make([]byte, dungeon.RoomVolume))
	room.SetRawBlockData(make([]byte, dungeon.RoomVolume))
	return nil
}

// FloorStrategy lays one material across the bottom layer of every room.
type FloorStrategy struct {
	Block byte
	Data  byte
}

// NewFloorStrategy creates a FloorStrategy. Block 0 selects stone.
func NewFloorStrategy(block, data byte) *FloorStrategy {
	if block == 0 {
		block = blockStone
	}
	return &FloorStrategy{Block: block, Data: data}
}

func (s *FloorStrategy) Fill(_ *dungeon.Chunk, room *dungeon.Room) error {
	blocks := make([]byte, dungeon.RoomVolume)
	data := make([]byte, dungeon.RoomVolume)
	for x := 0; x < dungeon.RoomWidth; x++ {
		for z := 0; z < dungeon.RoomDepth; z++ {
			i := dungeon.RoomIndex(x, 0, z)
			blocks[i] = s.Block
			data[i] = s.Data
		}
	}
	room.SetRawBlocks(blocks)
	room.SetRawBlockData(data)
	return nil
}

// NewStrategy returns the strategy registered under name.
func NewStrategy(name string, floorBlock byte) (Strategy, error) {
	switch name {
	case "", "empty":
		return EmptyStrategy{}, nil
	case "floor":
		return NewFloorStrategy(floorBlock, 0), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", name)
	}
}

// Generator builds the room graph of a chunk and fills each room.
type Generator struct {
	strategy Strategy
}

// NewGenerator creates a Generator. A nil strategy selects EmptyStrategy.
func NewGenerator(s Strategy) *Generator {
	if s == nil {
		s = EmptyStrategy{}
	}
	return &Generator{strategy: s}
}

// Generate links vertically adjacent rooms, links rooms with the rooms at
// the same level of linked horizontal neighbor chunks, seeds every room,
// then fills it through the strategy.
func (g *Generator) Generate(chunk *dungeon.Chunk) error {
	rooms := chunk.Rooms()
	for level, r := range rooms {
		if level > 0 {
			r.SetNeighbor(dungeon.DOWN, rooms[level-1])
		}
		if level < len(rooms)-1 {
			r.SetNeighbor(dungeon.UP, rooms[level+1])
		}
		for _, d := range []dungeon.Direction{dungeon.N, dungeon.E, dungeon.S, dungeon.W} {
			n := chunk.Neighbor(d)
			if n == nil {
				continue
			}
			nr := n.Room(level)
			if nr == nil {
				continue
			}
			r.SetNeighbor(d, nr)
			nr.SetNeighbor(dungeon.Opposite(d), r)
		}
		r.Seed = Seed(chunk.World, chunk.X, chunk.Z, level)
	}

	for _, r := range rooms {
		if err := g.strategy.Fill(chunk, r); err != nil {
			return fmt.Errorf("fill room %s/%d: %w", chunk.Hash(), r.Level(), err)
		}
	}
	return nil
}

// Seed derives a deterministic room seed from its position.
func Seed(world string, x, z, level int) int64 {
	h := fnv.New64a()
	h.Write([]byte(dungeon.Hash(world, x, z)))
	h.Write([]byte{'.'})
	h.Write([]byte(strconv.Itoa(level)))
	return int64(h.Sum64())
}
