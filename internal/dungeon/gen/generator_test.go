package gen

import (
	"errors"
	"testing"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

func TestGeneratorWiresVerticalNeighbors(t *testing.T) {
	c := dungeon.NewChunk("test", 0, 0, nil, dungeon.RoomTypeBasicTile)
	if err := NewGenerator(nil).Generate(c); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	bottom, top := c.Room(0), c.Room(dungeon.RoomLevels-1)
	if bottom.HasNeighbor(dungeon.DOWN) || top.HasNeighbor(dungeon.UP) {
		t.Error("stack ends must not have vertical neighbors")
	}
	for level := 1; level < dungeon.RoomLevels; level++ {
		r := c.Room(level)
		if r.Neighbor(dungeon.DOWN) != c.Room(level-1) || c.Room(level-1).Neighbor(dungeon.UP) != r {
			t.Fatalf("level %d not linked to level %d", level, level-1)
		}
	}
}

func TestGeneratorWiresHorizontalNeighbors(t *testing.T) {
	west := dungeon.NewChunk("test", -1, 0, nil, dungeon.RoomTypeBasicTile)
	c := dungeon.NewChunk("test", 0, 0, nil, dungeon.RoomTypeBasicTile)
	c.SetNeighbor(dungeon.W, west)

	if err := NewGenerator(nil).Generate(c); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for level := 0; level < dungeon.RoomLevels; level++ {
		r, wr := c.Room(level), west.Room(level)
		if r.Neighbor(dungeon.W) != wr || wr.Neighbor(dungeon.E) != r {
			t.Fatalf("level %d not linked west", level)
		}
		if r.HasNeighbor(dungeon.N) {
			t.Fatalf("level %d linked north without a neighbor chunk", level)
		}
	}
}

func TestGeneratorSeedsAreDeterministic(t *testing.T) {
	a := dungeon.NewChunk("test", 4, 7, nil, dungeon.RoomTypeBasicTile)
	b := dungeon.NewChunk("test", 4, 7, nil, dungeon.RoomTypeBasicTile)
	g := NewGenerator(nil)
	if err := g.Generate(a); err != nil {
		t.Fatal(err)
	}
	if err := g.Generate(b); err != nil {
		t.Fatal(err)
	}
	if a.Room(3).Seed != b.Room(3).Seed {
		t.Error("same position produced different seeds")
	}
	if a.Room(3).Seed == a.Room(4).Seed {
		t.Error("different levels produced the same seed")
	}
	if Seed("test", 4, 7, 3) == Seed("other", 4, 7, 3) {
		t.Error("different worlds produced the same seed")
	}
}

func TestFloorStrategy(t *testing.T) {
	c := dungeon.NewChunk("test", 0, 0, nil, dungeon.RoomTypeBasicTile)
	if err := NewGenerator(NewFloorStrategy(0, 0)).Generate(c); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	r := c.Room(5)
	if typ, _ := r.Block(3, 0, 12); typ != blockStone {
		t.Errorf("floor block = %d, want stone", typ)
	}
	if typ, _ := r.Block(3, 1, 12); typ != 0 {
		t.Errorf("block above floor = %d, want air", typ)
	}
	if len(r.Doorways()) != 0 {
		t.Error("strategy must not add doorways")
	}
}

func TestEmptyStrategy(t *testing.T) {
	c := dungeon.NewChunk("test", 0, 0, nil, dungeon.RoomTypeBasicTile)
	if err := NewGenerator(EmptyStrategy{}).Generate(c); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, r := range c.Rooms() {
		if len(r.RawBlocks()) != dungeon.RoomVolume {
			t.Fatalf("room %d has no draft", r.Level())
		}
	}
}

type failingStrategy struct{}

func (failingStrategy) Fill(*dungeon.Chunk, *dungeon.Room) error { return errors.New("nope") }

func TestGeneratorPropagatesStrategyError(t *testing.T) {
	c := dungeon.NewChunk("test", 0, 0, nil, dungeon.RoomTypeBasicTile)
	if err := NewGenerator(failingStrategy{}).Generate(c); err == nil {
		t.Error("Generate succeeded with a failing strategy")
	}
}

func TestNewStrategy(t *testing.T) {
	if s, err := NewStrategy("floor", 4); err != nil || s.(*FloorStrategy).Block != 4 {
		t.Errorf("NewStrategy(floor) = (%v, %v)", s, err)
	}
	if _, err := NewStrategy("", 0); err != nil {
		t.Errorf("NewStrategy(\"\") err = %v", err)
	}
	if _, err := NewStrategy("maze", 0); err == nil {
		t.Error("NewStrategy accepted an unknown name")
	}
}
