package schematic

import (
	"fmt"
	"sort"
	"strconv"

	mcnbt "github.com/Tnze/go-mc/nbt"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/nbt"
)

type tileRecord struct {
	Type string   `nbt:"type"`
	Data tileData `nbt:"data"`
}

type tileData struct {
	X      int32         `nbt:"x"`
	Y      int32         `nbt:"y"`
	Z      int32         `nbt:"z"`
	Line1  string        `nbt:"line1"`
	Line2  string        `nbt:"line2"`
	Line3  string        `nbt:"line3"`
	Line4  string        `nbt:"line4"`
	Stacks []stackRecord `nbt:"stacks"`
}

type stackRecord struct {
	Pos    int32 `nbt:"pos"`
	Type   int32 `nbt:"type"`
	Amount int32 `nbt:"amount"`
	Damage int32 `nbt:"damage"`
	Data   int32 `nbt:"data"`
}

func tileKey(te dungeon.TileEntity) string {
	return strconv.Itoa(te.X&0xF) + "," + strconv.Itoa(te.Y&0x7) + "," + strconv.Itoa(te.Z&0xF)
}

// writeTileEntity writes one keyed tile entity compound. Kinds without a
// payload are skipped.
func writeTileEntity(w *nbt.Writer, te dungeon.TileEntity) {
	if te.Kind != dungeon.TileSign && !te.Kind.IsContainer() {
		return
	}
	w.Compound(tileKey(te), func() {
		w.WriteString("type", string(te.Kind))
		w.Compound("data", func() {
			w.WriteInt("x", int32(te.X&0xF))
			w.WriteInt("y", int32(te.Y&0x7))
			w.WriteInt("z", int32(te.Z&0xF))
			if te.Kind == dungeon.TileSign {
				for i, line := range te.Lines {
					w.WriteString("line"+strconv.Itoa(i+1), line)
				}
				return
			}
			writeStacks(w, te.Items)
		})
	})
}

// writeStacks writes the occupied slots in order. pos is the slot index
// plus one.
func writeStacks(w *nbt.Writer, items []*dungeon.ItemStack) {
	type slot struct {
		pos  int
		item *dungeon.ItemStack
	}
	var occupied []slot
	for i, it := range items {
		if it != nil {
			occupied = append(occupied, slot{pos: i + 1, item: it})
		}
	}
	w.CompoundList("stacks", len(occupied), func(i int) {
		s := occupied[i]
		w.WriteInt("pos", int32(s.pos))
		w.WriteInt("type", s.item.Type)
		w.WriteInt("amount", s.item.Amount)
		w.WriteInt("damage", s.item.Damage)
		w.WriteInt("data", s.item.Data)
	})
}

func decodeTileEntities(raw mcnbt.RawMessage) ([]dungeon.TileEntity, error) {
	var recs map[string]tileRecord
	if err := optional(raw, "tileEntities", nbt.TagCompound, &recs); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(recs))
	for k := range recs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []dungeon.TileEntity
	for _, k := range keys {
		rec := recs[k]
		kind := dungeon.TileKind(rec.Type)
		if kind != dungeon.TileSign && !kind.IsContainer() {
			continue
		}
		te := dungeon.TileEntity{
			Kind: kind,
			X:    int(rec.Data.X) & 0xF,
			Y:    int(rec.Data.Y) & 0x7,
			Z:    int(rec.Data.Z) & 0xF,
		}
		if kind == dungeon.TileSign {
			te.Lines = [4]string{rec.Data.Line1, rec.Data.Line2, rec.Data.Line3, rec.Data.Line4}
		} else {
			items, err := stacksToItems(rec.Data.Stacks)
			if err != nil {
				return nil, fmt.Errorf("tile entity %s: %w", k, err)
			}
			te.Items = items
		}
		out = append(out, te)
	}
	return out, nil
}

const maxSlots = 256

func stacksToItems(stacks []stackRecord) ([]*dungeon.ItemStack, error) {
	size := 0
	for _, s := range stacks {
		if s.Pos < 1 || s.Pos > maxSlots {
			return nil, fmt.Errorf("%w: stack position %d", ErrMalformed, s.Pos)
		}
		if int(s.Pos) > size {
			size = int(s.Pos)
		}
	}
	if size == 0 {
		return nil, nil
	}
	items := make([]*dungeon.ItemStack, size)
	for _, s := range stacks {
		items[s.Pos-1] = &dungeon.ItemStack{Type: s.Type, Amount: s.Amount, Damage: s.Damage, Data: s.Data}
	}
	return items, nil
}

// Replay places decoded tile entities on chunk, shifted up by yOffset.
func Replay(chunk *dungeon.Chunk, tiles []dungeon.TileEntity, yOffset int) {
	for _, te := range tiles {
		chunk.AddTileEntity(te, yOffset)
	}
}
