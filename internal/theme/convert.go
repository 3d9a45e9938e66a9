package theme

import "github.com/OCharnyshevich/dungeonator/internal/dungeon"

// Convert rewrites one room band of live geometry from source to target in
// place. baseY is the band's lowest column-local y. It returns the number
// of converted cells and recomputes lighting when any cell changed.
func Convert(h dungeon.Handle, baseY int, tr Translator, source, target string) int {
	if h == nil || tr == nil {
		return 0
	}
	converted := 0
	for x := 0; x < dungeon.RoomWidth; x++ {
		for z := 0; z < dungeon.RoomDepth; z++ {
			for y := 0; y < dungeon.RoomHeight; y++ {
				typ, sub := h.Block(x, baseY+y, z)
				from := Material{Type: typ, Sub: sub}
				to := Apply(tr, source, target, from)
				if to == from {
					continue
				}
				h.SetBlock(x, baseY+y, z, to.Type, to.Sub)
				converted++
			}
		}
	}
	if converted > 0 {
		h.InitLighting()
	}
	return converted
}

// TranslateArrays returns translated copies of parallel block and sub-type
// arrays, cell by cell, with the pass-through rule.
func TranslateArrays(tr Translator, source, target string, blocks, data []byte) ([]byte, []byte) {
	outBlocks := make([]byte, len(blocks))
	outData := make([]byte, len(data))
	for i := range blocks {
		var sub byte
		if i < len(data) {
			sub = data[i]
		}
		m := Apply(tr, source, target, Material{Type: blocks[i], Sub: sub})
		outBlocks[i] = m.Type
		if i < len(outData) {
			outData[i] = m.Sub
		}
	}
	return outBlocks, outData
}
