package dungeon

import (
	"bytes"
	"testing"
)

// fakeHandle is a flat in-memory column.
type fakeHandle struct {
	blocks   [16 * 16 * ChunkHeight]byte
	data     [16 * 16 * ChunkHeight]byte
	tiles    []TileEntity
	lighting int
}

func (h *fakeHandle) idx(x, y, z int) int { return (y*16+z)*16 + x }

func (h *fakeHandle) Block(x, y, z int) (byte, byte) {
	i := h.idx(x, y, z)
	return h.blocks[i], h.data[i]
}

func (h *fakeHandle) SetBlock(x, y, z int, typ, data byte) {
	i := h.idx(x, y, z)
	h.blocks[i] = typ
	h.data[i] = data
}

func (h *fakeHandle) InitLighting()              { h.lighting++ }
func (h *fakeHandle) TileEntities() []TileEntity { return h.tiles }
func (h *fakeHandle) PlaceTileEntity(te TileEntity) {
	h.tiles = append(h.tiles, te)
}
func (h *fakeHandle) RemoveEntities() int { return 0 }

func TestRoomIndexIsBijective(t *testing.T) {
	seen := make([]bool, RoomVolume)
	for x := 0; x < RoomWidth; x++ {
		for z := 0; z < RoomDepth; z++ {
			for y := 0; y < RoomHeight; y++ {
				i := RoomIndex(x, y, z)
				if i < 0 || i >= RoomVolume {
					t.Fatalf("RoomIndex(%d,%d,%d) = %d out of range", x, y, z, i)
				}
				if seen[i] {
					t.Fatalf("RoomIndex(%d,%d,%d) = %d collides", x, y, z, i)
				}
				seen[i] = true
				gx, gy, gz := RoomCoords(i)
				if gx != x || gy != y || gz != z {
					t.Fatalf("RoomCoords(%d) = (%d,%d,%d), want (%d,%d,%d)", i, gx, gy, gz, x, y, z)
				}
			}
		}
	}
}

func TestRoomDraftBlockReadWrite(t *testing.T) {
	r := NewRoom()
	if r.RawBlocks() != nil || r.RawBlockData() != nil {
		t.Fatal("fresh room should have nil drafts")
	}
	r.SetBlock(3, 5, 7, 4, 2)
	typ, data := r.Block(3, 5, 7)
	if typ != 4 || data != 2 {
		t.Errorf("Block(3,5,7) = (%d,%d), want (4,2)", typ, data)
	}
	if got := r.RawBlocks()[RoomIndex(3, 5, 7)]; got != 4 {
		t.Errorf("raw block = %d, want 4", got)
	}
	if typ, _ := r.Block(0, 0, 0); typ != 0 {
		t.Errorf("untouched cell = %d, want 0", typ)
	}
}

func TestRoomDoorwaysAscending(t *testing.T) {
	r := NewRoom()
	r.SetDoorway(7, true)
	r.SetDoorway(0, true)
	r.SetDoorway(3, true)

	got := r.Doorways()
	want := []Direction{0, 3, 7}
	if len(got) != len(want) {
		t.Fatalf("Doorways() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Direction != want[i] {
			t.Errorf("Doorways()[%d] = %d, want %d", i, got[i].Direction, want[i])
		}
	}

	r.ResetDoorways()
	if n := len(r.Doorways()); n != 0 {
		t.Errorf("after reset Doorways() has %d entries", n)
	}
}

func TestRoomSetDoorwayIgnoresInvalidSlot(t *testing.T) {
	r := NewRoom()
	r.SetDoorway(DoorwaySlots, true)
	r.SetDoorway(Invalid, true)
	if len(r.Doorways()) != 0 {
		t.Fatal("invalid slots must be ignored")
	}
	if r.HasDoorway(DoorwaySlots) || r.Doorway(Invalid) != nil {
		t.Fatal("invalid slots must report absent")
	}
}

func TestRoomDoorwaysOnSide(t *testing.T) {
	r := NewRoom()
	r.SetDoorway(1, true)

	for _, slots := range [][]Direction{{0, 1, 2}, {2, 1, 0}} {
		got := r.DoorwaysOnSide(slots)
		if len(got) != 1 || got[0].Direction != 1 {
			t.Errorf("DoorwaysOnSide(%v) = %v, want [slot 1]", slots, got)
		}
	}

	r.SetDoorway(NNE, true)
	got := r.DoorwaysOnSide([]Direction{NNE, E})
	if len(got) != 2 || got[0].Direction != NNE || got[1].Direction != E {
		t.Errorf("DoorwaysOnSide keeps input order, got %v", got)
	}
}

func TestRoomDoorwaysRaw(t *testing.T) {
	r := NewRoom()
	r.SetDoorway(N, true)
	r.SetDoorway(NNW, true)
	raw := r.DoorwaysRaw()
	if len(raw) != DoorwaySlots {
		t.Fatalf("raw length = %d", len(raw))
	}
	want := make([]byte, DoorwaySlots)
	want[N] = 1
	want[NNW] = 1
	if !bytes.Equal(raw, want) {
		t.Errorf("DoorwaysRaw() = %v, want %v", raw, want)
	}
}

func TestRoomNeighbors(t *testing.T) {
	a, b := NewRoom(), NewRoom()
	a.SetNeighbor(UP, b)
	if !a.HasNeighbor(UP) || a.Neighbor(UP) != b {
		t.Fatal("UP neighbor not linked")
	}
	a.SetNeighbor(NNE, b)
	if a.HasNeighbor(NNE) || a.Neighbor(NNE) != nil {
		t.Fatal("doorway-only slot must not hold a neighbor")
	}
	if a.HasNeighbor(Invalid) {
		t.Fatal("invalid direction must report no neighbor")
	}
}

func TestRoomThemes(t *testing.T) {
	r := NewRoom()
	r.AddTheme("CAVE")
	r.AddTheme("DEFAULT")
	r.AddTheme("CAVE")
	r.AddTheme(" ")

	if got := r.ThemeCSV(); got != "CAVE,DEFAULT" {
		t.Errorf("ThemeCSV() = %q, want CAVE,DEFAULT", got)
	}
	if got := r.DefaultTheme(); got != "CAVE" {
		t.Errorf("DefaultTheme() without designation = %q, want first sorted CAVE", got)
	}

	r.SetDefaultTheme("DEFAULT")
	r.RemoveTheme("DEFAULT")
	if r.HasTheme("DEFAULT") {
		t.Error("DEFAULT should be removed")
	}
	if got := r.DefaultTheme(); got != "CAVE" {
		t.Errorf("DefaultTheme() after removing default = %q, want CAVE", got)
	}

	r.ResetThemes()
	if len(r.Themes()) != 0 {
		t.Error("ResetThemes should clear the set")
	}
	if got := r.DefaultTheme(); got != DefaultThemeName {
		t.Errorf("DefaultTheme() on empty set = %q, want %q", got, DefaultThemeName)
	}

	r.SetDefaultTheme("ICE")
	if !r.HasTheme("ICE") {
		t.Error("SetDefaultTheme should register the theme")
	}
}

func TestRoomRefusesUnsafeThemeNames(t *testing.T) {
	r := NewRoom()
	for _, name := range []string{"", "a,b", "x/../../../escaped", "..", `a\b`, "sub/dir", "tab\there"} {
		if r.AddTheme(name) {
			t.Errorf("AddTheme(%q) accepted", name)
		}
	}
	if got := r.Themes(); len(got) != 0 {
		t.Fatalf("themes after refused names = %v", got)
	}

	if !r.AddTheme("  Cave Deep ") || !r.HasTheme("Cave Deep") {
		t.Fatal("trimmed name with an inner blank should be registered")
	}
	if !r.SetDefaultTheme("ICE") {
		t.Fatal("SetDefaultTheme(ICE) refused")
	}
	if r.SetDefaultTheme("a,b") {
		t.Error("SetDefaultTheme accepted a comma")
	}
	if got := r.DefaultTheme(); got != "ICE" {
		t.Errorf("DefaultTheme() after refused name = %q, want ICE", got)
	}
}

func TestRoomRefusesCaseVariantThemes(t *testing.T) {
	r := NewRoom()
	if !r.AddTheme("Cave") {
		t.Fatal("AddTheme(Cave) refused")
	}
	if r.AddTheme("CAVE") {
		t.Error("AddTheme(CAVE) accepted next to Cave")
	}
	if !r.AddTheme("Cave") {
		t.Error("re-adding the same name should report registered")
	}
	if r.SetDefaultTheme("cave") {
		t.Error("SetDefaultTheme(cave) accepted next to Cave")
	}
	if got := r.ThemeCSV(); got != "Cave" {
		t.Errorf("ThemeCSV() = %q, want Cave", got)
	}
}

func TestRoomRefusesShortDraft(t *testing.T) {
	r := NewRoom()
	if r.SetRawBlocks(make([]byte, 10)) {
		t.Error("SetRawBlocks accepted a short array")
	}
	if r.SetRawBlockData(make([]byte, RoomVolume+1)) {
		t.Error("SetRawBlockData accepted a long array")
	}
	if typ, data := r.Block(15, 7, 15); typ != 0 || data != 0 {
		t.Errorf("Block on refused draft = %d,%d, want air", typ, data)
	}

	r.SetBlock(15, 7, 15, 3, 1)
	if r.SetRawBlocks(make([]byte, 4)) {
		t.Error("SetRawBlocks accepted a short array over a draft")
	}
	if typ, _ := r.Block(15, 7, 15); typ != 3 {
		t.Errorf("draft changed by refused array: got %d, want 3", typ)
	}
	if !r.SetRawBlocks(nil) {
		t.Error("SetRawBlocks(nil) should clear")
	}
}

func TestRoomReadsLiveGeometryWhenReady(t *testing.T) {
	h := &fakeHandle{}
	c := NewChunk("test", 0, 0, h, RoomTypeBasicTile)
	r := c.Room(2)
	r.SetRawBlocks(make([]byte, RoomVolume))

	h.SetBlock(1, 2*RoomHeight+3, 4, 9, 1)

	// Not ready: the draft wins.
	if got := r.RawBlocks()[RoomIndex(1, 3, 4)]; got != 0 {
		t.Fatalf("draft read = %d, want 0", got)
	}

	if !c.MarkReady() {
		t.Fatal("MarkReady failed with a handle")
	}
	blocks := r.RawBlocks()
	if got := blocks[RoomIndex(1, 3, 4)]; got != 9 {
		t.Errorf("live read = %d, want 9", got)
	}
	if got := r.RawBlockData()[RoomIndex(1, 3, 4)]; got != 1 {
		t.Errorf("live data read = %d, want 1", got)
	}

	// Snapshots are fresh copies.
	blocks[0] = 77
	if r.RawBlocks()[0] == 77 {
		t.Error("live snapshot must not alias")
	}

	// Draft writes stay in the draft while ready.
	r.SetRawBlocks(bytes.Repeat([]byte{5}, RoomVolume))
	if got := r.RawBlocks()[RoomIndex(1, 3, 4)]; got != 9 {
		t.Errorf("ready read after draft write = %d, want 9", got)
	}
	c.MarkDraft()
	if got := r.RawBlocks()[RoomIndex(1, 3, 4)]; got != 5 {
		t.Errorf("draft read after MarkDraft = %d, want 5", got)
	}
}

func TestRoomTileEntitiesFilteredByBand(t *testing.T) {
	h := &fakeHandle{}
	c := NewChunk("test", 0, 0, h, RoomTypeBasicTile)
	c.AddTileEntity(TileEntity{Kind: TileSign, X: 1, Y: 2, Z: 3}, 8)
	c.AddTileEntity(TileEntity{Kind: TileChest, X: 1, Y: 0, Z: 3}, 32)

	got := c.Room(1).TileEntities()
	if len(got) != 1 || got[0].Kind != TileSign || got[0].Y != 2 {
		t.Fatalf("room 1 tile entities = %+v", got)
	}

	c.MarkReady()
	if n := c.FlushTileEntities(); n != 2 {
		t.Fatalf("flushed %d, want 2", n)
	}
	got = c.Room(4).TileEntities()
	if len(got) != 1 || got[0].Kind != TileChest || got[0].Y != 0 {
		t.Fatalf("room 4 live tile entities = %+v", got)
	}
}
