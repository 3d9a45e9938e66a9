package storage

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/dungeonator/internal/config"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openAll(t *testing.T) map[string]Library {
	t.Helper()
	dir := t.TempDir()
	stores := map[string]Library{}
	for _, cfg := range []config.Store{
		{Driver: config.DriverSQLite, Path: filepath.Join(dir, "sqlite", "dungeon.db")},
		{Driver: config.DriverLevelDB, Path: filepath.Join(dir, "leveldb")},
	} {
		s, err := Open(cfg, discardLogger())
		if err != nil {
			t.Fatalf("Open(%s): %v", cfg.Driver, err)
		}
		t.Cleanup(func() { s.Close() })
		stores[cfg.Driver] = s
	}
	return stores
}

func sampleChunk() *dungeon.Chunk {
	c := dungeon.NewChunk("test", -2, 5, nil, dungeon.RoomTypeBasicTile)
	r := c.Room(3)
	r.Seed = 42
	r.Name = "crypt"
	r.Filename = "crypt"
	r.SetBlock(1, 2, 3, 98, 2)
	r.SetDoorway(dungeon.N, true)
	r.SetDoorway(dungeon.WNW, true)
	r.AddTheme("CAVE")
	r.SetDefaultTheme("DEFAULT")
	return c
}

func TestChunkRoundTrip(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.GetChunk("test", -2, 5)
			if err != nil || got != nil {
				t.Fatalf("GetChunk before save = (%v, %v), want (nil, nil)", got, err)
			}

			src := sampleChunk()
			if err := s.SaveChunk(src); err != nil {
				t.Fatalf("SaveChunk: %v", err)
			}
			got, err = s.GetChunk("test", -2, 5)
			if err != nil || got == nil {
				t.Fatalf("GetChunk = (%v, %v)", got, err)
			}
			if got.Hash() != "test.-2.5" || got.IsReady() {
				t.Errorf("chunk %s ready=%v", got.Hash(), got.IsReady())
			}

			r, want := got.Room(3), src.Room(3)
			if r.Seed != 42 || r.Name != "crypt" {
				t.Errorf("room fields = seed %d name %q", r.Seed, r.Name)
			}
			if !bytes.Equal(r.RawBlocks(), want.RawBlocks()) || !bytes.Equal(r.RawBlockData(), want.RawBlockData()) {
				t.Error("geometry differs after round trip")
			}
			if !bytes.Equal(r.DoorwaysRaw(), want.DoorwaysRaw()) {
				t.Errorf("doorways = %v, want %v", r.DoorwaysRaw(), want.DoorwaysRaw())
			}
			if r.ThemeCSV() != "CAVE,DEFAULT" || r.DefaultTheme() != "DEFAULT" {
				t.Errorf("themes = %q default %q", r.ThemeCSV(), r.DefaultTheme())
			}
			if other := got.Room(4); other.RawBlocks() != nil || other.ThemeCSV() != "" {
				t.Error("untouched room gained state")
			}

			// Re-saving replaces the stored chunk.
			src.Room(3).Seed = 7
			if err := s.SaveChunk(src); err != nil {
				t.Fatalf("SaveChunk again: %v", err)
			}
			got, _ = s.GetChunk("test", -2, 5)
			if got.Room(3).Seed != 7 {
				t.Errorf("re-saved seed = %d, want 7", got.Room(3).Seed)
			}
		})
	}
}

func TestLibraryRoomIDs(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			a := dungeon.NewRoom()
			a.Filename = "a"
			a.SetDoorway(dungeon.E, true)
			b := dungeon.NewRoom()
			b.Filename = "b"

			if err := s.SaveLibraryRoom(a); err != nil {
				t.Fatalf("SaveLibraryRoom(a): %v", err)
			}
			if err := s.SaveLibraryRoom(b); err != nil {
				t.Fatalf("SaveLibraryRoom(b): %v", err)
			}
			if a.LibraryID == 0 || b.LibraryID == 0 || a.LibraryID == b.LibraryID {
				t.Fatalf("ids = %d, %d", a.LibraryID, b.LibraryID)
			}

			firstID := a.LibraryID
			a.Name = "renamed"
			a.AddTheme("ICE")
			if err := s.SaveLibraryRoom(a); err != nil {
				t.Fatalf("re-save: %v", err)
			}
			if a.LibraryID != firstID {
				t.Errorf("re-save changed id %d -> %d", firstID, a.LibraryID)
			}

			recs, err := s.LibraryRooms()
			if err != nil {
				t.Fatalf("LibraryRooms: %v", err)
			}
			if len(recs) != 2 {
				t.Fatalf("got %d library rooms, want 2", len(recs))
			}
			if recs[0].ID != firstID || recs[0].Name != "renamed" || len(recs[0].Themes) != 1 || recs[0].Themes[0] != "ICE" {
				t.Errorf("first record = %+v", recs[0])
			}
			if recs[0].Exits[dungeon.E] == 0 {
				t.Error("exit E lost")
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.Store{Driver: "postgres", Path: "x"}, discardLogger())
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Open err = %v, want ErrUnknownDriver", err)
	}
}

func TestCorruptPayloadIsGetError(t *testing.T) {
	s, err := OpenLevelDB(filepath.Join(t.TempDir(), "db"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.db.Put([]byte(chunkPrefix+"test.0.0"), []byte("not zstd"), nil); err != nil {
		t.Fatal(err)
	}

	_, err = s.GetChunk("test", 0, 0)
	var ge *cache.GetError
	if !errors.As(err, &ge) || ge.Location != "test.0.0" {
		t.Errorf("GetChunk err = %v, want GetError for test.0.0", err)
	}
}

func TestShortDraftIsDropped(t *testing.T) {
	rec := &ChunkRecord{World: "test", Rooms: []RoomRecord{
		{Level: 3, Doorways: make([]byte, dungeon.DoorwaySlots), Blocks: []byte{1, 2, 3}, BlockData: make([]byte, dungeon.RoomVolume)},
		{Level: 4, Doorways: make([]byte, dungeon.DoorwaySlots), Blocks: bytes.Repeat([]byte{9}, dungeon.RoomVolume), BlockData: make([]byte, dungeon.RoomVolume)},
	}}
	payload, err := encodePayload(rec)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	var back ChunkRecord
	if err := decodePayload(payload, &back); err != nil {
		t.Fatalf("decodePayload: %v", err)
	}

	c := back.Chunk()
	short := c.Room(3)
	if short.RawBlocks() != nil || short.RawBlockData() != nil {
		t.Error("short draft restored")
	}
	if typ, data := short.Block(15, 7, 15); typ != 0 || data != 0 {
		t.Errorf("Block on dropped draft = %d,%d, want air", typ, data)
	}
	if typ, _ := c.Room(4).Block(15, 7, 15); typ != 9 {
		t.Errorf("full draft block = %d, want 9", typ)
	}
}

func TestStoreBacksManager(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "dungeon.db"), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	m := cache.NewManager(cache.NewDataManager(s, discardLogger()), nil, discardLogger())
	if m.IsChunkGenerated("test", 0, 0) {
		t.Fatal("fresh store reports a generated chunk")
	}
	c, err := m.GenerateChunk("test", 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.StoreChunk(c) {
		t.Fatal("StoreChunk failed")
	}

	fresh := cache.NewManager(cache.NewDataManager(s, discardLogger()), nil, discardLogger())
	if !fresh.IsChunkGenerated("test", 0, 0) {
		t.Error("stored chunk not visible to a new manager")
	}
}
