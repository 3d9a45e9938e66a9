package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/df-mc/goleveldb/leveldb/util"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
)

const (
	chunkPrefix   = "c/"
	libraryPrefix = "l/"
	nextIDKey     = "meta/next_library_id"
)

// LevelDB stores chunks and library rooms in a LevelDB database.
type LevelDB struct {
	db  *leveldb.DB
	log *slog.Logger
	now func() time.Time

	// idMu serializes library id allocation.
	idMu sync.Mutex
}

var _ cache.Store = (*LevelDB)(nil)

// OpenLevelDB opens or creates the database directory at path.
func OpenLevelDB(path string, log *slog.Logger) (*LevelDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	db, err := leveldb.OpenFile(path, &opt.Options{Compression: opt.NoCompression})
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	log.Info("opened chunk store", "driver", "leveldb", "path", path)
	return &LevelDB{db: db, log: log, now: time.Now}, nil
}

// GetChunk returns the stored chunk, or (nil, nil) when none is stored.
func (l *LevelDB) GetChunk(world string, x, z int) (*dungeon.Chunk, error) {
	hash := dungeon.Hash(world, x, z)
	payload, err := l.db.Get([]byte(chunkPrefix+hash), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, &cache.GetError{Location: hash, Reason: "read chunk", Err: err}
	}

	var rec ChunkRecord
	if err := decodePayload(payload, &rec); err != nil {
		return nil, &cache.GetError{Location: hash, Reason: "decode chunk", Err: err}
	}
	return rec.Chunk(), nil
}

// SaveChunk writes the chunk under its hash.
func (l *LevelDB) SaveChunk(c *dungeon.Chunk) error {
	payload, err := encodePayload(RecordFromChunk(c))
	if err != nil {
		return &cache.SaveError{Reason: "encode chunk " + c.Hash(), Err: err}
	}
	if err := l.db.Put([]byte(chunkPrefix+c.Hash()), payload, nil); err != nil {
		return &cache.SaveError{Reason: "write chunk " + c.Hash(), Err: err}
	}
	return nil
}

// SaveLibraryRoom writes room to the library, assigning a LibraryID on
// first save.
func (l *LevelDB) SaveLibraryRoom(r *dungeon.Room) error {
	l.idMu.Lock()
	defer l.idMu.Unlock()

	batch := new(leveldb.Batch)
	id := r.LibraryID
	if id == 0 {
		next, err := l.nextID()
		if err != nil {
			return &cache.SaveError{Reason: "allocate library id", Err: err}
		}
		id = next
		batch.Put([]byte(nextIDKey), []byte(strconv.FormatInt(id+1, 10)))
	}

	rec := LibraryRecordFromRoom(r, l.now())
	rec.ID = id
	payload, err := encodePayload(rec)
	if err != nil {
		return &cache.SaveError{Reason: "encode library room " + rec.Filename, Err: err}
	}
	batch.Put([]byte(libraryKey(id)), payload)
	if err := l.db.Write(batch, nil); err != nil {
		return &cache.SaveError{Reason: "write library room " + rec.Filename, Err: err}
	}
	r.LibraryID = id
	return nil
}

func (l *LevelDB) nextID() (int64, error) {
	v, err := l.db.Get([]byte(nextIDKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(v), 10, 64)
}

func libraryKey(id int64) string {
	return libraryPrefix + strconv.FormatInt(id, 10)
}

// LibraryRooms lists the room library ordered by id.
func (l *LevelDB) LibraryRooms() ([]LibraryRecord, error) {
	it := l.db.NewIterator(util.BytesPrefix([]byte(libraryPrefix)), nil)
	defer it.Release()

	var out []LibraryRecord
	for it.Next() {
		var rec LibraryRecord
		if err := decodePayload(it.Value(), &rec); err != nil {
			return nil, fmt.Errorf("decode library room %s: %w", it.Key(), err)
		}
		out = append(out, rec)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("iterate library rooms: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	return l.db.Close()
}
