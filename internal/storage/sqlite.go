package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
)

// SQLite stores chunks and library rooms in a SQLite database.
type SQLite struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

var _ cache.Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string, log *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("opened chunk store", "driver", "sqlite", "path", path)
	return &SQLite{db: db, log: log, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			hash TEXT PRIMARY KEY,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			z INTEGER NOT NULL,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS library_rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			filename TEXT NOT NULL,
			type INTEGER NOT NULL,
			themes TEXT NOT NULL,
			default_theme TEXT NOT NULL,
			exits BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_world ON chunks(world);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// GetChunk returns the stored chunk, or (nil, nil) when none is stored.
func (s *SQLite) GetChunk(world string, x, z int) (*dungeon.Chunk, error) {
	hash := dungeon.Hash(world, x, z)
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM chunks WHERE hash = ?`, hash).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &cache.GetError{Location: hash, Reason: "query chunk", Err: err}
	}

	var rec ChunkRecord
	if err := decodePayload(payload, &rec); err != nil {
		return nil, &cache.GetError{Location: hash, Reason: "decode chunk", Err: err}
	}
	return rec.Chunk(), nil
}

// SaveChunk inserts or replaces the chunk's row.
func (s *SQLite) SaveChunk(c *dungeon.Chunk) error {
	payload, err := encodePayload(RecordFromChunk(c))
	if err != nil {
		return &cache.SaveError{Reason: "encode chunk " + c.Hash(), Err: err}
	}
	_, err = s.db.Exec(`INSERT INTO chunks (hash, world, x, z, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		c.Hash(), c.World, c.X, c.Z, payload, s.now().UnixMilli())
	if err != nil {
		return &cache.SaveError{Reason: "write chunk " + c.Hash(), Err: err}
	}
	return nil
}

// SaveLibraryRoom inserts room into the library, assigning its LibraryID,
// or updates the existing entry when the room already has one.
func (s *SQLite) SaveLibraryRoom(r *dungeon.Room) error {
	rec := LibraryRecordFromRoom(r, s.now())
	themes := strings.Join(rec.Themes, ",")

	if rec.ID == 0 {
		res, err := s.db.Exec(`INSERT INTO library_rooms (name, filename, type, themes, default_theme, exits, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.Name, rec.Filename, rec.Type, themes, rec.DefaultTheme, rec.Exits, rec.UpdatedAt.UnixMilli())
		if err != nil {
			return &cache.SaveError{Reason: "insert library room " + rec.Filename, Err: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return &cache.SaveError{Reason: "library room id", Err: err}
		}
		r.LibraryID = id
		return nil
	}

	_, err := s.db.Exec(`INSERT INTO library_rooms (id, name, filename, type, themes, default_theme, exits, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, filename = excluded.filename, type = excluded.type,
			themes = excluded.themes, default_theme = excluded.default_theme, exits = excluded.exits,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.Filename, rec.Type, themes, rec.DefaultTheme, rec.Exits, rec.UpdatedAt.UnixMilli())
	if err != nil {
		return &cache.SaveError{Reason: fmt.Sprintf("update library room %d", rec.ID), Err: err}
	}
	return nil
}

// LibraryRooms lists the room library ordered by id.
func (s *SQLite) LibraryRooms() ([]LibraryRecord, error) {
	rows, err := s.db.Query(`SELECT id, name, filename, type, themes, default_theme, exits, updated_at
		FROM library_rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query library rooms: %w", err)
	}
	defer rows.Close()

	var out []LibraryRecord
	for rows.Next() {
		var (
			rec     LibraryRecord
			themes  string
			updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Filename, &rec.Type, &themes, &rec.DefaultTheme, &rec.Exits, &updated); err != nil {
			return nil, fmt.Errorf("scan library room: %w", err)
		}
		rec.Themes = themesFromCSV(themes)
		rec.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate library rooms: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
