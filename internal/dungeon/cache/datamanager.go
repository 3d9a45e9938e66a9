// Package cache holds the in-memory chunk cache, the generation tracker,
// and the boundary that shields callers from persistent store faults.
package cache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

// Store is the persistent chunk and room-library store.
// GetChunk returns (nil, nil) when nothing is stored at the coordinate.
// Failures are reported as *GetError or *SaveError.
type Store interface {
	GetChunk(world string, x, z int) (*dungeon.Chunk, error)
	SaveChunk(chunk *dungeon.Chunk) error
	SaveLibraryRoom(room *dungeon.Room) error
	Close() error
}

// GetError is a failed store lookup.
type GetError struct {
	Location string
	Reason   string
	Err      error
}

func (e *GetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("get %s: %s: %v", e.Location, e.Reason, e.Err)
	}
	return fmt.Sprintf("get %s: %s", e.Location, e.Reason)
}

func (e *GetError) Unwrap() error { return e.Err }

// SaveError is a failed store write.
type SaveError struct {
	Reason string
	Err    error
}

func (e *SaveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("save: %s: %v", e.Reason, e.Err)
	}
	return "save: " + e.Reason
}

func (e *SaveError) Unwrap() error { return e.Err }

// DataManager wraps a Store. Store faults are logged here and never reach
// the caller as errors.
type DataManager struct {
	store Store
	log   *slog.Logger
}

// NewDataManager creates a DataManager over store.
func NewDataManager(store Store, log *slog.Logger) *DataManager {
	return &DataManager{store: store, log: log}
}

// GetChunk returns the stored chunk, or nil on a miss or a store fault.
func (m *DataManager) GetChunk(world string, x, z int) *dungeon.Chunk {
	c, err := m.store.GetChunk(world, x, z)
	if err != nil {
		m.logFault("chunk lookup failed", err, "location", dungeon.Hash(world, x, z))
		return nil
	}
	return c
}

// SaveChunk persists chunk and reports whether it was stored.
func (m *DataManager) SaveChunk(chunk *dungeon.Chunk) bool {
	if err := m.store.SaveChunk(chunk); err != nil {
		m.logFault("chunk save failed", err, "location", chunk.Hash())
		return false
	}
	return true
}

// SaveLibraryRoom persists room to the room library and reports whether
// it was stored.
func (m *DataManager) SaveLibraryRoom(room *dungeon.Room) bool {
	if err := m.store.SaveLibraryRoom(room); err != nil {
		m.logFault("library room save failed", err, "room", room.Name, "file", room.Filename)
		return false
	}
	return true
}

func (m *DataManager) logFault(msg string, err error, args ...any) {
	var ge *GetError
	var se *SaveError
	switch {
	case errors.As(err, &ge):
		args = append(args, "reason", ge.Reason)
	case errors.As(err, &se):
		args = append(args, "reason", se.Reason)
	}
	args = append(args, "error", err)
	m.log.Error(msg, args...)
}
