// Package storage persists chunk room stacks and the room library. Payloads
// are JSON compressed with zstd.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCharnyshevich/dungeonator/internal/config"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// Library is a store that can also list its room library.
type Library interface {
	cache.Store
	LibraryRooms() ([]LibraryRecord, error)
}

// Open opens the store selected by cfg.
func Open(cfg config.Store, log *slog.Logger) (Library, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverLevelDB:
		l, err := OpenLevelDB(cfg.Path, log)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
