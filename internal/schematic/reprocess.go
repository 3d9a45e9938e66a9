package schematic

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/theme"
)

// reprocessWorkers bounds concurrent file rewrites.
const reprocessWorkers = 4

// Reprocess re-encodes every default-theme schematic in dir, regenerating
// the processed variants with tr. Metadata and tile entities are carried
// over. It returns the base names rewritten, sorted.
func Reprocess(ctx context.Context, dir string, tr theme.Translator, log *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var (
		mu   sync.Mutex
		done []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reprocessWorkers)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".nbt") {
			continue
		}
		e := e
		base := strings.TrimSuffix(e.Name(), ".nbt")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := reprocessOne(dir, base, tr); err != nil {
				return err
			}
			log.Info("reprocessed schematic", "path", filepath.Join(dir, e.Name()))
			mu.Lock()
			done = append(done, base)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	sort.Strings(done)
	return done, err
}

func reprocessOne(dir, base string, tr theme.Translator) error {
	// A detached chunk stages the decoded tile entities for Encode.
	chunk := dungeon.NewChunk("", 0, 0, nil, dungeon.RoomTypeBasicTile)
	room := chunk.Room(0)
	d, err := ReadFile(filepath.Join(dir, base+".nbt"), room)
	if err != nil {
		return err
	}
	Replay(chunk, d.Tiles, 0)

	variants, err := Encode(room, d.Meta, tr)
	if err != nil {
		return fmt.Errorf("encode %s: %w", base, err)
	}
	if _, err := WriteFiles(dir, base, variants); err != nil {
		return err
	}
	return nil
}
