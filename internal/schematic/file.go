package schematic

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
)

// ProcessedDir holds the non-default theme variants under a tile folder.
const ProcessedDir = "processed"

// FileName returns the path of a variant relative to the tile folder.
func FileName(base, themeName string, isDefault bool) string {
	if isDefault {
		return base + ".nbt"
	}
	return filepath.Join(ProcessedDir, base+"."+strings.ToUpper(themeName)+".nbt")
}

// ErrBadFileName is returned when a variant's file would land outside the
// tile folder or collide with another variant's file.
var ErrBadFileName = errors.New("bad schematic file name")

// WriteFiles writes every variant under dir and returns the written paths.
// Each file is gzip-compressed and replaced atomically. Every path is
// checked before anything is written.
func WriteFiles(dir, base string, variants []Variant) ([]string, error) {
	targets := make([]string, 0, len(variants))
	seen := make(map[string]string, len(variants))
	for _, v := range variants {
		rel := filepath.Clean(FileName(base, v.Theme, v.Default))
		if !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("%w: %q", ErrBadFileName, rel)
		}
		if parent := filepath.Dir(rel); parent != "." && parent != ProcessedDir {
			return nil, fmt.Errorf("%w: %q", ErrBadFileName, rel)
		}
		if other, ok := seen[rel]; ok {
			return nil, fmt.Errorf("%w: themes %q and %q both map to %q", ErrBadFileName, other, v.Theme, rel)
		}
		seen[rel] = v.Theme
		targets = append(targets, filepath.Join(dir, rel))
	}

	if err := os.MkdirAll(filepath.Join(dir, ProcessedDir), 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(variants))
	for i, v := range variants {
		path := targets[i]
		if err := atomicWriteGzip(path, v.Data); err != nil {
			return paths, fmt.Errorf("write schematic %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// atomicWriteGzip compresses data and writes it atomically using a temp
// file + rename.
func atomicWriteGzip(path string, data []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ReadFile decodes the schematic at path into room. Gzip-compressed and raw
// records are both accepted.
func ReadFile(path string, room *dungeon.Room) (*Decoded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schematic %s: %w", path, err)
	}
	defer f.Close()

	r, closeFn, err := maybeGunzip(f)
	if err != nil {
		room.ClearDraft()
		room.ResetDoorways()
		return nil, fmt.Errorf("read schematic %s: %w", path, err)
	}
	defer closeFn()

	d, err := Decode(r, room)
	if err != nil {
		return nil, fmt.Errorf("decode schematic %s: %w", path, err)
	}
	return d, nil
}

func maybeGunzip(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if magic[0] != 0x1f || magic[1] != 0x8b {
		return br, func() error { return nil }, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return zr, zr.Close, nil
}
