package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverSQLite  = "sqlite"
	DriverLevelDB = "leveldb"
)

// Store selects and locates the persistent chunk store.
type Store struct {
	Driver string `yaml:"driver"` // "sqlite" or "leveldb"
	Path   string `yaml:"path"`
}

// Config holds the dungeon tool configuration.
type Config struct {
	World        string `yaml:"world"`
	TileFolder   string `yaml:"tile_folder"`
	ThemeFile    string `yaml:"theme_file"`
	Author       string `yaml:"author"`
	EditorFloor  int    `yaml:"editor_floor"` // lowest y of the room being edited
	DefaultTheme string `yaml:"default_theme"`
	Generator    string `yaml:"generator"` // "empty" or "floor"
	FloorBlock   int    `yaml:"floor_block"`
	Store        Store  `yaml:"store"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		World:        "world",
		TileFolder:   "tiles",
		Author:       "unknown",
		EditorFloor:  8,
		DefaultTheme: "DEFAULT",
		Generator:    "empty",
		FloorBlock:   1,
		Store: Store{
			Driver: DriverSQLite,
			Path:   "dungeon.db",
		},
	}
}

// Load reads a YAML config over the defaults. An empty or missing path
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values that have a closed set of choices.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverLevelDB:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Generator {
	case "", "empty", "floor":
	default:
		return fmt.Errorf("unknown generator %q", c.Generator)
	}
	if c.FloorBlock < 0 || c.FloorBlock > 255 {
		return fmt.Errorf("floor_block %d out of range", c.FloorBlock)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["world"] {
		cfg.World = fromFile.World
	}
	if !explicitFlags["tiles"] {
		cfg.TileFolder = fromFile.TileFolder
	}
	if !explicitFlags["themes"] {
		cfg.ThemeFile = fromFile.ThemeFile
	}
	if !explicitFlags["author"] {
		cfg.Author = fromFile.Author
	}
	if !explicitFlags["editor-floor"] {
		cfg.EditorFloor = fromFile.EditorFloor
	}
	if !explicitFlags["default-theme"] {
		cfg.DefaultTheme = fromFile.DefaultTheme
	}
	if !explicitFlags["generator"] {
		cfg.Generator = fromFile.Generator
	}
	if !explicitFlags["floor-block"] {
		cfg.FloorBlock = fromFile.FloorBlock
	}
	if !explicitFlags["store"] {
		cfg.Store.Driver = fromFile.Store.Driver
	}
	if !explicitFlags["store-path"] {
		cfg.Store.Path = fromFile.Store.Path
	}
}
