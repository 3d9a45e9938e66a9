package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OCharnyshevich/dungeonator/internal/config"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/cache"
	"github.com/OCharnyshevich/dungeonator/internal/dungeon/gen"
	"github.com/OCharnyshevich/dungeonator/internal/editor"
	"github.com/OCharnyshevich/dungeonator/internal/schematic"
	"github.com/OCharnyshevich/dungeonator/internal/storage"
	"github.com/OCharnyshevich/dungeonator/internal/theme"
	"github.com/OCharnyshevich/dungeonator/internal/world"
)

const usage = `usage: dungeonator [flags] <command> [args]

commands:
  reprocess          regenerate theme variants for every schematic in the tile folder
  inspect <file>     print the contents of a schematic file
  generate [-radius] generate and store the chunks around the origin
  edit <name>        load a schematic, apply doorway and theme edits, save it back
  library            list the room library
`

func main() {
	cfg := config.DefaultConfig()

	configPath := flag.String("config", "", "path to YAML config file")
	flag.StringVar(&cfg.World, "world", cfg.World, "world name")
	flag.StringVar(&cfg.TileFolder, "tiles", cfg.TileFolder, "schematic tile folder")
	flag.StringVar(&cfg.ThemeFile, "themes", cfg.ThemeFile, "theme translation table (JSON)")
	flag.StringVar(&cfg.Author, "author", cfg.Author, "author recorded in saved schematics")
	flag.IntVar(&cfg.EditorFloor, "editor-floor", cfg.EditorFloor, "lowest y of the edited room")
	flag.StringVar(&cfg.DefaultTheme, "default-theme", cfg.DefaultTheme, "default theme name")
	flag.StringVar(&cfg.Generator, "generator", cfg.Generator, "room generator: empty or floor")
	flag.IntVar(&cfg.FloorBlock, "floor-block", cfg.FloorBlock, "block type laid by the floor generator")
	flag.StringVar(&cfg.Store.Driver, "store", cfg.Store.Driver, "chunk store driver: sqlite or leveldb")
	flag.StringVar(&cfg.Store.Path, "store-path", cfg.Store.Path, "chunk store path")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *configPath != "" {
		fromFile, err := config.Load(*configPath)
		if err != nil {
			log.Error("load config", "error", err)
			os.Exit(1)
		}
		explicit := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
		config.Merge(cfg, fromFile, explicit)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "reprocess":
		err = reprocess(ctx, cfg, log)
	case "inspect":
		err = inspect(args)
	case "generate":
		err = generate(ctx, cfg, args, log)
	case "edit":
		err = edit(cfg, args, log)
	case "library":
		err = library(cfg, log)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func loadThemes(cfg *config.Config) (*theme.Table, error) {
	if cfg.ThemeFile == "" {
		return theme.NewTable(), nil
	}
	return theme.LoadFile(cfg.ThemeFile)
}

func reprocess(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	table, err := loadThemes(cfg)
	if err != nil {
		return err
	}
	log.Info("theme table loaded", "themes", len(table.Themes()), "entries", table.Len())

	done, err := schematic.Reprocess(ctx, cfg.TileFolder, table, log)
	log.Info("reprocess finished", "path", cfg.TileFolder, "files", len(done))
	return err
}

func inspect(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("inspect takes one file argument")
	}
	chunk := dungeon.NewChunk("", 0, 0, nil, dungeon.RoomTypeBasicTile)
	room := chunk.Room(0)
	d, err := schematic.ReadFile(args[0], room)
	if err != nil {
		return err
	}

	var exits []string
	for _, dw := range room.Doorways() {
		exits = append(exits, dw.Direction.String())
	}
	fmt.Printf("file:     %s\n", args[0])
	fmt.Printf("author:   %s\n", d.Meta.Author)
	fmt.Printf("updated:  %s\n", d.Meta.Updated.Format("2006-01-02 15:04:05"))
	fmt.Printf("type:     %d\n", d.Type)
	fmt.Printf("doorways: %s\n", strings.Join(exits, ","))
	fmt.Printf("themes:   %s (default %s)\n", room.ThemeCSV(), room.DefaultTheme())
	fmt.Printf("tiles:    %d\n", len(d.Tiles))
	for _, te := range d.Tiles {
		fmt.Printf("  %s at %d,%d,%d\n", te.Kind, te.X, te.Y, te.Z)
	}
	return nil
}

func generate(ctx context.Context, cfg *config.Config, args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	radius := fs.Int("radius", 2, "chunk radius around the origin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	strategy, err := gen.NewStrategy(cfg.Generator, byte(cfg.FloorBlock))
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := cache.NewManager(cache.NewDataManager(store, log), gen.NewGenerator(strategy), log)
	w := world.NewWorld(cfg.World)

	generated, skipped := 0, 0
	for x := -*radius; x <= *radius; x++ {
		for z := -*radius; z <= *radius; z++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if mgr.IsChunkGenerated(cfg.World, x, z) {
				skipped++
				continue
			}
			chunk, err := mgr.GenerateChunk(cfg.World, x, z, nil)
			if err != nil {
				return err
			}
			w.Commit(chunk)
			w.Attach(chunk)
			if !mgr.StoreChunk(chunk) {
				return fmt.Errorf("store chunk %s failed", chunk.Hash())
			}
			generated++
		}
	}
	log.Info("generation finished", "world", cfg.World, "generated", generated, "skipped", skipped, "cached", mgr.CachedCount())
	return nil
}

// logMessenger forwards editor feedback to the log.
type logMessenger struct{ log *slog.Logger }

func (m logMessenger) Message(msg string) { m.log.Info(msg) }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func edit(cfg *config.Config, args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	var (
		resetExits = fs.Bool("reset-exits", false, "clear every doorway first")
		delExits   = fs.String("del-exits", "", "comma-separated doorways to remove")
		addExits   = fs.String("add-exits", "", "comma-separated doorways to add")
		setThemes  = fs.String("set-themes", "", "comma-separated themes replacing the current set")
		addThemes  = fs.String("add-themes", "", "comma-separated themes to add")
		delThemes  = fs.String("del-themes", "", "comma-separated themes to remove")
		defTheme   = fs.String("default", "", "default theme")
		saveAs     = fs.String("o", "", "base name to save under (default: the loaded name)")
		toLibrary  = fs.Bool("library", false, "also save the room to the room library")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("edit takes one schematic name")
	}

	table, err := loadThemes(cfg)
	if err != nil {
		return err
	}
	var data *cache.DataManager
	if *toLibrary {
		store, err := storage.Open(cfg.Store, log)
		if err != nil {
			return err
		}
		defer store.Close()
		data = cache.NewDataManager(store, log)
	}

	s := editor.NewSession(editor.Options{
		TileFolder:   cfg.TileFolder,
		Author:       cfg.Author,
		DefaultTheme: cfg.DefaultTheme,
	}, table, data, logMessenger{log: log}, log)

	w := world.NewWorld(cfg.World)
	chunk := dungeon.NewChunk(cfg.World, 0, 0, nil, dungeon.RoomTypeBasicTile)
	w.Attach(chunk)
	if err := s.Load(chunk, cfg.EditorFloor, "", fs.Arg(0)); err != nil {
		return err
	}

	if *resetExits || *delExits != "" || *addExits != "" {
		if _, err := s.Exits(*resetExits, splitList(*delExits), splitList(*addExits)); err != nil {
			return err
		}
	}
	ops := editor.ThemeOps{
		Set:     splitList(*setThemes),
		Add:     splitList(*addThemes),
		Remove:  splitList(*delThemes),
		Default: *defTheme,
	}
	if _, err := s.Theme(ops); err != nil {
		return err
	}
	return s.Save("", *saveAs, *toLibrary)
}

func library(cfg *config.Config, log *slog.Logger) error {
	store, err := storage.Open(cfg.Store, log)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.LibraryRooms()
	if err != nil {
		return err
	}
	for _, r := range recs {
		var exits []string
		for i, v := range r.Exits {
			if v != 0 {
				exits = append(exits, dungeon.Direction(i).String())
			}
		}
		fmt.Printf("%4d  %-24s %-24s themes=%s default=%s exits=%s\n",
			r.ID, r.Name, r.Filename, strings.Join(r.Themes, ","), r.DefaultTheme, strings.Join(exits, ","))
	}
	return nil
}
