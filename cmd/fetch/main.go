package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	getter "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/dungeonator/internal/schematic"
	"github.com/OCharnyshevich/dungeonator/internal/theme"
)

func main() {
	var (
		src    = flag.String("src", "", "room library source (any go-getter URL, e.g. git::https://host/repo.git//tiles)")
		out    = flag.String("o", "./tiles", "output tile folder")
		themes = flag.String("themes", "", "theme table file inside the library, used to validate it and regenerate variants")
		clean  = flag.Bool("clean", false, "remove the output folder before downloading")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *src == "" || *out == "" {
		log.Error("both -src and -o are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *clean {
		if err := os.RemoveAll(*out); err != nil {
			log.Error("clean output", "path", *out, "error", err)
			os.Exit(1)
		}
	}

	log.Info("downloading room library", "src", *src, "path", *out)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  *src,
		Dst:  *out,
		Pwd:  mustGetwd(log),
		Mode: getter.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		log.Error("download room library", "src", *src, "error", err)
		os.Exit(1)
	}
	log.Info("downloaded room library", "path", *out)

	if *themes == "" {
		return
	}
	table, err := theme.LoadFile(filepath.Join(*out, *themes))
	if err != nil {
		log.Error("load theme table", "error", err)
		os.Exit(1)
	}
	done, err := schematic.Reprocess(ctx, *out, table, log)
	if err != nil {
		log.Error("reprocess room library", "error", err)
		os.Exit(1)
	}
	log.Info("room library ready", "path", *out, "rooms", len(done), "themes", len(table.Themes()))
}

func mustGetwd(log *slog.Logger) string {
	wd, err := os.Getwd()
	if err != nil {
		log.Error("working directory", "error", err)
		os.Exit(1)
	}
	return wd
}
