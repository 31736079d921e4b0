package main

import (
	"fmt"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/storage"
	"github.com/urfave/cli/v2"
)

func pullFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Object key prefix holding <tenant>/<YYYYMMDD>/ feed files",
			Value:   "feeds",
			EnvVars: []string{"STORAGE_FEEDS_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Local directory the feeds are mirrored into",
			EnvVars: []string{"APP_DATA_DIR"},
		},
	}
}

func pullFeeds(c *cli.Context) error {
	cfg := config.Load()
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("object storage: %w", err)
	}

	paths, err := storage.DownloadFeeds(c.Context, store, c.String("prefix"), stringOr(c, "data-dir", cfg.App.DataDir))
	if err != nil {
		return err
	}
	fmt.Printf("downloaded %d feed files\n", len(paths))
	return nil
}
