package main

import (
	"os"

	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "reconcile",
		Usage: "Reconcile marketplace stock and orders per product and warehouse",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			level := cfg.App.LogLevel
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			logger.SetLevel(level)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Reconcile every snapshot directory under the data directory",
				Flags:  runFlags(),
				Action: runSync,
			},
			{
				Name:   "warehouses",
				Usage:  "Print the top warehouses of one snapshot",
				Flags:  warehousesFlags(),
				Action: runWarehouses,
			},
			{
				Name:   "pull",
				Usage:  "Download snapshot feed files from object storage",
				Flags:  pullFlags(),
				Action: pullFeeds,
			},
			{
				Name:   "runs",
				Usage:  "List recorded sync runs",
				Flags:  runsFlags(),
				Action: listRuns,
			},
			{
				Name:   "show",
				Usage:  "Print the persisted reconciliation of one snapshot",
				Flags:  showFlags(),
				Action: showSnapshot,
			},
			{
				Name:   "migrate",
				Usage:  "Create the reconciliation tables",
				Action: migrate,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("reconcile failed")
	}
}
