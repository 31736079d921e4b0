package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresuchdata/stockrecon/internal/cache"
	"github.com/andresuchdata/stockrecon/internal/config"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/andresuchdata/stockrecon/internal/metrics"
	"github.com/andresuchdata/stockrecon/internal/pipeline"
	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/andresuchdata/stockrecon/internal/repository"
	"github.com/andresuchdata/stockrecon/internal/repository/postgres"
	"github.com/andresuchdata/stockrecon/internal/service"
	"github.com/andresuchdata/stockrecon/internal/storage"
	"github.com/andresuchdata/stockrecon/pkg/logger"
	"github.com/urfave/cli/v2"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Root directory of <tenant>/<YYYYMMDD> snapshot directories",
			EnvVars: []string{"APP_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "tenant",
			Usage:   "Only reconcile this tenant's snapshots",
			EnvVars: []string{"RECONCILE_TENANT"},
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Usage:   "Directory for CSV exports",
			EnvVars: []string{"APP_OUTPUT_DIR"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "Number of snapshots reconciled concurrently",
			EnvVars: []string{"APP_WORKERS"},
		},
		&cli.BoolFlag{
			Name:    "persist",
			Usage:   "Save reconciled products and sync runs to the database",
			EnvVars: []string{"RECONCILE_PERSIST"},
		},
		&cli.BoolFlag{
			Name:    "archive",
			Usage:   "Upload exports to object storage",
			EnvVars: []string{"STORAGE_ENABLED"},
		},
		&cli.BoolFlag{
			Name:    "force-classification",
			Usage:   "Rebuild warehouse classification even when it is fresh",
			EnvVars: []string{"RECONCILE_FORCE_CLASSIFICATION"},
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "Write Prometheus metrics to this file after the run",
			EnvVars: []string{"METRICS_TEXTFILE"},
		},
	}
}

// components holds what a command built from configuration.
type components struct {
	svc     *service.ReconciliationService
	metrics *metrics.Registry
	db      *postgres.DB
}

func (c *components) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

func buildComponents(ctx context.Context, cfg *config.Config, withDB bool) (*components, error) {
	snapshots, err := cache.NewSnapshotCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("snapshot cache unavailable, continuing without it")
		snapshots = cache.NewNoopSnapshotCache()
	}

	opts := cfg.Reconcile.Options()
	opts.Store = snapshots
	opts.SnapshotTTL = cfg.Cache.SnapshotTTL()
	engine := reconcile.NewEngine(opts)

	out := &components{metrics: metrics.NewRegistry()}

	var (
		repo repository.ReconciliationRepository
		runs repository.RunRepository
	)
	if withDB {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		out.db = db
		repo = postgres.NewReconciliationRepository(db)
		runs = postgres.NewRunRepository(db)
	}

	out.svc = service.NewReconciliationService(engine, snapshots, repo, runs, out.metrics)
	return out, nil
}

func runSync(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	dataDir := stringOr(c, "data-dir", cfg.App.DataDir)
	jobCfg := pipeline.DefaultJobConfig()
	jobCfg.OutputDir = stringOr(c, "output-dir", cfg.App.OutputDir)
	jobCfg.Workers = cfg.App.Workers
	if c.IsSet("workers") {
		jobCfg.Workers = c.Int("workers")
	}
	jobCfg.Persist = c.Bool("persist")
	jobCfg.Archive = c.Bool("archive")
	jobCfg.ForceClassification = c.Bool("force-classification")
	jobCfg.MetricsTextfile = stringOr(c, "metrics-textfile", cfg.Metrics.TextfilePath)
	if cfg.Storage.Prefix != "" {
		jobCfg.ArchivePrefix = cfg.Storage.Prefix
	}

	loader := feed.NewLoader(nil)
	dirs, err := loader.Discover(dataDir, c.String("tenant"))
	if err != nil {
		return err
	}
	if len(dirs) == 0 {
		logger.Log.Warn().Str("data_dir", dataDir).Msg("no snapshot directories found")
		return nil
	}

	comps, err := buildComponents(ctx, cfg, jobCfg.Persist)
	if err != nil {
		return err
	}
	defer comps.Close()

	var archive storage.ObjectStorage
	if jobCfg.Archive {
		if archive, err = storage.New(cfg.Storage); err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
	}

	job := pipeline.NewJob(jobCfg, loader, comps.svc, archive, comps.metrics)
	outcomes, runErr := job.Run(ctx, dirs)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tSNAPSHOT\tSTATUS\tQUALITY\tPRODUCTS\tERROR")
	for _, o := range outcomes {
		errMsg := ""
		if o.Err != nil {
			errMsg = o.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			o.Tenant, o.Date.Format(feed.SnapshotDateLayout), o.Status, o.Quality, o.Products, errMsg)
	}
	w.Flush()

	return runErr
}

func stringOr(c *cli.Context, name, fallback string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return fallback
}
