package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/andresuchdata/stockrecon/internal/metrics"
	"github.com/andresuchdata/stockrecon/internal/service"
	"github.com/andresuchdata/stockrecon/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Job reconciles a set of snapshot directories.
type Job struct {
	cfg      JobConfig
	loader   *feed.Loader
	svc      *service.ReconciliationService
	exporter *Exporter
	store    storage.ObjectStorage
	metrics  *metrics.Registry
}

// NewJob creates a job. store and reg may be nil; Archive then fails each
// snapshot that requests it.
func NewJob(cfg JobConfig, loader *feed.Loader, svc *service.ReconciliationService, store storage.ObjectStorage, reg *metrics.Registry) *Job {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if loader == nil {
		loader = feed.NewLoader(nil)
	}
	return &Job{
		cfg:      cfg,
		loader:   loader,
		svc:      svc,
		exporter: NewExporter(cfg.OutputDir),
		store:    store,
		metrics:  reg,
	}
}

// Run processes dirs with at most cfg.Workers in flight. A failing snapshot
// does not stop the others; the returned error joins every failure.
// Outcomes are in dirs order.
func (j *Job) Run(ctx context.Context, dirs []string) ([]SnapshotOutcome, error) {
	outcomes := make([]SnapshotOutcome, len(dirs))
	if len(dirs) == 0 {
		return outcomes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.cfg.Workers)

	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			outcomes[i] = j.processSnapshot(gctx, dir)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	completed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Dir, o.Err))
			continue
		}
		completed++
	}

	log.Info().
		Int("snapshots", len(dirs)).
		Int("completed", completed).
		Int("failed", len(errs)).
		Msg("sync job finished")

	if j.cfg.MetricsTextfile != "" && j.metrics != nil {
		if err := j.metrics.WriteTextfile(j.cfg.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}

	return outcomes, errors.Join(errs...)
}

// processSnapshot runs load, reconcile, export, persist and archive for dir.
func (j *Job) processSnapshot(ctx context.Context, dir string) SnapshotOutcome {
	started := time.Now()
	out := SnapshotOutcome{Dir: dir, Status: domain.RunStatusProcessing}

	tenant, date, err := feed.ParseSnapshotDir(dir)
	if err != nil {
		out.Status = domain.RunStatusFailed
		out.Err = err
		return out
	}
	out.Tenant, out.Date = tenant, date

	logger := log.With().Str("tenant", tenant).Str("snapshot", date.Format(feed.SnapshotDateLayout)).Logger()

	run, err := j.svc.StartRun(ctx, tenant, date)
	if err != nil {
		out.Status = domain.RunStatusFailed
		out.Err = fmt.Errorf("start run: %w", err)
		logger.Error().Err(out.Err).Msg("snapshot failed")
		return out
	}

	processErr := j.reconcileSnapshot(ctx, dir, run, &out, logger)
	if err := j.svc.FinishRun(ctx, run, nil, processErr); err != nil {
		logger.Warn().Err(err).Msg("failed to record sync run")
	}

	out.RunID = run.ID
	out.Status = run.Status
	out.Duration = time.Since(started)
	out.Err = processErr

	if processErr != nil {
		logger.Error().Err(processErr).Dur("took", out.Duration).Msg("snapshot failed")
	} else {
		logger.Info().
			Str("quality", string(out.Quality)).
			Int("products", out.Products).
			Dur("took", out.Duration).
			Msg("snapshot reconciled")
	}
	return out
}

func (j *Job) reconcileSnapshot(ctx context.Context, dir string, run *domain.SyncRun, out *SnapshotOutcome, logger zerolog.Logger) error {
	snap, err := j.loader.Load(dir)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	res, err := j.svc.Reconcile(ctx, snap, j.cfg.ForceClassification)
	if err != nil {
		return err
	}
	run.Quality = res.Quality
	run.Products = len(res.Products)
	run.Duplicates = res.Stats.DuplicateOrders
	run.Unmatched = res.Stats.UnmatchedOrders
	if run.ID == "" {
		run.ID = res.RunID
	}
	out.Quality = res.Quality
	out.Products = len(res.Products)

	perf := j.svc.Engine().Warehouses(res.Products)
	files, err := j.exporter.Export(snap.Tenant, snap.Name(), res, perf)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	out.Files = files

	if j.cfg.Persist {
		if err := j.svc.Persist(ctx, run, res); err != nil {
			return err
		}
		out.Persisted = true
	}

	if j.cfg.Archive {
		if j.store == nil {
			return fmt.Errorf("archive requested but object storage is not configured")
		}
		prefix := storage.ObjectKey(j.cfg.ArchivePrefix, snap.Tenant)
		keys, err := storage.UploadFiles(ctx, j.store, prefix, files...)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		out.Archived = keys
		logger.Debug().Strs("keys", keys).Msg("exports archived")
	}

	return nil
}
