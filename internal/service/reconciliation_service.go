package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockrecon/internal/cache"
	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/andresuchdata/stockrecon/internal/metrics"
	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/andresuchdata/stockrecon/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ReconciliationService struct {
	engine  *reconcile.Engine
	cache   cache.SnapshotCache
	repo    repository.ReconciliationRepository
	runs    repository.RunRepository
	metrics *metrics.Registry
	now     func() time.Time
}

// NewReconciliationService wires the engine to its optional collaborators.
// repo, runs and reg may be nil.
func NewReconciliationService(
	engine *reconcile.Engine,
	cacheImpl cache.SnapshotCache,
	repo repository.ReconciliationRepository,
	runs repository.RunRepository,
	reg *metrics.Registry,
) *ReconciliationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSnapshotCache()
	}
	return &ReconciliationService{
		engine:  engine,
		cache:   cacheImpl,
		repo:    repo,
		runs:    runs,
		metrics: reg,
		now:     time.Now,
	}
}

func (s *ReconciliationService) Engine() *reconcile.Engine { return s.engine }

// Reconcile runs one pass over a loaded snapshot.
func (s *ReconciliationService) Reconcile(ctx context.Context, snap *feed.Snapshot, force bool) (*reconcile.Result, error) {
	started := s.now()
	res, err := s.engine.RunRaw(ctx, snap.RawInput(force))
	if err != nil {
		s.metrics.ObserveFailure()
		return nil, fmt.Errorf("reconcile %s/%s: %w", snap.Tenant, snap.Name(), err)
	}
	s.metrics.ObserveResult(res, s.now().Sub(started))

	if res.Degraded() {
		log.Warn().
			Str("tenant", snap.Tenant).
			Str("snapshot", snap.Name()).
			Str("quality", string(res.Quality)).
			Strs("reasons", res.Reasons).
			Msg("reconciliation: degraded data quality")
	}
	return res, nil
}

// StartRun records a processing run for a snapshot. Without a run
// repository the record is kept in memory only.
func (s *ReconciliationService) StartRun(ctx context.Context, tenant string, snapshotDate time.Time) (*domain.SyncRun, error) {
	run := &domain.SyncRun{
		Tenant:       tenant,
		SnapshotDate: snapshotDate,
		Status:       domain.RunStatusProcessing,
		StartedAt:    s.now(),
	}
	if s.runs == nil {
		return run, nil
	}
	if err := s.runs.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun completes run from the pass outcome.
func (s *ReconciliationService) FinishRun(ctx context.Context, run *domain.SyncRun, res *reconcile.Result, runErr error) error {
	completed := s.now()
	run.CompletedAt = &completed
	if res != nil {
		if run.ID == "" {
			run.ID = res.RunID
		}
		run.Quality = res.Quality
		run.Products = len(res.Products)
		run.Duplicates = res.Stats.DuplicateOrders
		run.Unmatched = res.Stats.UnmatchedOrders
	}
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = domain.RunStatusCompleted
		run.ErrorMessage = ""
	}

	if s.runs == nil {
		return nil
	}
	return s.runs.UpdateRun(ctx, run)
}

// Persist stores the reconciled products of run.
func (s *ReconciliationService) Persist(ctx context.Context, run *domain.SyncRun, res *reconcile.Result) error {
	if s.repo == nil {
		return fmt.Errorf("persistence is not configured")
	}
	if run.Quality == "" {
		run.Quality = res.Quality
	}
	if err := s.repo.SaveResult(ctx, run, res.Products); err != nil {
		return fmt.Errorf("persist %s: %w", run.Tenant, err)
	}
	log.Info().
		Str("tenant", run.Tenant).
		Str("run_id", run.ID).
		Int("products", len(res.Products)).
		Msg("reconciliation: result persisted")
	return nil
}

// Snapshot reads back the persisted products and warehouse rows of one
// tenant snapshot.
func (s *ReconciliationService) Snapshot(ctx context.Context, tenant string, snapshotDate time.Time) (*domain.PersistedSnapshot, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}

	out := &domain.PersistedSnapshot{Tenant: tenant, SnapshotDate: snapshotDate}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.repo.GetProducts(gctx, tenant, snapshotDate)
		if err != nil {
			return fmt.Errorf("load products of %s: %w", tenant, err)
		}
		out.Products = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.GetWarehouseRows(gctx, tenant, snapshotDate)
		if err != nil {
			return fmt.Errorf("load warehouses of %s: %w", tenant, err)
		}
		out.Warehouses = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReconciliationService) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.SyncRun, error) {
	if s.runs == nil {
		return make([]domain.SyncRun, 0), nil
	}
	return s.runs.ListRuns(ctx, filter)
}

// InvalidateSnapshot drops the cached detailed remains of a tenant.
func (s *ReconciliationService) InvalidateSnapshot(ctx context.Context, tenant string) error {
	if err := s.cache.Invalidate(ctx, tenant); err != nil {
		log.Warn().Err(err).Str("tenant", tenant).Msg("reconciliation: cache invalidate failed")
		return err
	}
	s.engine.Classifier(tenant).Invalidate()
	return nil
}
