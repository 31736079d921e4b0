package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockrecon/internal/cache"
	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/internal/feed"
	"github.com/andresuchdata/stockrecon/internal/metrics"
	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/andresuchdata/stockrecon/internal/repository"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	saved   []*domain.ProductAggregate
	run     *domain.SyncRun
	err     error
	readErr error
}

func (f *fakeRepo) SaveResult(ctx context.Context, run *domain.SyncRun, products []*domain.ProductAggregate) error {
	f.run, f.saved = run, products
	return f.err
}

func (f *fakeRepo) stored(tenant string, snapshotDate time.Time) bool {
	return f.run != nil && f.run.Tenant == tenant && f.run.SnapshotDate.Equal(snapshotDate)
}

func (f *fakeRepo) GetProducts(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.ProductStockRow, error) {
	if f.readErr != nil || !f.stored(tenant, snapshotDate) {
		return make([]domain.ProductStockRow, 0), f.readErr
	}
	products, _ := repository.BuildRows(f.run, f.saved)
	return products, nil
}

func (f *fakeRepo) GetWarehouseRows(ctx context.Context, tenant string, snapshotDate time.Time) ([]domain.WarehouseStockRow, error) {
	if f.readErr != nil || !f.stored(tenant, snapshotDate) {
		return make([]domain.WarehouseStockRow, 0), f.readErr
	}
	_, warehouses := repository.BuildRows(f.run, f.saved)
	return warehouses, nil
}

type fakeRuns struct {
	created []*domain.SyncRun
	updated []domain.SyncRun
}

func (f *fakeRuns) CreateRun(ctx context.Context, run *domain.SyncRun) error {
	run.ID = "run-1"
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRuns) UpdateRun(ctx context.Context, run *domain.SyncRun) error {
	f.updated = append(f.updated, *run)
	return nil
}

func (f *fakeRuns) GetRun(ctx context.Context, id string) (*domain.SyncRun, error) { return nil, nil }

func (f *fakeRuns) ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.SyncRun, error) {
	out := make([]domain.SyncRun, 0, len(f.updated))
	return append(out, f.updated...), nil
}

var nop = zerolog.Nop()

func newService(t *testing.T, repo *fakeRepo, runs *fakeRuns) (*ReconciliationService, cache.SnapshotCache, *metrics.Registry) {
	t.Helper()
	store := cache.NewMemorySnapshotCache(24*time.Hour, nil)
	engine := reconcile.NewEngine(reconcile.Options{Store: store, Logger: &nop})
	reg := metrics.NewRegistry()
	svc := NewReconciliationService(engine, store, nil, nil, reg)
	if repo != nil {
		svc.repo = repo
	}
	if runs != nil {
		svc.runs = runs
	}
	return svc, store, reg
}

func detailedSnapshot() *feed.Snapshot {
	return &feed.Snapshot{
		Tenant: "shop",
		Date:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Remains: []map[string]interface{}{
			{"supplierArticle": "A", "nmId": 1, "warehouseName": "Коледино", "quantity": 8},
			{"supplierArticle": "A", "nmId": 1, "warehouseName": "Казань", "quantity": 2},
		},
		Orders: []map[string]interface{}{
			{"supplierArticle": "A", "nmId": 1, "warehouseName": "Коледино", "srid": "o1"},
		},
	}
}

func TestReconciliationService_ReconcileAndPersist(t *testing.T) {
	ctx := context.Background()
	repo, runs := &fakeRepo{}, &fakeRuns{}
	svc, store, reg := newService(t, repo, runs)

	snap := detailedSnapshot()
	run, err := svc.StartRun(ctx, snap.Tenant, snap.Date)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, domain.RunStatusProcessing, run.Status)

	res, err := svc.Reconcile(ctx, snap, false)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityRealDetailed, res.Quality)
	require.Len(t, res.Products, 1)
	assert.Equal(t, 10, res.Products[0].TotalStock)

	_, ok, err := store.Get(ctx, "shop")
	require.NoError(t, err)
	assert.True(t, ok, "a good live fetch refreshes the snapshot cache")

	require.NoError(t, svc.Persist(ctx, run, res))
	assert.Len(t, repo.saved, 1)
	assert.Equal(t, domain.QualityRealDetailed, repo.run.Quality)

	require.NoError(t, svc.FinishRun(ctx, run, res, nil))
	require.Len(t, runs.updated, 1)
	assert.Equal(t, domain.RunStatusCompleted, runs.updated[0].Status)
	assert.Equal(t, 1, runs.updated[0].Products)
	assert.NotNil(t, runs.updated[0].CompletedAt)

	listed, err := svc.ListRuns(ctx, domain.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Runs.WithLabelValues(string(domain.QualityRealDetailed))))
}

func TestReconciliationService_Snapshot(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc, _, _ := newService(t, repo, &fakeRuns{})

	snap := detailedSnapshot()
	run, err := svc.StartRun(ctx, snap.Tenant, snap.Date)
	require.NoError(t, err)
	res, err := svc.Reconcile(ctx, snap, false)
	require.NoError(t, err)
	require.NoError(t, svc.Persist(ctx, run, res))

	stored, err := svc.Snapshot(ctx, "shop", snap.Date)
	require.NoError(t, err)
	require.Len(t, stored.Products, 1)
	assert.Equal(t, "A", stored.Products[0].SupplierArticle)
	assert.Equal(t, 10, stored.Products[0].TotalStock)
	assert.Equal(t, 1, stored.Products[0].TotalOrders)
	require.Len(t, stored.Warehouses, 2)
	assert.Equal(t, "Коледино", stored.Warehouses[0].WarehouseName)
	assert.Equal(t, 1, stored.Warehouses[0].Orders)

	other, err := svc.Snapshot(ctx, "shop", snap.Date.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Empty(t, other.Products)
	assert.Empty(t, other.Warehouses)

	repo.readErr = errors.New("connection reset")
	_, err = svc.Snapshot(ctx, "shop", snap.Date)
	assert.ErrorIs(t, err, repo.readErr)
}

func TestReconciliationService_DegradesThroughCache(t *testing.T) {
	ctx := context.Background()
	svc, _, reg := newService(t, nil, nil)

	_, err := svc.Reconcile(ctx, detailedSnapshot(), false)
	require.NoError(t, err)

	failed := detailedSnapshot()
	failed.Remains = nil
	failed.RemainsErr = errors.New("429 Too Many Requests")
	res, err := svc.Reconcile(ctx, failed, false)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityCachedDetailed, res.Quality)
	assert.True(t, res.Degraded())

	require.NoError(t, svc.InvalidateSnapshot(ctx, "shop"))
	res, err = svc.Reconcile(ctx, failed, false)
	require.NoError(t, err)
	assert.Equal(t, domain.QualityTotalsOnly, res.Quality)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Runs.WithLabelValues(string(domain.QualityTotalsOnly))))
}

func TestReconciliationService_FailedRun(t *testing.T) {
	ctx := context.Background()
	runs := &fakeRuns{}
	svc, _, reg := newService(t, nil, runs)

	bad := detailedSnapshot()
	bad.Orders = "not a list"
	_, runErr := svc.Reconcile(ctx, bad, false)
	require.Error(t, runErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FailedRuns))

	run, err := svc.StartRun(ctx, bad.Tenant, bad.Date)
	require.NoError(t, err)
	require.NoError(t, svc.FinishRun(ctx, run, nil, runErr))
	require.Len(t, runs.updated, 1)
	assert.Equal(t, domain.RunStatusFailed, runs.updated[0].Status)
}

func TestReconciliationService_WithoutRepositories(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, nil, nil)

	run, err := svc.StartRun(ctx, "shop", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, run.ID)

	res, err := svc.Reconcile(ctx, detailedSnapshot(), false)
	require.NoError(t, err)
	require.NoError(t, svc.FinishRun(ctx, run, res, nil))
	assert.Equal(t, res.RunID, run.ID)

	assert.Error(t, svc.Persist(ctx, run, res))
	_, err = svc.Snapshot(ctx, "shop", time.Time{})
	assert.Error(t, err)
	runsOut, err := svc.ListRuns(ctx, domain.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runsOut)
}
