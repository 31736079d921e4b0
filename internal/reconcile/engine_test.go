package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(store SnapshotStore, clock *fakeClock) *Engine {
	return NewEngine(Options{
		Store:       store,
		SnapshotTTL: time.Hour,
		Clock:       clock.Now,
		Classification: ClassifierOptions{
			TTL:      time.Hour,
			Lookback: 7 * 24 * time.Hour,
		},
		Logger: &nopLogger,
	})
}

func TestEngine_RunRealDetailed(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	e := newTestEngine(store, clock)
	k := key("A", 1)

	res, err := e.Run(context.Background(), Input{
		Tenant: "shop",
		Live: LiveRemains{Records: []domain.RemainsRecord{
			remains(k, "Коледино", 10),
			remains(k, "Склад продавца", 4),
		}},
		Orders: []domain.OrderRecord{
			{Key: k, Warehouse: "Коледино", Type: domain.FulfillmentFBO, OrderID: "1", Quantity: 2, Date: clock.Now()},
			{Key: k, Warehouse: "Коледино", Type: domain.FulfillmentFBO, OrderID: "1", Quantity: 2, Date: clock.Now()},
			{Key: k, Warehouse: "Склад продавца", OrderID: "2", Quantity: 1, Date: clock.Now()},
		},
		Totals: []domain.TotalsRecord{{Key: k, Stock: 20, Orders: intPtr(3)}},
	})

	require.NoError(t, err)
	_, err = uuid.Parse(res.RunID)
	assert.NoError(t, err)
	assert.Equal(t, "shop", res.Tenant)
	assert.Equal(t, domain.QualityRealDetailed, res.Quality)
	assert.False(t, res.Degraded())
	assert.True(t, res.Reclassified)
	assert.Equal(t, 1, res.Mapping.Len())
	assert.Equal(t, 1, res.Stats.DuplicateOrders)

	require.Len(t, res.Products, 1)
	p := res.Products[0]
	assert.Equal(t, 14, p.TotalStock)
	assert.Equal(t, 3, p.TotalOrders)
	kol, _ := p.Bucket("Коледино")
	assert.Equal(t, domain.FulfillmentFBO, kol.Type)
	assert.True(t, p.HasFBS())

	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, domain.Discrepancy{Key: k, Field: "stock", Computed: 14, Reported: 20}, res.Discrepancies[0])
	assert.Contains(t, store.snapshots, "shop")
}

func TestEngine_DegradesToCacheThenTotals(t *testing.T) {
	clock := newFakeClock()
	store := newFakeStore()
	e := newTestEngine(store, clock)
	k := key("A", 1)
	totals := []domain.TotalsRecord{{Key: k, Stock: 8, Orders: intPtr(2)}}

	_, err := e.Run(context.Background(), Input{
		Tenant: "shop",
		Live:   LiveRemains{Records: []domain.RemainsRecord{remains(k, "Тула", 8)}},
	})
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	res, err := e.Run(context.Background(), Input{
		Tenant: "shop",
		Live:   LiveRemains{Err: errors.New("503")},
		Totals: totals,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QualityCachedDetailed, res.Quality)
	assert.Equal(t, 30*time.Minute, res.SnapshotAge)
	assert.NotEmpty(t, res.Reasons)
	_, ok := res.Products[0].Bucket("Тула")
	assert.True(t, ok)

	clock.Advance(2 * time.Hour)
	res, err = e.Run(context.Background(), Input{
		Tenant: "shop",
		Live:   LiveRemains{Skipped: true},
		Totals: totals,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QualityTotalsOnly, res.Quality)
	require.Len(t, res.Products, 1)
	require.Len(t, res.Products[0].Buckets, 1)
	assert.Equal(t, DefaultSyntheticWarehouse, res.Products[0].Buckets[0].Name)
	assert.Equal(t, 8, res.Products[0].TotalStock)
	assert.Equal(t, 2, res.Products[0].TotalOrders)
	assert.Empty(t, res.Discrepancies, "totals are not checked against themselves")
}

func TestEngine_ForceClassification(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(nil, clock)
	k := key("A", 1)
	in := Input{
		Tenant: "shop",
		Orders: []domain.OrderRecord{{Key: k, Warehouse: "Коледино", Type: domain.FulfillmentFBO, Date: clock.Now()}},
	}

	first, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, first.Reclassified)

	second, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, second.Reclassified)

	in.ForceClassification = true
	third, err := e.Run(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, third.Reclassified)
	assert.Equal(t, domain.FulfillmentFBO, e.Classifier("shop").Classify("коледино"))
}

func TestEngine_RunRaw(t *testing.T) {
	clock := newFakeClock()
	e := newTestEngine(nil, clock)

	res, err := e.RunRaw(context.Background(), RawInput{
		Tenant: "shop",
		Remains: []interface{}{
			map[string]interface{}{"supplierArticle": "A", "nmId": 1, "warehouseName": "City X", "quantity": 100},
			map[string]interface{}{"supplierArticle": "A"},
		},
		Orders: []interface{}{
			map[string]interface{}{"supplierArticle": "A", "nmId": 1, "warehouseName": "City X", "srid": "o1"},
			map[string]interface{}{"supplierArticle": "A", "nmId": 1, "warehouseName": "City X", "srid": "o1"},
		},
	})

	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, 1, res.Products[0].TotalOrders)
	assert.Equal(t, 1, res.Stats.SkippedRows)

	_, err = e.RunRaw(context.Background(), RawInput{Orders: "nope"})
	assert.ErrorIs(t, err, ErrCalculationFailed)
}

func TestEngine_CancelledContext(t *testing.T) {
	e := newTestEngine(nil, newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, Input{Tenant: "shop"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Warehouses(t *testing.T) {
	e := newTestEngine(nil, newFakeClock())

	perf := e.Warehouses(aggregatedProducts())

	require.Len(t, perf, 3)
	top := TopN(perf, MetricStock, 1)
	assert.Equal(t, "Коледино", top[0].Name)
}
