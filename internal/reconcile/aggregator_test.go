package reconcile

import (
	"testing"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aggregatedProducts() []*domain.ProductAggregate {
	a := domain.NewProductAggregate(key("A", 1))
	b1, _ := a.EnsureBucket("Коледино", domain.FulfillmentFBO)
	a.AddStock(b1, 10)
	a.AddOrders(b1, 20)
	b2, _ := a.EnsureBucket("Склад Продавца", domain.FulfillmentFBS)
	a.AddStock(b2, 5)
	a.AddOrders(b2, 5)

	b := domain.NewProductAggregate(key("B", 2))
	b3, _ := b.EnsureBucket("Коледино", domain.FulfillmentUnknown)
	b.AddStock(b3, 30)
	b.AddOrders(b3, 10)
	b4, _ := b.EnsureBucket("Тула", domain.FulfillmentUnknown)
	b.AddStock(b4, 5)
	b.AddOrders(b4, 5)
	return []*domain.ProductAggregate{a, b}
}

func TestWarehouseAggregator_Aggregate(t *testing.T) {
	products := aggregatedProducts()
	agg := NewWarehouseAggregator(nil)

	r := agg.Aggregate(append(products, nil))

	require.Len(t, r.Warehouses, 3)
	assert.Equal(t, "Коледино", r.Warehouses[0].Name)
	assert.Equal(t, "Склад Продавца", r.Warehouses[1].Name)
	assert.Equal(t, "Тула", r.Warehouses[2].Name)

	kol, ok := r.Get("Коледино")
	require.True(t, ok)
	assert.Equal(t, 40, kol.Stock)
	assert.Equal(t, 30, kol.Orders)
	assert.Equal(t, 2, kol.ProductCount)
	assert.Equal(t, domain.FulfillmentFBO, kol.Type)

	seller, _ := r.Get("Склад Продавца")
	assert.True(t, seller.IsFBS)

	_, ok = r.Get("Омск")
	assert.False(t, ok)

	assert.Equal(t, 10, products[0].Buckets[0].Stock, "inputs are not mutated")
	assert.Equal(t, 35, products[1].TotalStock)
}

func TestWarehouseAggregator_Performance(t *testing.T) {
	agg := NewWarehouseAggregator(nil)
	perf := agg.Performance(agg.Aggregate(aggregatedProducts()))

	require.Len(t, perf, 3)
	kol := perf[0]
	assert.Equal(t, 0.75, kol.Turnover)
	assert.Equal(t, domain.TurnoverLow, kol.Category)
	assert.Equal(t, 20.0, kol.AvgStock)
	assert.Equal(t, 15.0, kol.AvgOrders)
	assert.Equal(t, 80.0, kol.StockSharePct)
	assert.Equal(t, 75.0, kol.OrdersSharePct)

	tula := perf[2]
	assert.Equal(t, 1.0, tula.Turnover)
	assert.Equal(t, domain.TurnoverMedium, tula.Category)

	assert.Nil(t, agg.Performance(nil))
}

func TestTopN(t *testing.T) {
	perf := []domain.WarehousePerformance{
		{WarehouseTotals: domain.WarehouseTotals{Name: "a", Orders: 5}},
		{WarehouseTotals: domain.WarehouseTotals{Name: "b", Orders: 9}},
		{WarehouseTotals: domain.WarehouseTotals{Name: "c", Orders: 5}},
		{WarehouseTotals: domain.WarehouseTotals{Name: "d", Orders: 1}},
	}

	top := TopN(perf, MetricOrders, 3)

	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Name)
	assert.Equal(t, "a", top[1].Name, "ties keep input order")
	assert.Equal(t, "c", top[2].Name)
	assert.Equal(t, "a", perf[0].Name, "input is not reordered")

	assert.Len(t, TopN(perf, MetricOrders, 10), 4)
	assert.Nil(t, TopN(perf, MetricOrders, 0))
	assert.Nil(t, TopN(nil, MetricOrders, 3))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Turnover ")
	require.NoError(t, err)
	assert.Equal(t, MetricTurnover, m)

	_, err = ParseMetric("revenue")
	assert.Error(t, err)
}
