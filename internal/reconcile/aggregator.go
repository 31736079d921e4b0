package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

// Rollup is an insertion-ordered set of per-warehouse totals.
type Rollup struct {
	Warehouses []*domain.WarehouseTotals
	index      map[string]int
}

// Get returns the totals for a warehouse name.
func (r *Rollup) Get(name string) (*domain.WarehouseTotals, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.Warehouses[i], true
}

// WarehouseAggregator rolls product breakdowns up into warehouse summaries.
type WarehouseAggregator struct {
	turnover *TurnoverCalculator
}

func NewWarehouseAggregator(turnover *TurnoverCalculator) *WarehouseAggregator {
	if turnover == nil {
		turnover = NewTurnoverCalculator(DefaultTurnoverDecimals, nil)
	}
	return &WarehouseAggregator{turnover: turnover}
}

// Aggregate sums stock, orders and product counts per warehouse across
// products. The products are only read.
func (a *WarehouseAggregator) Aggregate(products []*domain.ProductAggregate) *Rollup {
	r := &Rollup{index: make(map[string]int)}
	for _, p := range products {
		if p == nil {
			continue
		}
		for _, b := range p.Buckets {
			i, ok := r.index[b.Name]
			if !ok {
				i = len(r.Warehouses)
				r.index[b.Name] = i
				r.Warehouses = append(r.Warehouses, &domain.WarehouseTotals{
					Name: b.Name,
					Type: domain.FulfillmentUnknown,
				})
			}
			w := r.Warehouses[i]
			w.Stock += b.Stock
			w.Orders += b.Orders
			w.ProductCount++
			if b.IsFBS {
				w.IsFBS = true
			}
			if w.Type == domain.FulfillmentUnknown && b.Type != "" {
				w.Type = b.Type
			}
		}
	}
	return r
}

// Performance derives turnover, category, per-product averages and shares
// for every warehouse of r, in r's order.
func (a *WarehouseAggregator) Performance(r *Rollup) []domain.WarehousePerformance {
	if r == nil {
		return nil
	}
	totalStock, totalOrders := 0, 0
	for _, w := range r.Warehouses {
		totalStock += w.Stock
		totalOrders += w.Orders
	}

	out := make([]domain.WarehousePerformance, 0, len(r.Warehouses))
	for _, w := range r.Warehouses {
		perf := domain.WarehousePerformance{WarehouseTotals: *w}
		perf.Turnover = a.turnover.Turnover(w.Orders, w.Stock)
		perf.Category = Categorize(perf.Turnover)
		if w.ProductCount > 0 {
			perf.AvgStock = roundFloat(float64(w.Stock)/float64(w.ProductCount), 2)
			perf.AvgOrders = roundFloat(float64(w.Orders)/float64(w.ProductCount), 2)
		}
		if totalStock > 0 {
			perf.StockSharePct = roundFloat(float64(w.Stock)*100/float64(totalStock), 2)
		}
		if totalOrders > 0 {
			perf.OrdersSharePct = roundFloat(float64(w.Orders)*100/float64(totalOrders), 2)
		}
		out = append(out, perf)
	}
	return out
}

// Metric selects the field TopN sorts by.
type Metric string

const (
	MetricStock     Metric = "stock"
	MetricOrders    Metric = "orders"
	MetricProducts  Metric = "product_count"
	MetricTurnover  Metric = "turnover"
	MetricAvgStock  Metric = "avg_stock"
	MetricAvgOrders Metric = "avg_orders"
)

// ParseMetric validates a metric name (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case MetricStock, MetricOrders, MetricProducts, MetricTurnover, MetricAvgStock, MetricAvgOrders:
		return m, nil
	}
	return "", fmt.Errorf("unknown warehouse metric %q", s)
}

func (m Metric) value(p domain.WarehousePerformance) float64 {
	switch m {
	case MetricStock:
		return float64(p.Stock)
	case MetricOrders:
		return float64(p.Orders)
	case MetricProducts:
		return float64(p.ProductCount)
	case MetricTurnover:
		return p.Turnover
	case MetricAvgStock:
		return p.AvgStock
	case MetricAvgOrders:
		return p.AvgOrders
	}
	return 0
}

// TopN returns at most n entries sorted descending by metric; equal values
// keep their input order. perf is not modified.
func TopN(perf []domain.WarehousePerformance, metric Metric, n int) []domain.WarehousePerformance {
	if n <= 0 || len(perf) == 0 {
		return nil
	}
	sorted := make([]domain.WarehousePerformance, len(perf))
	copy(sorted, perf)
	sort.SliceStable(sorted, func(i, j int) bool {
		return metric.value(sorted[i]) > metric.value(sorted[j])
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
