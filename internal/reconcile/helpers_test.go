package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/rs/zerolog"
)

var nopLogger = zerolog.Nop()

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeStore struct {
	snapshots map[string]*domain.RemainsSnapshot
	getErr    error
	putErr    error
	puts      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]*domain.RemainsSnapshot)}
}

func (s *fakeStore) Get(_ context.Context, tenant string) (*domain.RemainsSnapshot, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	snap, ok := s.snapshots[tenant]
	return snap, ok, nil
}

func (s *fakeStore) Put(_ context.Context, tenant string, snap *domain.RemainsSnapshot) error {
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.snapshots[tenant] = snap
	return nil
}

func key(article string, nm int64) domain.ProductKey {
	return domain.ProductKey{SupplierArticle: article, NmID: nm}
}

func remains(k domain.ProductKey, warehouse string, qty int) domain.RemainsRecord {
	return domain.RemainsRecord{Key: k, Warehouse: warehouse, Quantity: qty}
}

func order(k domain.ProductKey, warehouse, id string, qty int) domain.OrderRecord {
	return domain.OrderRecord{Key: k, Warehouse: warehouse, OrderID: id, Quantity: qty}
}

func intPtr(v int) *int {
	return &v
}

func newTestGrouper(classifier *WarehouseClassifier) *ProductGrouper {
	return NewProductGrouper(
		NewRecordFilter(DefaultKeywords(), nil),
		classifier,
		NewTurnoverCalculator(DefaultTurnoverDecimals, &nopLogger),
		"",
		&nopLogger,
	)
}

func findProduct(products []*domain.ProductAggregate, k domain.ProductKey) *domain.ProductAggregate {
	for _, p := range products {
		if p.Key() == k {
			return p
		}
	}
	return nil
}

func assertConserved(t interface {
	Errorf(format string, args ...interface{})
}, products []*domain.ProductAggregate) {
	for _, p := range products {
		stock, orders := 0, 0
		for _, b := range p.Buckets {
			stock += b.Stock
			orders += b.Orders
		}
		if stock != p.TotalStock || orders != p.TotalOrders {
			t.Errorf("product %s not conserved: stock %d/%d orders %d/%d", p.Key(), p.TotalStock, stock, p.TotalOrders, orders)
		}
	}
}
