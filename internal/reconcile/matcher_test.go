package reconcile

import (
	"testing"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher() *OrderMatcher {
	return NewOrderMatcher(NewRecordFilter(DefaultKeywords(), nil), nil)
}

func productWithStock(k domain.ProductKey, stock map[string]int, names ...string) *domain.ProductAggregate {
	p := domain.NewProductAggregate(k)
	for _, n := range names {
		b, _ := p.EnsureBucket(n, domain.FulfillmentUnknown)
		p.AddStock(b, stock[n])
	}
	return p
}

func TestOrderMatcher_RouteTiers(t *testing.T) {
	k := key("A", 1)
	p := productWithStock(k, map[string]int{"Коледино": 10, "Санкт Петербург Шушары": 5}, "Коледино", "Санкт Петербург Шушары")
	m := newTestMatcher()

	assert.Equal(t, RouteExact, m.Route(p, order(k, " КОЛЕДИНО", "1", 2)))
	assert.Equal(t, RouteMarketplace, m.Route(p, domain.OrderRecord{Key: k, Warehouse: "Мой склад", Type: domain.FulfillmentFBS, OrderID: "2"}))
	assert.Equal(t, RoutePartial, m.Route(p, order(k, "Шушары", "3", 1)))
	assert.Equal(t, RouteUnmatched, m.Route(p, order(k, "Казань", "4", 3)))
	assert.Equal(t, RouteDuplicate, m.Route(p, order(k, "Коледино", "1", 2)))

	kol, _ := p.Bucket("Коледино")
	assert.Equal(t, 2, kol.Orders)
	mine, ok := p.Bucket("Мой Склад")
	require.True(t, ok)
	assert.True(t, mine.IsFBS)
	assert.Equal(t, domain.FulfillmentFBS, mine.Type)
	assert.Equal(t, 1, mine.Orders, "missing quantity defaults to 1")
	spb, _ := p.Bucket("Санкт Петербург Шушары")
	assert.Equal(t, 1, spb.Orders)

	assert.Equal(t, 3, m.Pending(k))
	assert.Equal(t, 1, m.Duplicates())
	assert.Equal(t, 1, m.Outcomes()[RouteUnmatched])
}

func TestOrderMatcher_PartialPicksFirstBucket(t *testing.T) {
	k := key("A", 1)
	p := productWithStock(k, nil, "Казань Север", "Казань Юг")
	m := newTestMatcher()

	require.Equal(t, RoutePartial, m.Route(p, order(k, "Казань", "", 1)))

	first, _ := p.Bucket("Казань Север")
	second, _ := p.Bucket("Казань Юг")
	assert.Equal(t, 1, first.Orders)
	assert.Equal(t, 0, second.Orders)
}

func TestOrderMatcher_EmptyIDsAreNotDeduplicated(t *testing.T) {
	k := key("A", 1)
	p := productWithStock(k, map[string]int{"Тула": 1}, "Тула")
	m := newTestMatcher()

	m.Route(p, order(k, "Тула", "", 1))
	m.Route(p, order(k, "Тула", "  ", 1))

	assert.Equal(t, 2, p.TotalOrders)
	assert.Equal(t, 0, m.Duplicates())
}

func TestOrderMatcher_MarketplaceFlagIsSticky(t *testing.T) {
	k := key("A", 1)
	p := productWithStock(k, map[string]int{"Склад Продавца": 3}, "Склад Продавца")
	m := newTestMatcher()

	m.Route(p, domain.OrderRecord{Key: k, Warehouse: "склад продавца", OrderID: "1"})
	m.Route(p, domain.OrderRecord{Key: k, Warehouse: "склад продавца", Type: domain.FulfillmentFBO, OrderID: "2"})

	b, _ := p.Bucket("Склад Продавца")
	assert.True(t, b.IsFBS)
	assert.Equal(t, domain.FulfillmentFBS, b.Type)
}

func TestOrderMatcher_ResolveProportional(t *testing.T) {
	k := key("C", 3)
	p := productWithStock(k, map[string]int{"Коледино": 80, "Тула": 20}, "Коледино", "Тула")
	m := newTestMatcher()
	for i := 0; i < 10; i++ {
		m.Route(p, order(k, "Неизвестный", "", 1))
	}

	n := m.Resolve(p)

	assert.Equal(t, 10, n)
	kol, _ := p.Bucket("Коледино")
	tula, _ := p.Bucket("Тула")
	assert.Equal(t, 8, kol.Orders)
	assert.Equal(t, 2, tula.Orders)
	assert.Equal(t, 10, p.TotalOrders)
	assert.True(t, p.Distributed)
	assert.Equal(t, 10, p.UnmatchedOrders)
	assert.Equal(t, 0, m.Pending(k))
	assert.Equal(t, 0, m.Resolve(p), "a pool resolves once")
}

func TestOrderMatcher_ResolveRemainderToLargest(t *testing.T) {
	k := key("D", 4)
	p := productWithStock(k, map[string]int{"Тула": 1, "Коледино": 1, "Казань": 1}, "Тула", "Коледино", "Казань")
	m := newTestMatcher()
	m.Route(p, order(k, "Новосибирск", "", 5))

	m.Resolve(p)

	tula, _ := p.Bucket("Тула")
	kol, _ := p.Bucket("Коледино")
	kzn, _ := p.Bucket("Казань")
	assert.Equal(t, 3, tula.Orders, "remainder goes to the first of the largest")
	assert.Equal(t, 1, kol.Orders)
	assert.Equal(t, 1, kzn.Orders)
}

func TestOrderMatcher_ResolveWithoutStock(t *testing.T) {
	k := key("E", 5)
	p := productWithStock(k, nil, "Тула", "Коледино", "Казань")
	m := newTestMatcher()
	m.Route(p, order(k, "Новосибирск", "", 5))

	m.Resolve(p)

	got := []int{p.Buckets[0].Orders, p.Buckets[1].Orders, p.Buckets[2].Orders}
	assert.Equal(t, []int{2, 2, 1}, got)
	assert.Equal(t, 5, p.TotalOrders)
}

func TestOrderMatcher_ResolveWithoutBuckets(t *testing.T) {
	k := key("F", 6)
	p := domain.NewProductAggregate(k)
	m := NewOrderMatcher(NewRecordFilter(DefaultKeywords(), nil), func(name string) domain.FulfillmentType {
		if name == "Коледино" {
			return domain.FulfillmentFBO
		}
		return domain.FulfillmentUnknown
	})
	m.Route(p, order(k, "Коледино", "", 2))
	m.Route(p, order(k, "Тула", "", 1))
	m.Route(p, order(k, "коледино", "", 1))

	n := m.Resolve(p)

	require.Len(t, p.Buckets, 2)
	assert.Equal(t, 4, n)
	assert.Equal(t, "Коледино", p.Buckets[0].Name)
	assert.Equal(t, 3, p.Buckets[0].Orders)
	assert.Equal(t, domain.FulfillmentFBO, p.Buckets[0].Type)
	assert.Equal(t, 1, p.Buckets[1].Orders)
	assert.NoError(t, p.Validate())
}

func TestDistributeConservesTotal(t *testing.T) {
	stocks := [][]int{
		{7, 3, 1},
		{1, 1, 1, 1, 1, 1, 1},
		{0, 0, 9},
		{0, 0},
		{13, 29, 0, 58},
	}
	for _, s := range stocks {
		for total := 1; total <= 50; total++ {
			p := domain.NewProductAggregate(key("G", 7))
			for i, st := range s {
				b, _ := p.EnsureBucket(string(rune('a'+i))+"x", domain.FulfillmentUnknown)
				p.AddStock(b, st)
			}

			distribute(p, total)

			assert.Equal(t, total, p.TotalOrders, "stocks %v total %d", s, total)
			assert.NoError(t, p.Validate())
		}
	}
}
