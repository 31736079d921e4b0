package reconcile

import (
	"strings"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

// RouteOutcome tells which matching tier an order landed in.
type RouteOutcome int

const (
	RouteExact RouteOutcome = iota
	RouteMarketplace
	RoutePartial
	RouteUnmatched
	RouteDuplicate
)

func (r RouteOutcome) String() string {
	switch r {
	case RouteExact:
		return "exact"
	case RouteMarketplace:
		return "marketplace"
	case RoutePartial:
		return "partial"
	case RouteUnmatched:
		return "unmatched"
	case RouteDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

type pendingName struct {
	name string
	typ  domain.FulfillmentType
	qty  int
}

// unmatchedPool collects orders of one product that matched no bucket.
type unmatchedPool struct {
	total int
	names []pendingName
	index map[string]int
}

func (u *unmatchedPool) add(name string, typ domain.FulfillmentType, qty int) {
	u.total += qty
	if i, ok := u.index[name]; ok {
		u.names[i].qty += qty
		return
	}
	u.index[name] = len(u.names)
	u.names = append(u.names, pendingName{name: name, typ: typ, qty: qty})
}

// OrderMatcher assigns orders to warehouse buckets for one reconciliation
// pass. It is not safe for concurrent use; each pass builds its own.
type OrderMatcher struct {
	filter     *RecordFilter
	classify   func(string) domain.FulfillmentType
	seen       map[string]struct{}
	pools      map[domain.ProductKey]*unmatchedPool
	duplicates int
	outcomes   map[RouteOutcome]int
}

// NewOrderMatcher creates a matcher. classify may be nil.
func NewOrderMatcher(filter *RecordFilter, classify func(string) domain.FulfillmentType) *OrderMatcher {
	if classify == nil {
		classify = func(string) domain.FulfillmentType { return domain.FulfillmentUnknown }
	}
	return &OrderMatcher{
		filter:   filter,
		classify: classify,
		seen:     make(map[string]struct{}),
		pools:    make(map[domain.ProductKey]*unmatchedPool),
		outcomes: make(map[RouteOutcome]int),
	}
}

// Route attaches o to a bucket of p, or parks it in p's unmatched pool.
// An order whose id was already routed in this pass is dropped.
func (m *OrderMatcher) Route(p *domain.ProductAggregate, o domain.OrderRecord) RouteOutcome {
	out := m.route(p, o)
	m.outcomes[out]++
	return out
}

func (m *OrderMatcher) route(p *domain.ProductAggregate, o domain.OrderRecord) RouteOutcome {
	if id := strings.TrimSpace(o.OrderID); id != "" {
		if _, dup := m.seen[id]; dup {
			m.duplicates++
			return RouteDuplicate
		}
		m.seen[id] = struct{}{}
	}

	name := CanonicalName(o.Warehouse)
	qty := o.Qty()
	marketplace := o.Type == domain.FulfillmentFBS || m.filter.IsMarketplace(o.Warehouse)

	// 1. exact
	if b, ok := p.Bucket(name); ok {
		p.AddOrders(b, qty)
		b.Inherit(o.Type)
		if marketplace {
			b.MarkFBS()
		}
		return RouteExact
	}

	// 2. marketplace orders always get a bucket of their own
	if marketplace {
		b, _ := p.EnsureBucket(name, domain.FulfillmentFBS)
		b.MarkFBS()
		p.AddOrders(b, qty)
		return RouteMarketplace
	}

	// 3. partial name match, first bucket in insertion order wins
	if b := partialMatch(p, name); b != nil {
		p.AddOrders(b, qty)
		b.Inherit(o.Type)
		return RoutePartial
	}

	// 4. park for proportional distribution
	pool, ok := m.pools[p.Key()]
	if !ok {
		pool = &unmatchedPool{index: make(map[string]int)}
		m.pools[p.Key()] = pool
	}
	pool.add(name, o.Type, qty)
	return RouteUnmatched
}

func partialMatch(p *domain.ProductAggregate, name string) *domain.WarehouseBucket {
	n := foldName(name)
	if n == "" {
		return nil
	}
	for _, b := range p.Buckets {
		if b.Synthetic {
			continue
		}
		bn := foldName(b.Name)
		if strings.Contains(bn, n) || strings.Contains(n, bn) {
			return b
		}
	}
	return nil
}

// Pending returns the unmatched quantity parked for key.
func (m *OrderMatcher) Pending(key domain.ProductKey) int {
	if pool, ok := m.pools[key]; ok {
		return pool.total
	}
	return 0
}

// Resolve distributes p's unmatched pool over its buckets and returns the
// distributed quantity. Every parked order is placed exactly once.
//
// Buckets with positive stock receive floor(total*stock/sum) each and the
// rounding remainder goes to the largest-stock bucket (first on ties).
// Without positive stock the pool is split evenly, leftovers one per bucket
// from the front. A product without buckets gets one bucket per parked
// warehouse name carrying exactly its own orders.
func (m *OrderMatcher) Resolve(p *domain.ProductAggregate) int {
	pool, ok := m.pools[p.Key()]
	if !ok || pool.total == 0 {
		return 0
	}
	delete(m.pools, p.Key())

	switch {
	case len(p.Buckets) == 0:
		for _, pn := range pool.names {
			typ := pn.typ
			if typ == domain.FulfillmentUnknown || typ == "" {
				typ = m.classify(pn.name)
			}
			b, _ := p.EnsureBucket(pn.name, typ)
			p.AddOrders(b, pn.qty)
		}
	default:
		distribute(p, pool.total)
	}

	p.UnmatchedOrders += pool.total
	p.Distributed = true
	return pool.total
}

func distribute(p *domain.ProductAggregate, total int) {
	var (
		sumStock int64
		largest  *domain.WarehouseBucket
	)
	for _, b := range p.Buckets {
		if b.Stock <= 0 {
			continue
		}
		sumStock += int64(b.Stock)
		if largest == nil || b.Stock > largest.Stock {
			largest = b
		}
	}

	if sumStock > 0 {
		allocated := 0
		for _, b := range p.Buckets {
			if b.Stock <= 0 {
				continue
			}
			share := int(int64(total) * int64(b.Stock) / sumStock)
			p.AddOrders(b, share)
			allocated += share
		}
		p.AddOrders(largest, total-allocated)
		return
	}

	n := len(p.Buckets)
	base, rest := total/n, total%n
	for i, b := range p.Buckets {
		q := base
		if i < rest {
			q++
		}
		p.AddOrders(b, q)
	}
}

// Duplicates returns how many orders were dropped as already seen.
func (m *OrderMatcher) Duplicates() int {
	return m.duplicates
}

// Outcomes returns routing counts per tier.
func (m *OrderMatcher) Outcomes() map[RouteOutcome]int {
	out := make(map[RouteOutcome]int, len(m.outcomes))
	for k, v := range m.outcomes {
		out[k] = v
	}
	return out
}
