package reconcile

import (
	"sync"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultClassificationTTL = 24 * time.Hour
	DefaultLookback          = 30 * 24 * time.Hour
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Mapping is a built warehouse → fulfillment type classification.
type Mapping struct {
	Types     map[string]domain.FulfillmentType
	Counts    map[domain.FulfillmentType]int
	Conflicts int
	BuiltAt   time.Time
}

// Len returns the number of classified warehouses.
func (m Mapping) Len() int {
	return len(m.Types)
}

func (m Mapping) clone() Mapping {
	out := Mapping{
		Types:     make(map[string]domain.FulfillmentType, len(m.Types)),
		Counts:    make(map[domain.FulfillmentType]int, len(m.Counts)),
		Conflicts: m.Conflicts,
		BuiltAt:   m.BuiltAt,
	}
	for k, v := range m.Types {
		out.Types[k] = v
	}
	for k, v := range m.Counts {
		out.Counts[k] = v
	}
	return out
}

// ClassifierOptions configures a WarehouseClassifier
type ClassifierOptions struct {
	TTL      time.Duration
	Lookback time.Duration
	Clock    Clock
	Logger   *zerolog.Logger
}

// WarehouseClassifier derives warehouse fulfillment types from tagged orders
// and caches the result for a TTL. Reads are concurrent; rebuilds are
// serialized.
type WarehouseClassifier struct {
	mu       sync.RWMutex
	mapping  Mapping
	ttl      time.Duration
	lookback time.Duration
	now      Clock
	group    singleflight.Group
	log      zerolog.Logger
}

// NewWarehouseClassifier creates an empty classifier.
func NewWarehouseClassifier(opts ClassifierOptions) *WarehouseClassifier {
	if opts.TTL <= 0 {
		opts.TTL = DefaultClassificationTTL
	}
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &WarehouseClassifier{
		ttl:      opts.TTL,
		lookback: opts.Lookback,
		now:      opts.Clock,
		log:      loggerOrDefault(opts.Logger).With().Str("component", "classifier").Logger(),
	}
}

// Build classifies warehouses from orders inside the lookback window without
// touching the cache. The window ends at the newest dated order, so replaying
// an old snapshot sees the same orders it saw when it was fresh. The first
// explicit tag seen for a name wins.
func (c *WarehouseClassifier) Build(orders []domain.OrderRecord) Mapping {
	now := c.now()
	since := windowEnd(orders, now).Add(-c.lookback)

	m := Mapping{
		Types:   make(map[string]domain.FulfillmentType),
		Counts:  make(map[domain.FulfillmentType]int),
		BuiltAt: now,
	}
	for _, o := range orders {
		if o.Type != domain.FulfillmentFBO && o.Type != domain.FulfillmentFBS {
			continue
		}
		if !o.Date.IsZero() && o.Date.Before(since) {
			continue
		}
		name := CanonicalName(o.Warehouse)
		if name == "" {
			continue
		}
		if prev, ok := m.Types[name]; ok {
			if prev != o.Type {
				m.Conflicts++
			}
			continue
		}
		m.Types[name] = o.Type
		m.Counts[o.Type]++
	}
	return m
}

// windowEnd returns the newest order date, or fallback when no order is dated.
func windowEnd(orders []domain.OrderRecord, fallback time.Time) time.Time {
	var newest time.Time
	for _, o := range orders {
		if o.Date.After(newest) {
			newest = o.Date
		}
	}
	if newest.IsZero() {
		return fallback
	}
	return newest
}

// Refresh rebuilds the cached mapping from orders unless it is non-empty and
// younger than the TTL. force always rebuilds. It reports whether a rebuild
// happened.
func (c *WarehouseClassifier) Refresh(orders []domain.OrderRecord, force bool) (Mapping, bool) {
	if !force && c.Fresh() {
		return c.Mapping(), false
	}

	v, _, _ := c.group.Do("rebuild", func() (interface{}, error) {
		m := c.Build(orders)

		c.mu.Lock()
		c.mapping = m
		c.mu.Unlock()

		c.log.Info().
			Int("warehouses", m.Len()).
			Int("fbo", m.Counts[domain.FulfillmentFBO]).
			Int("fbs", m.Counts[domain.FulfillmentFBS]).
			Int("conflicts", m.Conflicts).
			Msg("warehouse classification rebuilt")
		return m.clone(), nil
	})
	return v.(Mapping), true
}

// Fresh reports whether the cached mapping can be reused.
func (c *WarehouseClassifier) Fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.mapping.Len() == 0 {
		return false
	}
	return c.now().Sub(c.mapping.BuiltAt) < c.ttl
}

// Classify returns the cached type for a warehouse, Unknown when absent.
func (c *WarehouseClassifier) Classify(name string) domain.FulfillmentType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.mapping.Types[CanonicalName(name)]; ok {
		return t
	}
	return domain.FulfillmentUnknown
}

// Mapping returns a copy of the cached mapping.
func (c *WarehouseClassifier) Mapping() Mapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mapping.clone()
}

// Invalidate drops the cached mapping.
func (c *WarehouseClassifier) Invalidate() {
	c.mu.Lock()
	c.mapping = Mapping{}
	c.mu.Unlock()
}

// ClassifierRegistry hands out one classifier per tenant.
type ClassifierRegistry struct {
	mu    sync.Mutex
	opts  ClassifierOptions
	items map[string]*WarehouseClassifier
}

func NewClassifierRegistry(opts ClassifierOptions) *ClassifierRegistry {
	return &ClassifierRegistry{opts: opts, items: make(map[string]*WarehouseClassifier)}
}

// For returns the tenant's classifier, creating it on first use.
func (r *ClassifierRegistry) For(tenant string) *WarehouseClassifier {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[tenant]
	if !ok {
		c = NewWarehouseClassifier(r.opts)
		r.items[tenant] = c
	}
	return c
}
