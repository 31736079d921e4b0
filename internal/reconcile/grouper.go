package reconcile

import (
	"fmt"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultSyntheticWarehouse names the single bucket of a totals-only product.
const DefaultSyntheticWarehouse = "Детализация недоступна (detail unavailable)"

// Sources is the input of one grouping pass. Totals seed synthetic buckets
// and are only set when detailed remains are unavailable.
type Sources struct {
	Remains []domain.RemainsRecord
	Orders  []domain.OrderRecord
	Totals  []domain.TotalsRecord
}

// Grouping is the output of one grouping pass.
type Grouping struct {
	Products []*domain.ProductAggregate
	Stats    domain.ReconciliationStats
	Excluded []domain.ProductKey
	Outcomes map[RouteOutcome]int
}

// ProductGrouper folds remains and orders into per-product aggregates.
type ProductGrouper struct {
	filter        *RecordFilter
	classifier    *WarehouseClassifier
	turnover      *TurnoverCalculator
	syntheticName string
	log           zerolog.Logger
}

// NewProductGrouper wires a grouper. classifier may be nil, in which case
// every warehouse is Unknown until an order tags it.
func NewProductGrouper(filter *RecordFilter, classifier *WarehouseClassifier, turnover *TurnoverCalculator, syntheticName string, log *zerolog.Logger) *ProductGrouper {
	if syntheticName == "" {
		syntheticName = DefaultSyntheticWarehouse
	}
	if turnover == nil {
		turnover = NewTurnoverCalculator(DefaultTurnoverDecimals, log)
	}
	return &ProductGrouper{
		filter:        filter,
		classifier:    classifier,
		turnover:      turnover,
		syntheticName: syntheticName,
		log:           loggerOrDefault(log).With().Str("component", "grouper").Logger(),
	}
}

// groupPass holds the per-call state; nothing here outlives Group.
type groupPass struct {
	g        *ProductGrouper
	products map[domain.ProductKey]*domain.ProductAggregate
	order    []domain.ProductKey
	matcher  *OrderMatcher
	stats    domain.ReconciliationStats
}

func (s *groupPass) product(key domain.ProductKey) *domain.ProductAggregate {
	p, ok := s.products[key]
	if !ok {
		p = domain.NewProductAggregate(key)
		s.products[key] = p
		s.order = append(s.order, key)
	}
	return p
}

func (g *ProductGrouper) classify(name string) domain.FulfillmentType {
	if g.classifier == nil {
		return domain.FulfillmentUnknown
	}
	return g.classifier.Classify(name)
}

// Group runs one grouping pass: remains first, then synthetic totals, then
// orders, then per-product finalization.
func (g *ProductGrouper) Group(src Sources) *Grouping {
	s := &groupPass{
		g:        g,
		products: make(map[domain.ProductKey]*domain.ProductAggregate),
		matcher:  NewOrderMatcher(g.filter, g.classify),
	}

	// 1) Remains
	for i, r := range src.Remains {
		s.stats.RemainsRows++
		if !validKey(r.Key) {
			s.stats.SkippedRows++
			g.log.Warn().Int("row", i).Str("warehouse", r.Warehouse).Msg("remains row without product key, skipped")
			continue
		}
		if !g.filter.IsRealWarehouse(r.Warehouse) {
			s.stats.PseudoRows++
			continue
		}
		qty := r.Quantity
		if qty < 0 {
			g.log.Warn().Str("product", r.Key.String()).Str("warehouse", r.Warehouse).Int("quantity", qty).Msg("negative remains quantity, using 0")
			qty = 0
		}

		p := s.product(r.Key)
		name := CanonicalName(r.Warehouse)
		b, _ := p.EnsureBucket(name, g.classify(name))
		if g.filter.IsMarketplace(r.Warehouse) {
			b.MarkFBS()
		}
		p.AddStock(b, qty)
	}

	// 2) Totals-only seeding
	totalsOrders := make(map[domain.ProductKey]int)
	for i, t := range src.Totals {
		if !validKey(t.Key) {
			s.stats.SkippedRows++
			g.log.Warn().Int("row", i).Msg("totals row without product key, skipped")
			continue
		}
		stock := t.Stock
		if stock < 0 {
			stock = 0
		}
		orders := 0
		if t.Orders != nil && *t.Orders > 0 {
			orders = *t.Orders
		}
		p := s.product(t.Key)
		if stock == 0 && orders == 0 {
			continue
		}
		b, _ := p.EnsureBucket(g.syntheticName, domain.FulfillmentUnknown)
		b.Synthetic = true
		p.AddStock(b, stock)
		if orders > 0 {
			totalsOrders[t.Key] += orders
		}
	}

	// 3) Orders
	routed := make(map[domain.ProductKey]bool)
	for i, o := range src.Orders {
		s.stats.OrderRows++
		if !validKey(o.Key) {
			s.stats.SkippedRows++
			g.log.Warn().Int("row", i).Str("order_id", o.OrderID).Msg("order row without product key, skipped")
			continue
		}
		if o.Cancelled {
			s.stats.CancelledOrders++
			continue
		}
		if !g.filter.IsRealWarehouse(o.Warehouse) {
			if o.Type != domain.FulfillmentFBS {
				s.stats.PseudoRows++
				continue
			}
			// Seller-fulfilled orders often carry no usable warehouse name.
			o.Warehouse = domain.FulfillmentLabel(domain.FulfillmentFBS)
		}
		p := s.product(o.Key)
		if s.matcher.Route(p, o) != RouteDuplicate {
			routed[o.Key] = true
		}
	}

	// Totals orders stand in only where the orders feed said nothing.
	for key, n := range totalsOrders {
		if routed[key] {
			continue
		}
		p := s.products[key]
		if b, ok := p.Bucket(g.syntheticName); ok {
			p.AddOrders(b, n)
		}
	}

	// 4) Finalize
	out := &Grouping{Products: make([]*domain.ProductAggregate, 0, len(s.order))}
	for _, key := range s.order {
		p := s.products[key]
		distributed, err := s.finalize(p)
		if err != nil {
			s.stats.ExcludedProducts++
			out.Excluded = append(out.Excluded, key)
			g.log.Error().Err(err).Str("product", key.String()).Msg("product excluded from reconciliation")
			continue
		}
		if distributed > 0 {
			s.stats.UnmatchedOrders += distributed
			s.stats.DistributedProducts++
		}
		out.Products = append(out.Products, p)
	}

	s.stats.DuplicateOrders = s.matcher.Duplicates()
	out.Stats = s.stats
	out.Outcomes = s.matcher.Outcomes()
	return out
}

func (s *groupPass) finalize(p *domain.ProductAggregate) (distributed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("finalize panicked: %v", r)
		}
	}()

	distributed = s.matcher.Resolve(p)
	p.Recalculate()
	p.ApplyTurnover(s.g.turnover.Turnover)
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return distributed, nil
}

func validKey(k domain.ProductKey) bool {
	return k.SupplierArticle != "" || k.NmID != 0
}
