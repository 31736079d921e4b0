package reconcile

import (
	"context"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/andresuchdata/stockrecon/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func loggerOrDefault(l *zerolog.Logger) zerolog.Logger {
	if l != nil {
		return *l
	}
	return logger.Log
}

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Keywords         Keywords
	Predicate        MarketplacePredicate
	SyntheticName    string
	TurnoverDecimals int
	Classification   ClassifierOptions
	Store            SnapshotStore
	SnapshotTTL      time.Duration
	Clock            Clock
	Logger           *zerolog.Logger
}

// Input is one reconciliation pass over already decoded feeds.
type Input struct {
	Tenant              string
	Live                LiveRemains
	Orders              []domain.OrderRecord
	Totals              []domain.TotalsRecord
	ForceClassification bool
}

// RawInput is Input before decoding; each feed is a sequence of
// dictionary-shaped rows.
type RawInput struct {
	Tenant              string
	Remains             interface{}
	RemainsErr          error
	RemainsSkipped      bool
	Orders              interface{}
	Totals              interface{}
	ForceClassification bool
}

// Result is the outcome of a pass.
type Result struct {
	RunID         string
	Tenant        string
	Quality       domain.DataQuality
	Products      []*domain.ProductAggregate
	Excluded      []domain.ProductKey
	Stats         domain.ReconciliationStats
	Discrepancies []domain.Discrepancy
	Reasons       []string
	FetchedAt     time.Time
	SnapshotAge   time.Duration
	Mapping       Mapping
	Outcomes      map[RouteOutcome]int
	// Reclassified is true when this pass rebuilt the warehouse mapping.
	Reclassified bool
}

// Degraded reports whether per-warehouse detail in r is not live.
func (r *Result) Degraded() bool {
	return r.Quality != domain.QualityRealDetailed
}

// Engine ties the reconciliation components together. It is safe for
// concurrent use; every pass owns its product map.
type Engine struct {
	filter        *RecordFilter
	classifiers   *ClassifierRegistry
	resolver      *SourcePriorityResolver
	turnover      *TurnoverCalculator
	aggregator    *WarehouseAggregator
	decoder       *Decoder
	syntheticName string
	log           zerolog.Logger
}

// NewEngine creates an engine from opts.
func NewEngine(opts Options) *Engine {
	l := loggerOrDefault(opts.Logger)
	if len(opts.Keywords.Marketplace) == 0 && len(opts.Keywords.StatusLabels) == 0 && len(opts.Keywords.StatusSubstrings) == 0 {
		opts.Keywords = DefaultKeywords()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Classification.Clock == nil {
		opts.Classification.Clock = opts.Clock
	}
	if opts.Classification.Logger == nil {
		opts.Classification.Logger = &l
	}
	if opts.SyntheticName == "" {
		opts.SyntheticName = DefaultSyntheticWarehouse
	}

	tc := NewTurnoverCalculator(opts.TurnoverDecimals, &l)
	return &Engine{
		filter:        NewRecordFilter(opts.Keywords, opts.Predicate),
		classifiers:   NewClassifierRegistry(opts.Classification),
		resolver:      NewSourcePriorityResolver(opts.Store, opts.SnapshotTTL, opts.Clock, &l),
		turnover:      tc,
		aggregator:    NewWarehouseAggregator(tc),
		decoder:       NewDecoder(&l),
		syntheticName: opts.SyntheticName,
		log:           l.With().Str("component", "engine").Logger(),
	}
}

// Filter exposes the engine's record filter.
func (e *Engine) Filter() *RecordFilter {
	return e.filter
}

// Classifier returns the tenant's warehouse classifier.
func (e *Engine) Classifier(tenant string) *WarehouseClassifier {
	return e.classifiers.For(tenant)
}

// RunRaw decodes raw feeds and runs a pass. It fails only when a feed is
// not a sequence of rows.
func (e *Engine) RunRaw(ctx context.Context, raw RawInput) (*Result, error) {
	remains, skippedRemains, err := e.decoder.Remains(raw.Remains)
	if err != nil {
		return nil, err
	}
	orders, skippedOrders, err := e.decoder.Orders(raw.Orders)
	if err != nil {
		return nil, err
	}
	totals, skippedTotals, err := e.decoder.Totals(raw.Totals)
	if err != nil {
		return nil, err
	}

	res, err := e.Run(ctx, Input{
		Tenant:              raw.Tenant,
		Live:                LiveRemains{Records: remains, Err: raw.RemainsErr, Skipped: raw.RemainsSkipped},
		Orders:              orders,
		Totals:              totals,
		ForceClassification: raw.ForceClassification,
	})
	if err != nil {
		return nil, err
	}
	res.Stats.SkippedRows += skippedRemains + skippedOrders + skippedTotals
	return res, nil
}

// Run executes one reconciliation pass.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()

	res := e.resolver.Resolve(ctx, in.Tenant, in.Live, in.Totals)

	classifier := e.classifiers.For(in.Tenant)
	mapping, rebuilt := classifier.Refresh(in.Orders, in.ForceClassification)

	grouper := NewProductGrouper(e.filter, classifier, e.turnover, e.syntheticName, &e.log)
	g := grouper.Group(Sources{
		Remains: res.Remains,
		Orders:  in.Orders,
		Totals:  res.Totals,
	})

	out := &Result{
		RunID:        uuid.NewString(),
		Tenant:       in.Tenant,
		Quality:      res.Quality,
		Products:     g.Products,
		Excluded:     g.Excluded,
		Stats:        g.Stats,
		Reasons:      res.Reasons,
		FetchedAt:    res.FetchedAt,
		SnapshotAge:  res.SnapshotAge,
		Mapping:      mapping,
		Outcomes:     g.Outcomes,
		Reclassified: rebuilt,
	}
	if res.Quality != domain.QualityTotalsOnly {
		out.Discrepancies = e.discrepancies(g.Products, in.Totals)
	}

	e.log.Info().
		Str("run_id", out.RunID).
		Str("tenant", in.Tenant).
		Str("quality", string(out.Quality)).
		Int("products", len(out.Products)).
		Int("excluded", len(out.Excluded)).
		Int("duplicates", out.Stats.DuplicateOrders).
		Int("unmatched", out.Stats.UnmatchedOrders).
		Int("discrepancies", len(out.Discrepancies)).
		Dur("duration", time.Since(started)).
		Msg("reconciliation completed")
	return out, nil
}

// Warehouses rolls products up into per-warehouse performance.
func (e *Engine) Warehouses(products []*domain.ProductAggregate) []domain.WarehousePerformance {
	return e.aggregator.Performance(e.aggregator.Aggregate(products))
}

// discrepancies compares computed totals with independently reported ones.
// Both values are kept; nothing is corrected.
func (e *Engine) discrepancies(products []*domain.ProductAggregate, totals []domain.TotalsRecord) []domain.Discrepancy {
	if len(totals) == 0 {
		return nil
	}
	byKey := make(map[domain.ProductKey]*domain.ProductAggregate, len(products))
	for _, p := range products {
		byKey[p.Key()] = p
	}

	var out []domain.Discrepancy
	for _, t := range totals {
		p, ok := byKey[t.Key]
		if !ok {
			continue
		}
		if t.Stock >= 0 && t.Stock != p.TotalStock {
			out = append(out, domain.Discrepancy{Key: t.Key, Field: "stock", Computed: p.TotalStock, Reported: t.Stock})
		}
		if t.Orders != nil && *t.Orders >= 0 && *t.Orders != p.TotalOrders {
			out = append(out, domain.Discrepancy{Key: t.Key, Field: "orders", Computed: p.TotalOrders, Reported: *t.Orders})
		}
	}
	for _, d := range out {
		e.log.Warn().
			Str("product", d.Key.String()).
			Str("field", d.Field).
			Int("computed", d.Computed).
			Int("reported", d.Reported).
			Msg("computed total disagrees with reported total")
	}
	return out
}
