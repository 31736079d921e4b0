package metrics

import (
	"time"

	"github.com/andresuchdata/stockrecon/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus"
)

type Registry struct {
	reg              *prometheus.Registry
	Runs             *prometheus.CounterVec
	FailedRuns       prometheus.Counter
	DuplicateOrders  prometheus.Counter
	UnmatchedOrders  prometheus.Counter
	SkippedRows      prometheus.Counter
	PseudoRows       prometheus.Counter
	ExcludedProducts prometheus.Counter
	Discrepancies    prometheus.Counter
	Products         *prometheus.GaugeVec
	SnapshotAgeSec   *prometheus.GaugeVec
	RunDurationSec   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "stockrecon_runs_total"}, []string{"quality"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_runs_failed_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_duplicate_orders_total"})
	unmatched := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_unmatched_orders_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_skipped_rows_total"})
	pseudo := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_pseudo_rows_total"})
	excluded := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_excluded_products_total"})
	discrepancies := prometheus.NewCounter(prometheus.CounterOpts{Name: "stockrecon_discrepancies_total"})
	products := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "stockrecon_products"}, []string{"tenant"})
	snapshotAge := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "stockrecon_snapshot_age_seconds"}, []string{"tenant"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockrecon_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(runs, failed, duplicates, unmatched, skipped, pseudo, excluded, discrepancies, products, snapshotAge, duration)
	return &Registry{
		reg:              r,
		Runs:             runs,
		FailedRuns:       failed,
		DuplicateOrders:  duplicates,
		UnmatchedOrders:  unmatched,
		SkippedRows:      skipped,
		PseudoRows:       pseudo,
		ExcludedProducts: excluded,
		Discrepancies:    discrepancies,
		Products:         products,
		SnapshotAgeSec:   snapshotAge,
		RunDurationSec:   duration,
	}
}

// ObserveResult records a completed pass.
func (r *Registry) ObserveResult(res *reconcile.Result, took time.Duration) {
	if r == nil || res == nil {
		return
	}
	r.Runs.WithLabelValues(string(res.Quality)).Inc()
	r.DuplicateOrders.Add(float64(res.Stats.DuplicateOrders))
	r.UnmatchedOrders.Add(float64(res.Stats.UnmatchedOrders))
	r.SkippedRows.Add(float64(res.Stats.SkippedRows))
	r.PseudoRows.Add(float64(res.Stats.PseudoRows))
	r.ExcludedProducts.Add(float64(res.Stats.ExcludedProducts))
	r.Discrepancies.Add(float64(len(res.Discrepancies)))
	r.Products.WithLabelValues(res.Tenant).Set(float64(len(res.Products)))
	r.SnapshotAgeSec.WithLabelValues(res.Tenant).Set(res.SnapshotAge.Seconds())
	r.RunDurationSec.Observe(took.Seconds())
}

// ObserveFailure records a pass that did not produce a result.
func (r *Registry) ObserveFailure() {
	if r == nil {
		return
	}
	r.FailedRuns.Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the registry for the node-exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
