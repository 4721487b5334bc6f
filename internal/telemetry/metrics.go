package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for reconciliation observability.
type Metrics struct {
	// Lookup phase
	LookupBatches  prometheus.Counter
	SKUsMatched    prometheus.Counter
	SKUsNotFound   prometheus.Counter
	LookupFailures prometheus.Counter

	// Commit phase
	CommitRuns       *prometheus.CounterVec
	CommitDuration   *prometheus.HistogramVec
	GatewayWrites    *prometheus.CounterVec
	CostFallbacks    prometheus.Counter
	Outcomes         *prometheus.CounterVec
	InventorySkipped prometheus.Counter
}

// NewMetrics creates and registers all reconciliation metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sif"
	}

	subsystem := "reconcile"

	return &Metrics{
		LookupBatches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lookup_batches_total",
			Help:      "Total product lookup batches issued to the gateway",
		}),
		SKUsMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skus_matched_total",
			Help:      "Total supplier SKUs matched to a catalog variant",
		}),
		SKUsNotFound: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skus_not_found_total",
			Help:      "Total supplier SKUs with no catalog match",
		}),
		LookupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "lookup_failures_total",
			Help:      "Total lookup batches that failed at the gateway",
		}),
		CommitRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commit_runs_total",
			Help:      "Total commit runs started",
		}, []string{"mode"}), // mode: stock, pricing, pricing_and_stock
		CommitDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commit_run_duration_seconds",
			Help:      "Duration of a full commit run across all progress batches",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		GatewayWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gateway_writes_total",
			Help:      "Total write calls issued to the gateway",
		}, []string{"operation", "result"}), // operation: adjust_inventory, bulk_update, item_cost
		CostFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cost_fallbacks_total",
			Help:      "Total sub-batches that fell back to price-only plus per-item cost writes",
		}),
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "item_outcomes_total",
			Help:      "Total per-item commit outcomes",
		}, []string{"result"}), // result: updated, failed, noop
		InventorySkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "inventory_noop_total",
			Help:      "Total items skipped because their quantity delta was zero",
		}),
	}
}
