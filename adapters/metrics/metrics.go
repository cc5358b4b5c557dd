// Package metrics provides Prometheus metrics collection for the metering
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the engine.
type Collector struct {
	// Decision metrics
	DecisionsTotal   *prometheus.CounterVec
	EvaluateDuration prometheus.Histogram

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheSweeps *prometheus.CounterVec

	// Collaborator metrics
	LedgerErrors prometheus.Counter
	StoreErrors  *prometheus.CounterVec

	// Write path metrics
	UsageRecorded      prometheus.Counter
	CacheInvalidations prometheus.Counter
}

// New creates a new metrics collector with all metrics registered.
func New() *Collector {
	return &Collector{
		DecisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "decisions_total",
				Help:      "Evaluation decisions by outcome and reason",
			},
			[]string{"allowed", "reason"},
		),
		EvaluateDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "creditmeter",
				Name:      "evaluate_duration_seconds",
				Help:      "End-to-end evaluation latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "cache_hits_total",
				Help:      "Cache hits by cache name",
			},
			[]string{"cache"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "cache_misses_total",
				Help:      "Cache misses by cache name",
			},
			[]string{"cache"},
		),
		CacheSweeps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "cache_sweep_evictions_total",
				Help:      "Entries evicted by the periodic sweep, by cache name",
			},
			[]string{"cache"},
		),
		LedgerErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "ledger_errors_total",
				Help:      "Credit ledger lookups that failed (and failed open)",
			},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "store_errors_total",
				Help:      "Store operations that failed, by store",
			},
			[]string{"store"},
		),
		UsageRecorded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "usage_events_recorded_total",
				Help:      "Usage events written",
			},
		),
		CacheInvalidations: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "creditmeter",
				Name:      "cache_invalidations_total",
				Help:      "Explicit per-user snapshot invalidations",
			},
		),
	}
}
