package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/conditional/pkg/config"
)

// RunMetrics tracks top-level evaluations.
//
// Metrics:
//   - conditional_engine_runs_total: evaluations by definition and result
//   - conditional_engine_run_duration_seconds: evaluation duration by definition
//   - conditional_engine_runs_pruned_total: journal runs deleted by retention
//   - conditional_engine_requests_throttled_total: API requests rejected by client limits
type RunMetrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	prunedTotal    prometheus.Counter
	throttledTotal *prometheus.CounterVec
}

// NewRunMetrics creates and registers run metrics.
func NewRunMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of top-level evaluations",
			},
			[]string{"definition", "result"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of top-level evaluations in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"definition"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_pruned_total",
				Help:      "Total number of journal runs deleted by retention",
			},
		),

		throttledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_throttled_total",
				Help:      "Total number of API requests rejected by per-client limits",
			},
			[]string{"client", "limit"},
		),
	}

	registry.MustRegister(rm.runsTotal, rm.runDuration, rm.prunedTotal, rm.throttledTotal)

	return rm
}

// RecordRun records one evaluation.
func (rm *RunMetrics) RecordRun(definition, result string, duration time.Duration) {
	rm.runsTotal.WithLabelValues(definition, result).Inc()
	rm.runDuration.WithLabelValues(definition).Observe(duration.Seconds())
}
