package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/runner"
)

// PoolMetrics tracks worker pools.
//
// Metrics:
//   - conditional_engine_pool_workers: configured workers by pool
//   - conditional_engine_pool_queued_tasks: tasks waiting for a worker
//   - conditional_engine_pool_active_workers: workers running a task
type PoolMetrics struct {
	workers *prometheus.GaugeVec
	queued  *prometheus.GaugeVec
	active  *prometheus.GaugeVec
}

// NewPoolMetrics creates and registers pool metrics.
func NewPoolMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PoolMetrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      name,
				Help:      help,
			},
			[]string{"pool"},
		)
	}

	pm := &PoolMetrics{
		workers: gauge("pool_workers", "Number of workers configured per pool"),
		queued:  gauge("pool_queued_tasks", "Number of tasks waiting for a worker"),
		active:  gauge("pool_active_workers", "Number of workers running a task"),
	}

	registry.MustRegister(pm.workers, pm.queued, pm.active)

	return pm
}

// Update sets the gauges from a stats snapshot.
func (pm *PoolMetrics) Update(stats runner.PoolStats) {
	pm.workers.WithLabelValues(stats.Name).Set(float64(stats.Workers))
	pm.queued.WithLabelValues(stats.Name).Set(float64(stats.Queued))
	pm.active.WithLabelValues(stats.Name).Set(float64(stats.Active))
}
