package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/conditional/pkg/config"
)

// InvocationMetrics tracks node invocations.
//
// Metrics:
//   - conditional_engine_invocations_total: invocations by node and outcome
//   - conditional_engine_invocation_duration_seconds: invocation duration by node
//   - conditional_engine_cancellations_total: invocations abandoned by a short-circuit
//   - conditional_engine_invocations_in_flight: invocations started and not finished
type InvocationMetrics struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	cancellationsTotal *prometheus.CounterVec
	inFlight           prometheus.Gauge
}

// NewInvocationMetrics creates and registers invocation metrics.
func NewInvocationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *InvocationMetrics {
	im := &InvocationMetrics{
		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "invocations_total",
				Help:      "Total number of condition invocations",
			},
			[]string{"node", "outcome"},
		),

		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of condition invocations in seconds, including delay",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"node"},
		),

		cancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cancellations_total",
				Help:      "Total number of invocations cancelled before producing a result",
			},
			[]string{"node"},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "invocations_in_flight",
				Help:      "Number of condition invocations currently running",
			},
		),
	}

	registry.MustRegister(
		im.invocationsTotal,
		im.invocationDuration,
		im.cancellationsTotal,
		im.inFlight,
	)

	return im
}

// RecordInvocation records a finished invocation.
func (im *InvocationMetrics) RecordInvocation(node, outcome string, duration time.Duration) {
	im.inFlight.Dec()
	im.invocationsTotal.WithLabelValues(node, outcome).Inc()
	im.invocationDuration.WithLabelValues(node).Observe(duration.Seconds())
	if outcome == "cancelled" {
		im.cancellationsTotal.WithLabelValues(node).Inc()
	}
}
