package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/runner"
)

// DefaultMaxNodeLabels caps the distinct node label values.
const DefaultMaxNodeLabels = 1000

// DefaultMaxClientLabels caps the distinct client label values.
const DefaultMaxClientLabels = 100

// otherLabel replaces node names beyond the cardinality cap.
const otherLabel = "other"

// Collector owns the registry and every metric of the engine. It implements
// condition.Observer and runner.PoolObserver.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	invocationMetrics *InvocationMetrics
	runMetrics        *RunMetrics
	poolMetrics       *PoolMetrics

	nodeLimiter   *CardinalityLimiter
	clientLimiter *CardinalityLimiter
}

var (
	_ condition.Observer  = (*Collector)(nil)
	_ runner.PoolObserver = (*Collector)(nil)
)

// NewCollector creates a collector. If registry is nil a new one is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "conditional",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:            cfg,
		registry:          registry,
		invocationMetrics: NewInvocationMetrics(cfg, registry),
		runMetrics:        NewRunMetrics(cfg, registry),
		poolMetrics:       NewPoolMetrics(cfg, registry),
		nodeLimiter:       NewCardinalityLimiter(DefaultMaxNodeLabels),
		clientLimiter:     NewCardinalityLimiter(DefaultMaxClientLabels),
	}
}

// ConditionStarted tracks an invocation in flight.
func (c *Collector) ConditionStarted(ctx context.Context, entry condition.LogEntry) {
	if !c.config.Enabled {
		return
	}
	c.invocationMetrics.inFlight.Inc()
}

// ConditionFinished records the outcome and duration of an invocation.
func (c *Collector) ConditionFinished(ctx context.Context, entry condition.LogEntry) {
	if !c.config.Enabled {
		return
	}

	node := entry.Condition
	if !c.nodeLimiter.Allow(node) {
		node = otherLabel
	}
	c.invocationMetrics.RecordInvocation(node, string(entry.Outcome), entry.Duration)
}

// ObservePool updates the gauges of a pool.
func (c *Collector) ObservePool(stats runner.PoolStats) {
	if !c.config.Enabled {
		return
	}
	c.poolMetrics.Update(stats)
}

// RecordRun records a top-level evaluation of a definition.
//
// Parameters:
//   - definition: definition name
//   - result: "true", "false", "failed" or "timeout"
//   - duration: wall time of the evaluation
func (c *Collector) RecordRun(definition, result string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.RecordRun(definition, result, duration)
}

// RecordPruned records runs deleted by the journal pruner.
func (c *Collector) RecordPruned(count int64) {
	if !c.config.Enabled || count <= 0 {
		return
	}
	c.runMetrics.prunedTotal.Add(float64(count))
}

// RecordThrottled records an API request rejected by a per-client limit.
func (c *Collector) RecordThrottled(client, limit string) {
	if !c.config.Enabled {
		return
	}
	if !c.clientLimiter.Allow(client) {
		client = otherLabel
	}
	c.runMetrics.throttledTotal.WithLabelValues(client, limit).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the given maximum.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether label is already tracked or still fits under the
// limit, tracking it in the latter case.
func (cl *CardinalityLimiter) Allow(label string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[label]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[label]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[label] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
