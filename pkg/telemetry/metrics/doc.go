// Package metrics provides Prometheus metrics for condition evaluation.
//
// # Overview
//
// The Collector records three families of metrics:
//
//   - Invocation metrics: one sample per node invocation, labelled with the
//     node name and its outcome, fed by condition.Observer callbacks
//   - Run metrics: top-level evaluations per definition, plus journal pruning
//   - Pool metrics: queue depth and busy workers of each runner.Pool, fed by
//     runner.PoolObserver callbacks
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	pool := runner.NewPool(runner.PoolConfig{Name: "io"}, runner.WithPoolObserver(collector))
//	rc := condition.NewRunContext(condition.WithObserver(collector))
//
//	http.Handle("/metrics", collector.Handler())
//
// # Prometheus Endpoint
//
// Metrics are exposed in the Prometheus exposition format:
//
//	# HELP conditional_engine_invocations_total Total number of condition invocations
//	# TYPE conditional_engine_invocations_total counter
//	conditional_engine_invocations_total{node="isAdmin",outcome="true"} 42
//
// # Cardinality Management
//
// Node names come from aliases and rendered trees, so the collector caps the
// number of distinct node labels. Names beyond the cap are recorded as "other".
package metrics
