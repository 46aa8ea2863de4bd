// Package telemetry groups the observability subpackages of the engine.
//
// # Components
//
//   - logging: slog construction, context fields and a condition log Observer
//   - metrics: Prometheus collectors for runs, invocations, pools and throttling
//   - tracing: OpenTelemetry spans mirroring the invocation tree
//   - health: liveness and readiness checks backed by condition leaves
//
// Each subpackage is independent. The serve command wires them together:
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//
//	rc := condition.NewRunContext(
//	    condition.WithObserver(logging.NewObserver(logger)),
//	    condition.WithObserver(collector),
//	    condition.WithObserver(tracer.Observer()),
//	)
package telemetry
