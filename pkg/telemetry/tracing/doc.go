// Package tracing exports condition evaluations as OpenTelemetry traces.
//
// # Overview
//
// A Tracer owns the SDK TracerProvider and an OTLP gRPC exporter. Its
// Observer implements condition.Observer: every invocation becomes a span
// parented on the invocation that dispatched it, so a trace mirrors the
// evaluated tree. Root invocations are parented on whatever span the
// evaluation context carries, which for the HTTP server is the request
// span started by Middleware.
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//
// When tracing is disabled New returns a Tracer backed by a noop provider
// and its Observer records nothing.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	svc, err := service.New(cfg, logger, service.WithObserver(tracer.Observer()))
//
// Spans are keyed by the run ID carried on the context (logging.WithRunID),
// which service.Service sets for every evaluation.
package tracing
