// Package health provides liveness, readiness and version endpoints.
//
// # Endpoints
//
//   - liveness: the process is running
//   - readiness: every registered component check passes
//   - version: build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("journal", func(ctx context.Context) error {
//	    _, err := store.Count(ctx, journal.Filter{Limit: 1})
//	    return err
//	})
//
//	r.Get("/healthz", checker.LivenessHandler())
//	r.Get("/readyz", checker.ReadinessHandler())
//	r.Get("/version", health.VersionHandler("1.0.0", "abc123", "2026-10-01"))
//
// # Readiness
//
// Each check runs as an asynchronous condition leaf bounded by the check
// timeout, so a hung dependency is reported as "health check timeout"
// instead of blocking the probe. Checks run concurrently and every result
// is reported; readiness is "degraded" (503) when any check fails.
package health
