// Package limits throttles API requests per client.
//
// Each client, identified by its API key name or else its remote address,
// gets a ratelimit.Limiter combining a token bucket for request rate and a
// cap on concurrent requests. Limiters that sit idle are dropped.
//
//	m := limits.NewManager(&cfg.Server.Limits)
//	mw := limits.NewMiddleware(m, logger, limits.WithRejectHook(collector.RecordThrottled))
//	srv := server.New(&cfg.Server, svc, server.WithLimiter(mw.Handle))
//
// Rejected requests get 429 with a Retry-After header.
package limits
