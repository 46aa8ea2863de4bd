package limits

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"mercator-hq/conditional/pkg/limits/ratelimit"
	"mercator-hq/conditional/pkg/security/auth"
	"mercator-hq/conditional/pkg/telemetry/logging"
)

// IdentifyFunc names the client a request is counted against.
type IdentifyFunc func(*http.Request) string

// ClientOrAddr uses the authenticated client name, falling back to the
// remote host.
func ClientOrAddr(r *http.Request) string {
	if name, ok := auth.ClientFromContext(r.Context()); ok {
		return "key:" + name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithIdentify replaces ClientOrAddr.
func WithIdentify(fn IdentifyFunc) MiddlewareOption {
	return func(m *Middleware) { m.identify = fn }
}

// WithRejectHook is called with the client and limit of every rejection.
func WithRejectHook(fn func(client, limit string)) MiddlewareOption {
	return func(m *Middleware) { m.onReject = fn }
}

// Middleware answers 429 to clients over their limits.
type Middleware struct {
	manager  *Manager
	identify IdentifyFunc
	onReject func(client, limit string)
	logger   *slog.Logger
}

// NewMiddleware creates the middleware.
func NewMiddleware(manager *Manager, logger *slog.Logger, opts ...MiddlewareOption) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{
		manager:  manager,
		identify: ClientOrAddr,
		logger:   logger.With("component", "limits"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle wraps next.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := m.identify(r)
		release, result := m.manager.Acquire(client)
		defer release()

		if result.Capacity > 0 {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(result.Capacity, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		}
		if result.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		m.logger.WarnContext(r.Context(), "request throttled",
			"client", client,
			"limit", string(result.Limit),
			"retry_after", result.RetryAfter,
			"request_id", logging.GetRequestID(r.Context()),
		)
		if m.onReject != nil {
			m.onReject(client, string(result.Limit))
		}
		tooManyRequests(w, result)
	})
}

func tooManyRequests(w http.ResponseWriter, result ratelimit.CheckResult) {
	seconds := int64(math.Ceil(result.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"type": "rate_limited", "message": result.Reason},
	})
}
