package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/conditional/pkg/config"
	"mercator-hq/conditional/pkg/telemetry/logging"
)

// Source is one place a key may be presented.
type Source struct {
	Type   string // header or query
	Name   string
	Scheme string
}

// SourcesFromConfig converts configured sources.
func SourcesFromConfig(cfg []config.KeySourceConfig) []Source {
	sources := make([]Source, 0, len(cfg))
	for _, s := range cfg {
		sources = append(sources, Source{Type: s.Type, Name: s.Name, Scheme: s.Scheme})
	}
	return sources
}

// Middleware rejects requests without a valid key with 401.
type Middleware struct {
	validator *Validator
	sources   []Source
	logger    *slog.Logger
}

// NewMiddleware creates the middleware. Empty sources default to the
// configured defaults.
func NewMiddleware(validator *Validator, sources []Source, logger *slog.Logger) *Middleware {
	if len(sources) == 0 {
		sources = SourcesFromConfig(config.DefaultKeySources())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		validator: validator,
		sources:   sources,
		logger:    logger.With("component", "auth"),
	}
}

// Handle wraps next.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := m.validator.Validate(m.extract(r))
		if err != nil {
			m.logger.WarnContext(r.Context(), "request rejected",
				"error", err,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
				"request_id", logging.GetRequestID(r.Context()),
			)
			unauthorized(w, err)
			return
		}

		m.logger.DebugContext(r.Context(), "request authenticated",
			"client", key.Name,
			"path", r.URL.Path,
		)
		next.ServeHTTP(w, r.WithContext(WithClient(r.Context(), key.Name)))
	})
}

// extract returns the first key found, or "".
func (m *Middleware) extract(r *http.Request) string {
	for _, src := range m.sources {
		var value string
		switch src.Type {
		case "header":
			value = r.Header.Get(src.Name)
		case "query":
			value = r.URL.Query().Get(src.Name)
		}
		if value == "" {
			continue
		}
		if src.Scheme == "" {
			return value
		}
		if prefix := src.Scheme + " "; len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
			return value[len(prefix):]
		}
	}
	return ""
}

func unauthorized(w http.ResponseWriter, err error) {
	message := "invalid API key"
	if errors.Is(err, ErrMissingKey) {
		message = "missing API key"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="conditional"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"type": "unauthorized", "message": message},
	})
}

type clientKey struct{}

// WithClient stores the authenticated client name on ctx.
func WithClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey{}, name)
}

// ClientFromContext returns the authenticated client name.
func ClientFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientKey{}).(string)
	return name, ok
}
