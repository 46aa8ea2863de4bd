package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"mercator-hq/conditional/pkg/config"
)

var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets through a chain of providers.
type Manager struct {
	providers []Provider
	cache     *Cache
	logger    *slog.Logger
}

// NewManager creates a manager trying providers in order.
func NewManager(providers []Provider, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		providers: providers,
		cache:     NewCache(ttl),
		logger:    logger.With("component", "secrets"),
	}
}

// NewFromConfig builds the file provider (when cfg.Dir is set) followed by
// the environment provider.
func NewFromConfig(cfg *config.SecretsConfig, logger *slog.Logger) (*Manager, error) {
	var providers []Provider
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))
	return NewManager(providers, cfg.CacheTTL, logger), nil
}

// GetSecret returns the first value a provider has for name. Errors other
// than ErrNotFound stop the lookup.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	for _, p := range m.providers {
		value, err := p.GetSecret(ctx, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%s provider: %w", p.Name(), err)
		}
		m.cache.Set(name, value)
		m.logger.Debug("secret resolved", "name", redact(name), "provider", p.Name())
		return value, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Resolve replaces every ${secret:name} in input. Unresolvable references
// are left in place and reported together.
func (m *Manager) Resolve(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${secret:") {
		return input, nil
	}

	var failures []string
	out := refPattern.ReplaceAllStringFunc(input, func(ref string) string {
		name := refPattern.FindStringSubmatch(ref)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			failures = append(failures, err.Error())
			return ref
		}
		return value
	})
	if len(failures) > 0 {
		return out, fmt.Errorf("resolve secrets: %s", strings.Join(failures, "; "))
	}
	return out, nil
}

// ResolveFields resolves each field in place. Every field is attempted
// before the joined error is returned.
func (m *Manager) ResolveFields(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for label, field := range fields {
		if field == nil {
			continue
		}
		value, err := m.Resolve(ctx, *field)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", label, err))
			continue
		}
		*field = value
	}
	return errors.Join(errs...)
}

// Refresh clears the cache.
func (m *Manager) Refresh() {
	m.cache.Clear()
}

// redact keeps the ends of a secret name for logs.
func redact(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
