package definition

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"mercator-hq/conditional/pkg/condition"
)

// Factory creates a predicate function from its decoded YAML arguments.
// Factories should reject bad arguments so Validate can report them.
type Factory func(args map[string]any) (condition.Func, error)

// Registry maps predicate names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	now       func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock sets the clock used by time-based predicates.
func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = clock
	}
}

// NewRegistry returns a registry holding the built-in predicates.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerBuiltins()
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("predicate name is required")
	}
	if factory == nil {
		return fmt.Errorf("predicate %q: factory is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return nil
}

// Create builds the predicate name with args.
func (r *Registry) Create(name string, args map[string]any) (condition.Func, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPredicate, name)
	}

	fn, err := factory(args)
	if err != nil {
		return nil, fmt.Errorf("predicate %q: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered predicate names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeArgs decodes predicate arguments into out, a pointer to a struct
// with mapstructure tags. Unknown keys are an error and strings convert
// to durations.
func DecodeArgs(args map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}
