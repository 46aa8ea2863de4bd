package runner

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Registry holds named runners so definitions can pin conditions to a pool
// by name.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]TaskRunner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]TaskRunner),
	}
}

// Register adds a runner under name, replacing any previous entry.
func (r *Registry) Register(name string, runner TaskRunner) error {
	if name == "" {
		return fmt.Errorf("runner name cannot be empty")
	}
	if runner == nil {
		return fmt.Errorf("runner %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[name] = runner
	return nil
}

// Get returns the runner registered under name.
func (r *Registry) Get(name string) (TaskRunner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runner, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunnerNotFound, name)
	}
	return runner, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered runner that implements io.Closer.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, runner := range r.runners {
		if closer, ok := runner.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close runner %q: %w", name, err))
			}
		}
	}
	r.runners = make(map[string]TaskRunner)
	return errors.Join(errs...)
}
