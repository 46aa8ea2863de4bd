package condition

import (
	"time"

	"mercator-hq/conditional/pkg/runner"
)

// Attributes control how one invocation of a node runs. They are fixed when
// the invocation starts.
type Attributes struct {
	// Alias is the display name. Empty means the node renders itself.
	Alias string

	// Async dispatches the node through Runner, or the run's default
	// runner when Runner is nil.
	Async bool

	// Runner executes the node when Async is set.
	Runner runner.TaskRunner

	// Delay is waited before the node starts its work.
	Delay time.Duration

	// Timeout bounds the node's work. Zero means no timeout.
	Timeout time.Duration
}

func (a Attributes) validate(name string) error {
	if a.Delay < 0 {
		return &ConstructionError{Condition: name, Field: "delay", Err: ErrInvalidDelay}
	}
	if a.Timeout < 0 {
		return &ConstructionError{Condition: name, Field: "timeout", Err: ErrInvalidTimeout}
	}
	return nil
}

// Option modifies node attributes.
type Option func(*Attributes)

// WithAlias sets the display name.
func WithAlias(alias string) Option {
	return func(a *Attributes) {
		a.Alias = alias
	}
}

// WithAsync makes the node run asynchronously on its runner.
func WithAsync() Option {
	return func(a *Attributes) {
		a.Async = true
	}
}

// WithSync makes the node run on the caller's goroutine and clears its runner.
func WithSync() Option {
	return func(a *Attributes) {
		a.Async = false
		a.Runner = nil
	}
}

// WithRunner pins the node to r. It implies WithAsync.
func WithRunner(r runner.TaskRunner) Option {
	return func(a *Attributes) {
		a.Async = true
		a.Runner = r
	}
}

// WithDelay sets the start delay.
func WithDelay(d time.Duration) Option {
	return func(a *Attributes) {
		a.Delay = d
	}
}

// WithTimeout sets the timeout. Zero removes it.
func WithTimeout(d time.Duration) Option {
	return func(a *Attributes) {
		a.Timeout = d
	}
}

func applyOptions(a Attributes, opts []Option) Attributes {
	for _, opt := range opts {
		if opt != nil {
			opt(&a)
		}
	}
	return a
}
