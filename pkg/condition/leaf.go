package condition

import (
	"context"
	"errors"
	"time"
)

// Leaf wraps a single evaluation function.
type Leaf struct {
	fn    Func
	name  string
	attrs Attributes
}

// NewLeaf creates a leaf, rejecting a nil function and negative durations.
func NewLeaf(fn Func, opts ...Option) (*Leaf, error) {
	l := Of(fn, opts...)
	if err := l.validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Of creates a leaf without validating it. Problems surface as a
// *ConstructionError when the leaf is evaluated.
func Of(fn Func, opts ...Option) *Leaf {
	return &Leaf{
		fn:    fn,
		name:  "condition",
		attrs: applyOptions(Attributes{}, opts),
	}
}

func named(name string, fn Func, opts []Option) *Leaf {
	l := Of(fn, opts...)
	l.name = name
	return l
}

// True returns a leaf that always matches.
func True(opts ...Option) *Leaf {
	return named("true", func(context.Context, *RunContext) (bool, error) {
		return true, nil
	}, opts)
}

// False returns a leaf that never matches.
func False(opts ...Option) *Leaf {
	return named("false", func(context.Context, *RunContext) (bool, error) {
		return false, nil
	}, opts)
}

// Failed returns a leaf that always fails with err.
func Failed(err error, opts ...Option) *Leaf {
	if err == nil {
		err = errors.New("failed")
	}
	return named("failed", func(context.Context, *RunContext) (bool, error) {
		return false, err
	}, opts)
}

// FailedWith returns a leaf that fails with the error produced by fn.
func FailedWith(fn func(ctx context.Context, rc *RunContext) error, opts ...Option) *Leaf {
	return named("failed", func(ctx context.Context, rc *RunContext) (bool, error) {
		if err := fn(ctx, rc); err != nil {
			return false, err
		}
		return false, errors.New("failed")
	}, opts)
}

// Delayed returns a leaf that waits d before running fn.
func Delayed(fn Func, d time.Duration, opts ...Option) *Leaf {
	return Of(fn, append([]Option{WithDelay(d)}, opts...)...)
}

// Async returns a leaf dispatched on the run's default runner.
func Async(fn Func, opts ...Option) *Leaf {
	return Of(fn, append([]Option{WithAsync()}, opts...)...)
}

// Attributes returns the leaf's attributes.
func (l *Leaf) Attributes() Attributes {
	return l.attrs
}

// With returns a copy with opts applied.
func (l *Leaf) With(opts ...Option) *Leaf {
	clone := *l
	clone.attrs = applyOptions(l.attrs, opts)
	return &clone
}

func (l *Leaf) body(ctx context.Context, rc *RunContext) (bool, error) {
	return l.fn(ctx, rc)
}

func (l *Leaf) validate() error {
	if l.fn == nil {
		return &ConstructionError{Condition: l.String(), Field: "function", Err: ErrNilFunction}
	}
	return l.attrs.validate(l.String())
}

func (l *Leaf) operator() string {
	return ""
}

func (l *Leaf) withAttributes(attrs Attributes) Condition {
	clone := *l
	clone.attrs = attrs
	return &clone
}
