package condition

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"mercator-hq/conditional/pkg/runner"
)

type invocationKey struct{}

// InvocationFromContext returns the invocation currently running on ctx,
// or 0 outside an evaluation.
func InvocationFromContext(ctx context.Context) uint64 {
	id, _ := ctx.Value(invocationKey{}).(uint64)
	return id
}

// Evaluate evaluates c against rc and returns its value or the first
// failure observed. A nil rc gets a fresh RunContext. An async root is
// submitted to its runner and awaited.
func Evaluate(ctx context.Context, c Condition, rc *RunContext) (bool, error) {
	if isNil(c) {
		return false, &ConstructionError{Field: "root", Err: ErrNilCondition}
	}
	if rc == nil {
		rc = NewRunContext()
	}

	h := dispatch(ctx, c, rc)
	value, err := h.Await(ctx)
	if err != nil && !h.IsDone() {
		h.Cancel()
	}
	return value, err
}

// Composable returns a leaf whose tree is built by build on every
// invocation and evaluated as its child.
func Composable(alias string, build func() (Condition, error), opts ...Option) *Leaf {
	fn := func(ctx context.Context, rc *RunContext) (bool, error) {
		tree, err := build()
		if err != nil {
			return false, err
		}
		if isNil(tree) {
			return false, &ConstructionError{Condition: alias, Field: "compose", Err: ErrNilCondition}
		}
		return Evaluate(ctx, tree, rc)
	}
	l := named("composable", fn, opts)
	if alias != "" {
		l.attrs.Alias = alias
	}
	return l
}

// dispatch starts one invocation of c. Synchronous nodes run before it
// returns and yield a resolved handle.
func dispatch(ctx context.Context, c Condition, rc *RunContext) *runner.Handle {
	attrs := c.Attributes()
	if !attrs.Async {
		return runner.Resolved(run(ctx, c, rc))
	}

	r := attrs.Runner
	if r == nil {
		r = rc.runner
	}
	if r == nil {
		return runner.Resolved(false, &ConstructionError{Condition: c.String(), Field: "runner", Err: ErrNoRunner})
	}
	h := r.Submit(ctx, func(taskCtx context.Context) (bool, error) {
		return run(taskCtx, c, rc)
	})
	// A closed pool rejects the node itself, before any invocation exists.
	if _, err := h.Result(); errors.Is(err, runner.ErrPoolClosed) {
		return runner.Resolved(false, &EvaluationError{Condition: c.String(), Cause: err})
	}
	return h
}

// run performs one invocation: validation, logging, delay and timeout
// around the node's body.
func run(ctx context.Context, c Condition, rc *RunContext) (bool, error) {
	if err := c.validate(); err != nil {
		return false, err
	}

	attrs := c.Attributes()
	name := c.String()
	id := rc.nextInvocation()

	entry, ok := rc.started(ctx, LogEntry{
		InvocationID: id,
		ParentID:     InvocationFromContext(ctx),
		Condition:    name,
		Alias:        attrs.Alias,
		Operator:     c.operator(),
		Async:        attrs.Async,
		StartedAt:    rc.now(),
	})
	if !ok {
		return false, ctx.Err()
	}

	ctx = context.WithValue(ctx, invocationKey{}, id)
	value, err := perform(ctx, c, rc, attrs, name)

	cancelled := ctx.Err() != nil
	switch {
	case cancelled:
		value, err = false, ctx.Err()
	case err != nil:
		err = wrap(err, name, id)
	}

	entry.FinishedAt = rc.now()
	entry.Duration = entry.FinishedAt.Sub(entry.StartedAt)
	entry.Outcome = outcomeOf(value, err, cancelled)
	entry.Value = value
	entry.Err = err
	rc.finished(ctx, entry)

	return value, err
}

func perform(ctx context.Context, c Condition, rc *RunContext, attrs Attributes, name string) (bool, error) {
	if attrs.Delay > 0 {
		timer := time.NewTimer(attrs.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		}
	}

	// Safe point before the body starts.
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if attrs.Timeout <= 0 {
		return call(ctx, c, rc)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, attrs.Timeout)
	defer cancel()

	type result struct {
		value bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := call(timeoutCtx, c, rc)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		// A result produced after the deadline does not count.
		if ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return false, &TimeoutError{Condition: name, Timeout: attrs.Timeout}
		}
		return r.value, r.err
	case <-timeoutCtx.Done():
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return false, &TimeoutError{Condition: name, Timeout: attrs.Timeout}
	}
}

// call runs the body, converting a panic into a *runner.PanicError.
func call(ctx context.Context, c Condition, rc *RunContext) (value bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = false
			err = &runner.PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return c.body(ctx, rc)
}
