package runner

import (
	"context"
	"runtime/debug"
	"sync"
)

// Task is a unit of asynchronous work producing a boolean or a failure.
// The context is cancelled when the task's handle is cancelled.
type Task func(ctx context.Context) (bool, error)

// TaskRunner executes tasks and returns a handle for each submission.
type TaskRunner interface {
	// Submit schedules the task and returns immediately. The task observes a
	// context derived from ctx.
	Submit(ctx context.Context, task Task) *Handle
}

// Handle is the cancellable, awaitable result of a submitted task.
// A handle resolves exactly once; later completions are discarded.
type Handle struct {
	done      chan struct{}
	once      sync.Once
	value     bool
	err       error
	cancelled bool
	cancel    context.CancelFunc
}

func newHandle(cancel context.CancelFunc) *Handle {
	return &Handle{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Resolved returns a handle that is already complete with the given result.
// Synchronous evaluation uses it so both dispatch modes share one shape.
func Resolved(value bool, err error) *Handle {
	h := newHandle(nil)
	h.complete(value, err, false)
	return h
}

// complete resolves the handle. It reports whether this call won the race.
func (h *Handle) complete(value bool, err error, cancelled bool) bool {
	won := false
	h.once.Do(func() {
		h.value = value
		h.err = err
		h.cancelled = cancelled
		close(h.done)
		won = true
	})
	return won
}

// Done returns a channel that is closed once the handle resolves.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsDone reports whether the handle has resolved, either by completion or
// by cancellation.
func (h *Handle) IsDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the handle was resolved by Cancel.
func (h *Handle) IsCancelled() bool {
	if !h.IsDone() {
		return false
	}
	return h.cancelled
}

// Cancel resolves a pending handle with ErrCancelled and cancels the task's
// context. It returns false when the handle had already resolved.
func (h *Handle) Cancel() bool {
	if !h.complete(false, ErrCancelled, true) {
		return false
	}
	if h.cancel != nil {
		h.cancel()
	}
	return true
}

// Await blocks until the handle resolves or ctx is done.
func (h *Handle) Await(ctx context.Context) (bool, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Result returns the resolved result without blocking. It returns
// ErrPending when the handle has not resolved yet.
func (h *Handle) Result() (bool, error) {
	if !h.IsDone() {
		return false, ErrPending
	}
	return h.value, h.err
}

// execute runs the task, converting a panic into a *PanicError.
func execute(ctx context.Context, task Task) (value bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			value = false
			err = &PanicError{Value: rec, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}

// GoRunner runs every task on its own goroutine.
type GoRunner struct{}

// NewGoRunner creates a goroutine-per-task runner.
func NewGoRunner() *GoRunner {
	return &GoRunner{}
}

// Submit starts the task on a new goroutine.
func (r *GoRunner) Submit(ctx context.Context, task Task) *Handle {
	taskCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel)
	go func() {
		defer cancel()
		value, err := execute(taskCtx, task)
		h.complete(value, err, false)
	}()
	return h
}

var defaultRunner = NewGoRunner()

// Default returns the shared runner used when a condition names none.
func Default() TaskRunner {
	return defaultRunner
}
