package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is the result of a handle that was cancelled before its task completed.
	ErrCancelled = errors.New("task cancelled")

	// ErrPoolClosed is returned for tasks submitted to a closed pool.
	ErrPoolClosed = errors.New("runner pool closed")

	// ErrPending is returned by Handle.Result while the task is still running.
	ErrPending = errors.New("task still pending")

	// ErrRunnerNotFound indicates a lookup for an unregistered runner name.
	ErrRunnerNotFound = errors.New("runner not found")
)

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the goroutine stack captured at recovery time.
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
