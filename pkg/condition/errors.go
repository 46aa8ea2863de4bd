package condition

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors wrapped by *ConstructionError.
var (
	// ErrEmptyConditions indicates a composite without children.
	ErrEmptyConditions = errors.New("at least one condition is required")

	// ErrNilCondition indicates a nil condition where one was required.
	ErrNilCondition = errors.New("condition is nil")

	// ErrNilFunction indicates a leaf without an evaluation function.
	ErrNilFunction = errors.New("condition function is nil")

	// ErrNoRunner indicates an async node with no runner available.
	ErrNoRunner = errors.New("async condition has no runner")

	// ErrInvalidDelay indicates a negative delay.
	ErrInvalidDelay = errors.New("delay must not be negative")

	// ErrInvalidTimeout indicates a negative timeout.
	ErrInvalidTimeout = errors.New("timeout must not be negative")
)

// EvaluationError wraps a failure at the node where it originated.
// Composites propagate it unchanged, so Condition always names the
// originating node.
type EvaluationError struct {
	Condition    string
	InvocationID uint64
	Cause        error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("condition %s (invocation %d): evaluation failed: %v", e.Condition, e.InvocationID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates a node's work exceeded its timeout.
type TimeoutError struct {
	Condition string
	Timeout   time.Duration
}

// Error returns the error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("condition %s: evaluation timeout after %v", e.Condition, e.Timeout)
}

// Unwrap returns context.DeadlineExceeded so callers can match either.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// ConstructionError indicates an invalid condition tree or attribute.
type ConstructionError struct {
	Condition string
	Field     string
	Err       error
}

// Error returns the error message.
func (e *ConstructionError) Error() string {
	if e.Condition == "" {
		return fmt.Sprintf("invalid condition %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid condition %s: %s: %v", e.Condition, e.Field, e.Err)
}

// Unwrap returns the sentinel error.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is or wraps a *TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// IsConstruction reports whether err is or wraps a *ConstructionError.
func IsConstruction(err error) bool {
	var constructionErr *ConstructionError
	return errors.As(err, &constructionErr)
}

// IsCancelled reports whether err only signals cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// wrap adds the evaluation envelope unless err already carries one.
func wrap(err error, name string, id uint64) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	var constructionErr *ConstructionError
	if errors.As(err, &constructionErr) {
		return err
	}
	return &EvaluationError{Condition: name, InvocationID: id, Cause: err}
}
