package definition

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownPredicate is returned for a predicate name with no factory.
	ErrUnknownPredicate = errors.New("unknown predicate")

	// ErrDefinitionNotFound is returned by Set.Get for an undeclared name.
	ErrDefinitionNotFound = errors.New("definition not found")
)

// LoadError represents a failure to read a definition file.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load definitions %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load definitions %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents a YAML decoding failure.
type ParseError struct {
	FilePath string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("parse error: %s", e.Message)
	}
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Problem is one validation finding.
type Problem struct {
	// Path locates the node, e.g. "conditions[0].root.all[1]".
	Path string

	Message string
}

func (p Problem) String() string {
	return p.Path + ": " + p.Message
}

// ValidationError collects every problem found in a document.
type ValidationError struct {
	Problems []Problem
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid definitions: " + e.Problems[0].String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "invalid definitions: %d problems", len(e.Problems))
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p.String())
	}
	return b.String()
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
