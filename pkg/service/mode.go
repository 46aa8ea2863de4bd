package service

import (
	"errors"
	"fmt"

	"mercator-hq/conditional/pkg/condition"
)

// Mode selects how a definition tree is dispatched.
type Mode string

const (
	// ModeDeclared keeps every node's own async and runner settings.
	ModeDeclared Mode = "declared"
	// ModeSequential runs every node synchronously.
	ModeSequential Mode = "sequential"
	// ModeParallel dispatches every node asynchronously on the run's default runner.
	ModeParallel Mode = "parallel"
)

// ErrInvalidMode is returned for an unknown mode name.
var ErrInvalidMode = errors.New("invalid mode")

// ParseMode parses a mode name. The empty string is ModeDeclared.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeDeclared:
		return ModeDeclared, nil
	case ModeSequential:
		return ModeSequential, nil
	case ModeParallel:
		return ModeParallel, nil
	default:
		return "", fmt.Errorf("%w: %q (want declared, sequential or parallel)", ErrInvalidMode, s)
	}
}

// apply rewrites c for the mode. Leaf roots are left as declared.
func (m Mode) apply(c condition.Condition) condition.Condition {
	composite, ok := c.(*condition.Composite)
	if !ok {
		return c
	}
	switch m {
	case ModeSequential:
		return composite.Sequential()
	case ModeParallel:
		return composite.Parallel()
	default:
		return c
	}
}
