package condition

import "time"

// EventKind distinguishes the two log entries of an invocation.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventFinished EventKind = "finished"
)

// Outcome is the terminal state of an invocation.
type Outcome string

const (
	OutcomeTrue      Outcome = "true"
	OutcomeFalse     Outcome = "false"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeCancelled Outcome = "cancelled"
)

// LogEntry is one event in a run's log.
type LogEntry struct {
	// Seq is the position in the run's log, starting at 1.
	Seq uint64

	Kind         EventKind
	InvocationID uint64

	// ParentID is the invocation that dispatched this one, or 0 for a root.
	ParentID uint64

	// Condition is the rendered node.
	Condition string
	Alias     string

	// Operator is "AND" or "OR" for composites and empty for leaves.
	Operator string
	Async    bool

	StartedAt time.Time

	// The remaining fields are set on finished entries only.
	FinishedAt time.Time
	Duration   time.Duration
	Outcome    Outcome
	Value      bool
	Err        error
}

// Terminal reports whether the entry closes an invocation.
func (e LogEntry) Terminal() bool {
	return e.Kind == EventFinished
}

func outcomeOf(value bool, err error, cancelled bool) Outcome {
	switch {
	case cancelled:
		return OutcomeCancelled
	case err != nil && IsTimeout(err):
		return OutcomeTimeout
	case err != nil:
		return OutcomeFailed
	case value:
		return OutcomeTrue
	default:
		return OutcomeFalse
	}
}
