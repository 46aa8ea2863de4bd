package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"mercator-hq/conditional/pkg/condition"
)

// Result is the final outcome of a run.
type Result string

const (
	ResultTrue      Result = "true"
	ResultFalse     Result = "false"
	ResultFailed    Result = "failed"
	ResultTimeout   Result = "timeout"
	ResultCancelled Result = "cancelled"
)

// ResultOf classifies the value and error returned by condition.Evaluate.
func ResultOf(value bool, err error) Result {
	switch {
	case condition.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return ResultTimeout
	case condition.IsCancelled(err):
		return ResultCancelled
	case err != nil:
		return ResultFailed
	case value:
		return ResultTrue
	default:
		return ResultFalse
	}
}

// Run is one journaled top-level evaluation.
type Run struct {
	ID         string        `json:"id"`
	Definition string        `json:"definition"`
	Condition  string        `json:"condition"`
	Mode       string        `json:"mode,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Result     Result        `json:"result"`
	Value      bool          `json:"value"`
	Error      string        `json:"error,omitempty"`
	Events     []Event       `json:"events,omitempty"`
}

// Failed reports whether the run ended in a failure or timeout.
func (r *Run) Failed() bool {
	return r.Result == ResultFailed || r.Result == ResultTimeout
}

// Event is a journaled condition log entry.
type Event struct {
	Seq          uint64        `json:"seq"`
	Kind         string        `json:"kind"`
	InvocationID uint64        `json:"invocation_id"`
	ParentID     uint64        `json:"parent_id,omitempty"`
	Condition    string        `json:"condition"`
	Alias        string        `json:"alias,omitempty"`
	Operator     string        `json:"operator,omitempty"`
	Async        bool          `json:"async,omitempty"`
	At           time.Time     `json:"at"`
	Duration     time.Duration `json:"duration,omitempty"`
	Outcome      string        `json:"outcome,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// FromRunContext builds a run from a finished evaluation. The run ID is the
// RunContext ID when it parses as a UUID, otherwise a fresh one.
func FromRunContext(definition, mode string, rc *condition.RunContext, value bool, err error) *Run {
	id := rc.ID()
	if _, parseErr := uuid.Parse(id); parseErr != nil {
		id = uuid.NewString()
	}

	run := &Run{
		ID:         id,
		Definition: definition,
		Mode:       mode,
		StartedAt:  rc.CreatedAt(),
		Result:     ResultOf(value, err),
		Value:      value && err == nil,
	}
	if err != nil {
		run.Error = err.Error()
	}

	for _, entry := range rc.Logs() {
		event := Event{
			Seq:          entry.Seq,
			Kind:         string(entry.Kind),
			InvocationID: entry.InvocationID,
			ParentID:     entry.ParentID,
			Condition:    entry.Condition,
			Alias:        entry.Alias,
			Operator:     entry.Operator,
			Async:        entry.Async,
			At:           entry.StartedAt,
		}
		if entry.Terminal() {
			event.At = entry.FinishedAt
			event.Duration = entry.Duration
			event.Outcome = string(entry.Outcome)
			if entry.Err != nil {
				event.Error = entry.Err.Error()
			}
			if entry.ParentID == 0 && run.Condition == "" {
				run.Condition = entry.Condition
				run.StartedAt = entry.StartedAt
				run.Duration = entry.Duration
			}
		}
		run.Events = append(run.Events, event)
	}

	return run
}

// Filter selects runs. Zero fields match everything.
type Filter struct {
	// Definition matches runs of one definition.
	Definition string

	// Since and Until bound StartedAt (inclusive).
	Since *time.Time
	Until *time.Time

	// OnlyFailed matches failed and timed out runs.
	OnlyFailed bool

	// Limit caps the number of runs returned. Default: 100
	Limit int

	// Offset skips the newest runs.
	Offset int
}

// DefaultQueryLimit applies when Filter.Limit is zero.
const DefaultQueryLimit = 100

func (f Filter) matches(r *Run) bool {
	if f.Definition != "" && r.Definition != f.Definition {
		return false
	}
	if f.Since != nil && r.StartedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && r.StartedAt.After(*f.Until) {
		return false
	}
	if f.OnlyFailed && !r.Failed() {
		return false
	}
	return true
}

func (f Filter) limit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return DefaultQueryLimit
}
