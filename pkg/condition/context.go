package condition

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/conditional/pkg/runner"
)

// Observer is notified of every log entry after it is appended.
// Implementations must be safe for concurrent use.
type Observer interface {
	ConditionStarted(ctx context.Context, entry LogEntry)
	ConditionFinished(ctx context.Context, entry LogEntry)
}

// RunOption configures a RunContext.
type RunOption func(*RunContext)

// WithState seeds the run state. The map is copied.
func WithState(state map[string]any) RunOption {
	return func(rc *RunContext) {
		maps.Copy(rc.state, state)
	}
}

// WithObserver adds an observer.
func WithObserver(observer Observer) RunOption {
	return func(rc *RunContext) {
		if observer != nil {
			rc.observers = append(rc.observers, observer)
		}
	}
}

// WithDefaultRunner sets the runner used by async nodes without their own.
// A nil runner disables the fallback.
func WithDefaultRunner(r runner.TaskRunner) RunOption {
	return func(rc *RunContext) {
		rc.runner = r
	}
}

// WithClock replaces time.Now for log timestamps.
func WithClock(clock func() time.Time) RunOption {
	return func(rc *RunContext) {
		if clock != nil {
			rc.clock = clock
		}
	}
}

// WithLogger sets the logger used for evaluation debug output.
func WithLogger(logger *slog.Logger) RunOption {
	return func(rc *RunContext) {
		rc.logger = logger
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) RunOption {
	return func(rc *RunContext) {
		if id != "" {
			rc.id = id
		}
	}
}

// RunContext is the state and log shared by every node of one top-level
// evaluation. It is safe for concurrent use and must not be reused across
// runs.
type RunContext struct {
	id        string
	createdAt time.Time
	clock     func() time.Time
	runner    runner.TaskRunner
	observers []Observer
	logger    *slog.Logger

	stateMu sync.RWMutex
	state   map[string]any

	logMu    sync.Mutex
	logs     []LogEntry
	seq      uint64
	inflight int
	idle     []chan struct{}

	invocations atomic.Uint64
}

// NewRunContext creates a context for one evaluation run.
func NewRunContext(opts ...RunOption) *RunContext {
	rc := &RunContext{
		id:     uuid.New().String(),
		clock:  time.Now,
		runner: runner.Default(),
		state:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.logger == nil {
		rc.logger = slog.Default()
	}
	rc.logger = rc.logger.With("component", "condition", "run_id", rc.id)
	rc.createdAt = rc.clock()
	return rc
}

// ID returns the run ID.
func (rc *RunContext) ID() string {
	return rc.id
}

// CreatedAt returns when the run context was created.
func (rc *RunContext) CreatedAt() time.Time {
	return rc.createdAt
}

// Runner returns the default runner, which may be nil.
func (rc *RunContext) Runner() runner.TaskRunner {
	return rc.runner
}

// Put stores a value.
func (rc *RunContext) Put(key string, value any) {
	rc.stateMu.Lock()
	defer rc.stateMu.Unlock()
	rc.state[key] = value
}

// Get returns a stored value.
func (rc *RunContext) Get(key string) (any, bool) {
	rc.stateMu.RLock()
	defer rc.stateMu.RUnlock()
	value, ok := rc.state[key]
	return value, ok
}

// Delete removes a stored value.
func (rc *RunContext) Delete(key string) {
	rc.stateMu.Lock()
	defer rc.stateMu.Unlock()
	delete(rc.state, key)
}

// Snapshot returns a copy of the state.
func (rc *RunContext) Snapshot() map[string]any {
	rc.stateMu.RLock()
	defer rc.stateMu.RUnlock()
	return maps.Clone(rc.state)
}

// AppendLog appends entry and returns it with its sequence number set.
// Appends are linearizable: sequence numbers are unique and increase in
// append order.
func (rc *RunContext) AppendLog(entry LogEntry) LogEntry {
	rc.logMu.Lock()
	defer rc.logMu.Unlock()
	rc.seq++
	entry.Seq = rc.seq
	rc.logs = append(rc.logs, entry)
	return entry
}

// Logs returns a copy of the log in append order.
func (rc *RunContext) Logs() []LogEntry {
	rc.logMu.Lock()
	defer rc.logMu.Unlock()
	out := make([]LogEntry, len(rc.logs))
	copy(out, rc.logs)
	return out
}

// Completions returns the finished entries in append order.
func (rc *RunContext) Completions() []LogEntry {
	rc.logMu.Lock()
	defer rc.logMu.Unlock()
	var out []LogEntry
	for _, entry := range rc.logs {
		if entry.Terminal() {
			out = append(out, entry)
		}
	}
	return out
}

// Wait blocks until every started invocation has logged its finished entry
// or ctx is done. Abandoned branches may finish after Evaluate returns;
// branches cancelled before they started are never logged.
func (rc *RunContext) Wait(ctx context.Context) error {
	rc.logMu.Lock()
	if rc.inflight == 0 {
		rc.logMu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	rc.idle = append(rc.idle, ch)
	rc.logMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rc *RunContext) now() time.Time {
	return rc.clock()
}

func (rc *RunContext) nextInvocation() uint64 {
	return rc.invocations.Add(1)
}

// started logs the start of an invocation. It logs nothing and returns
// false when ctx is already done, so an invocation cancelled before it
// started never appears in the log. The check shares the lock with Wait.
func (rc *RunContext) started(ctx context.Context, entry LogEntry) (LogEntry, bool) {
	entry.Kind = EventStarted
	rc.logMu.Lock()
	if ctx.Err() != nil {
		rc.logMu.Unlock()
		return entry, false
	}
	rc.seq++
	entry.Seq = rc.seq
	rc.logs = append(rc.logs, entry)
	rc.inflight++
	rc.logMu.Unlock()

	for _, observer := range rc.observers {
		observer.ConditionStarted(ctx, entry)
	}
	return entry, true
}

func (rc *RunContext) finished(ctx context.Context, entry LogEntry) LogEntry {
	entry.Kind = EventFinished
	rc.logMu.Lock()
	rc.seq++
	entry.Seq = rc.seq
	rc.logs = append(rc.logs, entry)
	rc.logMu.Unlock()

	for _, observer := range rc.observers {
		observer.ConditionFinished(ctx, entry)
	}

	// Waiters are released only after observers saw the entry.
	rc.logMu.Lock()
	rc.inflight--
	if rc.inflight == 0 {
		for _, ch := range rc.idle {
			close(ch)
		}
		rc.idle = nil
	}
	rc.logMu.Unlock()
	return entry
}
