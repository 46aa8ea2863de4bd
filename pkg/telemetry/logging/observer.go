package logging

import (
	"context"
	"log/slog"

	"mercator-hq/conditional/pkg/condition"
)

// Observer writes condition log entries to a logger. Starts and successful
// finishes are logged at debug, failures and timeouts at warn.
type Observer struct {
	logger *slog.Logger
}

var _ condition.Observer = (*Observer)(nil)

// NewObserver creates an observer writing to logger.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger.With("component", "condition.observer")}
}

// ConditionStarted logs the start of an invocation.
func (o *Observer) ConditionStarted(ctx context.Context, entry condition.LogEntry) {
	if !o.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	args := append(ExtractContextFields(ctx),
		"invocation", entry.InvocationID,
		"parent", entry.ParentID,
		"node", entry.Condition,
		"async", entry.Async,
	)
	o.logger.DebugContext(ctx, "condition started", args...)
}

// ConditionFinished logs the end of an invocation.
func (o *Observer) ConditionFinished(ctx context.Context, entry condition.LogEntry) {
	level := slog.LevelDebug
	switch entry.Outcome {
	case condition.OutcomeFailed, condition.OutcomeTimeout:
		level = slog.LevelWarn
	}
	if !o.logger.Enabled(ctx, level) {
		return
	}

	args := append(ExtractContextFields(ctx),
		"invocation", entry.InvocationID,
		"node", entry.Condition,
		"outcome", string(entry.Outcome),
		"duration", entry.Duration,
	)
	if entry.Err != nil {
		args = append(args, "error", entry.Err)
	}
	o.logger.Log(ctx, level, "condition finished", args...)
}
