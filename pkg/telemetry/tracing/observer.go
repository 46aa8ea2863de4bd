package tracing

import (
	"context"
	"sync"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/telemetry/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrRunID      = "condition.run_id"
	AttrInvocation = "condition.invocation"
	AttrAlias      = "condition.alias"
	AttrOperator   = "condition.operator"
	AttrAsync      = "condition.async"
	AttrOutcome    = "condition.outcome"
	AttrValue      = "condition.value"
)

// Observer turns condition log entries into spans. A span starts with the
// invocation's started entry and ends with its finished entry, both at the
// timestamps recorded in the log.
type Observer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[spanKey]trace.Span
}

var _ condition.Observer = (*Observer)(nil)

type spanKey struct {
	run        string
	invocation uint64
}

func newObserver(tracer trace.Tracer) *Observer {
	return &Observer{
		tracer: tracer,
		spans:  make(map[spanKey]trace.Span),
	}
}

// ConditionStarted opens the invocation's span.
func (o *Observer) ConditionStarted(ctx context.Context, entry condition.LogEntry) {
	run := logging.GetRunID(ctx)

	parent := ctx
	if entry.ParentID != 0 {
		o.mu.Lock()
		ps, ok := o.spans[spanKey{run: run, invocation: entry.ParentID}]
		o.mu.Unlock()
		if ok {
			parent = trace.ContextWithSpan(ctx, ps)
		}
	}

	attrs := []attribute.KeyValue{
		attribute.Int64(AttrInvocation, int64(entry.InvocationID)),
		attribute.Bool(AttrAsync, entry.Async),
	}
	if run != "" {
		attrs = append(attrs, attribute.String(AttrRunID, run))
	}
	if entry.Alias != "" {
		attrs = append(attrs, attribute.String(AttrAlias, entry.Alias))
	}
	if entry.Operator != "" {
		attrs = append(attrs, attribute.String(AttrOperator, entry.Operator))
	}

	_, span := o.tracer.Start(parent, entry.Condition,
		trace.WithTimestamp(entry.StartedAt),
		trace.WithAttributes(attrs...),
	)

	o.mu.Lock()
	o.spans[spanKey{run: run, invocation: entry.InvocationID}] = span
	o.mu.Unlock()
}

// ConditionFinished closes the invocation's span with its outcome.
func (o *Observer) ConditionFinished(ctx context.Context, entry condition.LogEntry) {
	key := spanKey{run: logging.GetRunID(ctx), invocation: entry.InvocationID}

	o.mu.Lock()
	span, ok := o.spans[key]
	delete(o.spans, key)
	o.mu.Unlock()
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.String(AttrOutcome, string(entry.Outcome)),
		attribute.Bool(AttrValue, entry.Value),
	)
	switch entry.Outcome {
	case condition.OutcomeFailed, condition.OutcomeTimeout:
		if entry.Err != nil {
			SetStatus(span, entry.Err)
		} else {
			span.SetStatus(codes.Error, string(entry.Outcome))
		}
	case condition.OutcomeCancelled:
		// Abandoned branches are neither ok nor failed.
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(entry.FinishedAt))
}

// Open returns the number of invocations whose span has not ended.
func (o *Observer) Open() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.spans)
}
