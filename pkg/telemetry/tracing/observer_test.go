package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/conditional/pkg/condition"
	"mercator-hq/conditional/pkg/telemetry/logging"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func spansByName(spans []sdktrace.ReadOnlySpan) map[string]sdktrace.ReadOnlySpan {
	out := make(map[string]sdktrace.ReadOnlySpan, len(spans))
	for _, s := range spans {
		out[s.Name()] = s
	}
	return out
}

func attr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestObserver_SpanTreeMirrorsEvaluation(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	observer := tracer.Observer()

	rc := condition.NewRunContext(condition.WithObserver(observer))
	tree, err := condition.NewComposite(condition.AND, []condition.Condition{
		condition.True(condition.WithAlias("first")),
		condition.Failed(errors.New("boom"), condition.WithAlias("broken")),
	}, condition.WithAlias("both"))
	if err != nil {
		t.Fatalf("NewComposite() error = %v", err)
	}

	ctx, root := tracer.Start(context.Background(), "request")
	ctx = logging.WithRunID(ctx, rc.ID())
	if _, err := condition.Evaluate(ctx, tree, rc); err == nil {
		t.Fatal("Evaluate() should fail")
	}
	root.End()

	if open := observer.Open(); open != 0 {
		t.Errorf("Open() = %d, want 0 after evaluation", open)
	}

	spans := spansByName(recorder.Ended())
	for _, name := range []string{"request", "both", "first", "broken"} {
		if _, ok := spans[name]; !ok {
			t.Fatalf("missing span %q in %v", name, recorder.Ended())
		}
	}

	if spans["both"].Parent().SpanID() != spans["request"].SpanContext().SpanID() {
		t.Error("root invocation should be parented on the request span")
	}
	for _, leaf := range []string{"first", "broken"} {
		if spans[leaf].Parent().SpanID() != spans["both"].SpanContext().SpanID() {
			t.Errorf("%s should be parented on the composite span", leaf)
		}
	}

	if v, _ := attr(spans["both"], AttrOperator); v.AsString() != "AND" {
		t.Errorf("operator = %q, want AND", v.AsString())
	}
	if v, _ := attr(spans["first"], AttrOutcome); v.AsString() != string(condition.OutcomeTrue) {
		t.Errorf("first outcome = %q, want true", v.AsString())
	}
	if v, _ := attr(spans["broken"], AttrRunID); v.AsString() != rc.ID() {
		t.Errorf("run id = %q, want %q", v.AsString(), rc.ID())
	}
	if spans["first"].Status().Code != codes.Ok {
		t.Errorf("first status = %v, want Ok", spans["first"].Status().Code)
	}
	if spans["broken"].Status().Code != codes.Error {
		t.Errorf("broken status = %v, want Error", spans["broken"].Status().Code)
	}
}

func TestObserver_UsesLogTimestamps(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	observer := tracer.Observer()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := logging.WithRunID(context.Background(), "run-1")
	entry := condition.LogEntry{
		Kind:         condition.EventStarted,
		InvocationID: 1,
		Condition:    "is-admin",
		StartedAt:    start,
	}
	observer.ConditionStarted(ctx, entry)

	entry.Kind = condition.EventFinished
	entry.FinishedAt = start.Add(250 * time.Millisecond)
	entry.Outcome = condition.OutcomeTimeout
	observer.ConditionFinished(ctx, entry)

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	span := ended[0]
	if !span.StartTime().Equal(start) || !span.EndTime().Equal(entry.FinishedAt) {
		t.Errorf("span times = %v..%v, want %v..%v", span.StartTime(), span.EndTime(), start, entry.FinishedAt)
	}
	if span.Status().Code != codes.Error || span.Status().Description != "timeout" {
		t.Errorf("status = %+v, want Error timeout", span.Status())
	}
}

func TestObserver_SeparatesRuns(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	observer := tracer.Observer()

	for _, run := range []string{"run-a", "run-b"} {
		ctx := logging.WithRunID(context.Background(), run)
		observer.ConditionStarted(ctx, condition.LogEntry{InvocationID: 1, Condition: run})
	}
	if open := observer.Open(); open != 2 {
		t.Fatalf("Open() = %d, want 2", open)
	}

	// Finishing an unknown invocation is ignored.
	observer.ConditionFinished(logging.WithRunID(context.Background(), "run-c"), condition.LogEntry{InvocationID: 1})

	observer.ConditionFinished(logging.WithRunID(context.Background(), "run-b"), condition.LogEntry{InvocationID: 1, Outcome: condition.OutcomeFalse})
	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "run-b" {
		t.Fatalf("ended = %v, want only run-b", ended)
	}
	if open := observer.Open(); open != 1 {
		t.Errorf("Open() = %d, want 1", open)
	}
}
