package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// RunIDKey is the context key for evaluation run IDs.
	RunIDKey contextKey = "run_id"

	// ConditionKey is the context key for the evaluated definition name.
	ConditionKey contextKey = "condition"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithCondition adds a definition name to the context.
func WithCondition(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ConditionKey, name)
}

// GetCondition retrieves the definition name from the context.
func GetCondition(ctx context.Context) string {
	if name, ok := ctx.Value(ConditionKey).(string); ok {
		return name
	}
	return ""
}

// ExtractContextFields returns the known context fields as key-value pairs
// suitable for slog.Logger.With.
func ExtractContextFields(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, "run_id", runID)
	}
	if name := GetCondition(ctx); name != "" {
		fields = append(fields, "condition", name)
	}

	return fields
}
