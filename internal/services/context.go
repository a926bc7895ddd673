package services

import "context"

type contextKey string

const (
	workItemKey  contextKey = "work_item"
	ordinalKey   contextKey = "ordinal"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithWorkItem annotates context with the 1-based ledger row being processed.
func WithWorkItem(ctx context.Context, row int) context.Context {
	return context.WithValue(ctx, workItemKey, row)
}

// WorkItemFromContext extracts the ledger row if present.
func WorkItemFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(workItemKey).(int)
	return v, ok
}

// WithOrdinal annotates context with the candidate's ordinal within its work item.
func WithOrdinal(ctx context.Context, ordinal int) context.Context {
	if ordinal <= 0 {
		return ctx
	}
	return context.WithValue(ctx, ordinalKey, ordinal)
}

// OrdinalFromContext returns the candidate ordinal if present.
func OrdinalFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(ordinalKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier. Runs use
// their run ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
