package services

import (
	"context"
	"fmt"
)

type contextKey string

const (
	documentIDKey contextKey = "document_id"
	stageKey      contextKey = "stage"
	attemptKey    contextKey = "attempt"
	requestIDKey  contextKey = "request_id"
)

// WithDocumentID annotates context with the catalog document identifier.
func WithDocumentID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, documentIDKey, id)
}

// DocumentIDFromContext extracts the catalog document identifier if present.
func DocumentIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(documentIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
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

// WithAttempt annotates context with the stage attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	if attempt <= 0 {
		return ctx
	}
	return context.WithValue(ctx, attemptKey, attempt)
}

// AttemptFromContext returns the attempt number if present.
func AttemptFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(attemptKey)
	if n, ok := v.(int); ok && n > 0 {
		return n, true
	}
	return 0, false
}

// WithRequestID annotates context with the submission request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// CorrelationID assembles the requestID.stage.attempt trace key from
// context. Missing request or stage segments render as "unknown" and a
// missing attempt renders as 0 so the key keeps its shape in logs.
func CorrelationID(ctx context.Context) string {
	request := "unknown"
	if id, ok := RequestIDFromContext(ctx); ok {
		request = id
	}
	stage := "unknown"
	if name, ok := StageFromContext(ctx); ok {
		stage = name
	}
	attempt := 0
	if n, ok := AttemptFromContext(ctx); ok {
		attempt = n
	}
	return fmt.Sprintf("%s.%s.%d", request, stage, attempt)
}
