package services_test

import (
	"context"
	"testing"

	"tome/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDocumentID(ctx, 42)
	ctx = services.WithStage(ctx, "classify")
	ctx = services.WithAttempt(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.DocumentIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected document id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "classify" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if attempt, ok := services.AttemptFromContext(ctx); !ok || attempt != 3 {
		t.Fatalf("unexpected attempt: %v %v", attempt, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	if got := services.CorrelationID(ctx); got != "unknown.unknown.0" {
		t.Fatalf("unexpected empty correlation id %q", got)
	}

	ctx = services.WithRequestID(ctx, "req-1")
	ctx = services.WithStage(ctx, "index")
	ctx = services.WithAttempt(ctx, 1)
	if got := services.CorrelationID(ctx); got != "req-1.index.1" {
		t.Fatalf("unexpected correlation id %q", got)
	}
}
