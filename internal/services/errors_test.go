package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tome/internal/catalog"
	"tome/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "extract", "pdftotext", "tool failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extract", "pdftotext", "tool failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "classify", "score", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Class
	}{
		{"transient", services.Wrap(services.ErrTransient, "extract", "read", "io pressure", nil), services.ClassTransient},
		{"external tool", services.Wrap(services.ErrExternalTool, "extract", "run", "exit 1", nil), services.ClassTransient},
		{"timeout", services.Wrap(services.ErrTimeout, "embed", "request", "deadline", nil), services.ClassTransient},
		{"deadline exceeded", context.DeadlineExceeded, services.ClassTransient},
		{"validation", services.Wrap(services.ErrValidation, "extract", "parse", "corrupt", nil), services.ClassPermanent},
		{"not found", services.Wrap(services.ErrNotFound, "index", "load", "missing artifact", nil), services.ClassPermanent},
		{"configuration", services.Wrap(services.ErrConfiguration, "embed", "client", "no endpoint", nil), services.ClassFatal},
		{"invariant", services.Wrap(services.ErrInvariant, "tables", "encode", "panic", nil), services.ClassFatal},
		{"unknown", errors.New("mystery"), services.ClassTransient},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Errorf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFailureResultMapping(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "extract", "prepare", "invalid", nil)
	if result := services.FailureResult(validationErr); result != catalog.ResultPermanent {
		t.Fatalf("expected permanent for validation error, got %s", result)
	}

	configErr := services.Wrap(services.ErrConfiguration, "embed", "client", "no endpoint", nil)
	if result := services.FailureResult(configErr); result != catalog.ResultFatal {
		t.Fatalf("expected fatal for configuration error, got %s", result)
	}

	transientErr := services.Wrap(services.ErrTransient, "images", "copy", "copy failed", errors.New("io"))
	if result := services.FailureResult(transientErr); result != catalog.ResultRetryable {
		t.Fatalf("expected retryable for transient error, got %s", result)
	}
}

func TestIsRetryable(t *testing.T) {
	if !services.IsRetryable(services.Wrap(services.ErrExternalTool, "extract", "run", "crash", nil)) {
		t.Fatal("expected external tool errors retryable")
	}
	if services.IsRetryable(services.Wrap(services.ErrValidation, "extract", "parse", "corrupt", nil)) {
		t.Fatal("expected validation errors not retryable")
	}
}
