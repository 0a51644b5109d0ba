package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tome/internal/catalog"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrInvariant     = errors.New("invariant violation")
)

// Class is the disposition a stage failure maps to.
type Class string

const (
	// ClassTransient faults are retried within the stage attempt budget.
	ClassTransient Class = "transient"
	// ClassPermanent faults fail the stage without further attempts.
	ClassPermanent Class = "permanent"
	// ClassFatal faults indicate broken wiring or violated invariants and
	// never retry.
	ClassFatal Class = "fatal"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above; both the marker and the cause
// stay unwrappable.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps a stage error to its disposition. Matching is ordered and
// the first hit wins; unrecognized errors default to transient because the
// execution envelope is idempotent and the attempt budget bounds retries.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassTransient
	case errors.Is(err, ErrInvariant), errors.Is(err, ErrConfiguration):
		return ClassFatal
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return ClassPermanent
	case errors.Is(err, ErrTransient), errors.Is(err, ErrExternalTool),
		errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassTransient
	}
}

// IsRetryable reports whether the error classifies as a transient fault.
func IsRetryable(err error) bool {
	return Classify(err) == ClassTransient
}

// FailureResult maps a stage error to the stage result the envelope should
// persist after the attempt fails.
func FailureResult(err error) catalog.StageResult {
	switch Classify(err) {
	case ClassFatal:
		return catalog.ResultFatal
	case ClassPermanent:
		return catalog.ResultPermanent
	default:
		return catalog.ResultRetryable
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
