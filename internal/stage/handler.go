package stage

import (
	"context"

	"tome/internal/catalog"
)

// Handler describes the contract the execution envelope needs from each
// pipeline stage. Implementations carry the domain work only: they never
// write completion markers, never touch advisory locks, never classify their
// own errors, and never publish alerts.
//
// Handlers receive a private copy of the document. Stages on one document can
// run concurrently, so document facts (page count, class, metadata) are
// persisted through the catalog's column-level setters rather than by writing
// the copy back.
type Handler interface {
	// Enabled reports whether the stage should run for the current
	// configuration. A disabled stage satisfies its dependents as skipped; a
	// registered handler is never nil.
	Enabled() bool
	Prepare(context.Context, *catalog.Document) error
	Execute(context.Context, *catalog.Document) error
	HealthCheck(context.Context) Health
}

// Health summarizes the readiness of a pipeline stage.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy constructs a ready Health record.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy constructs an unhealthy Health record with context detail.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
