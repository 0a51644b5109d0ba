// Package workflow drives documents through the processing pipeline.
//
// The Manager polls the catalog for pending documents, leases each one to a
// pooled worker, and repeatedly dispatches every stage the dependency graph
// marks ready, running independent stages in parallel. Between passes it
// reclaims documents whose worker stopped heartbeating, sweeps expired
// advisory locks so their stages re-open, and refreshes queue depth gauges.
// Completed and failed documents raise alerts through the durable alert
// queue.
//
// Per-stage semantics (completion markers, advisory locks, retry scheduling,
// error classification) live in internal/stageexec; this package owns
// scheduling, the document lifecycle, and the pipeline wiring in
// DefaultStages. Add a stage by extending DefaultStages with a definition and
// handler; the registry validates the dependency graph at construction.
package workflow
