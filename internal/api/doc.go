// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal catalog models into transport-friendly
// DTOs so CLI and HTTP consumers never couple to internal types.
//
// # Key Types
//
// Document: transport representation of a catalog entry with per-stage state,
// completion markers, classification, and parts metadata passthrough.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last
// processed document.
//
// DaemonStatus: aggregated runtime information including external dependency
// checks, PID, and lock path.
//
// # Converters
//
// FromDocument: catalog.Document -> Document with formatted timestamps and
// metadata passed through as json.RawMessage.
//
// FromStageStates: merges stage state rows with completion markers in
// registry order so every consumer renders stages the same way.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Workflows
//
// SubmitDocument and SweepCatalog implement the submission and maintenance
// flows shared by the CLI and the daemon. RetryFailedDocumentsByID and
// RemoveDocumentsByID wrap per-document actions so each ID reports its own
// outcome.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (catalog.Status, catalog.StageResult) are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds. Metadata is passed
// through as json.RawMessage to avoid double-encoding.
package api
