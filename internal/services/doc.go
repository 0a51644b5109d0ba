// Package services defines the shared vocabulary stage handlers use to talk
// to the execution envelope.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, attempt numbers,
//     and request IDs, plus the CorrelationID assembler used for tracing.
//   - Sentinel error markers and the Wrap helper that translate stage
//     failures into consistent dispositions (retryable vs permanent vs
//     fatal).
//   - Thin wrappers around external tools so command execution stays
//     testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the
// pipeline.
package services
