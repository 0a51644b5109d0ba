// Package preflight provides readiness checks for filesystem paths and
// external services that Tome depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and refuses to come up when a
//     required directory is missing or unwritable.
//   - The CLI "tome status" command uses individual check functions
//     (CheckEmbeddingFromConfig, CheckDirectoryAccess) to display health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
