// Package catalog persists pipeline documents in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stale-lease recovery, and status transitions
// that mirror the public document enum. Alongside documents it owns the
// per-stage execution state, the completion markers that make stage work
// idempotent, the advisory locks that keep concurrent runs off the same
// document, the alert outbox, and the search postings written by the index
// stage.
//
// The database is the durable record of pipeline progress: markers and search
// rows survive daemon restarts, while lease and lock state is reclaimed by
// sweep routines when a holder dies. Schema changes bump the version in
// schema.go; users clear the database to adopt the new schema.
//
// Treat this package as the single source of truth for catalog semantics; when
// you add new statuses or stage results, update schema.sql and bump
// schemaVersion.
package catalog
