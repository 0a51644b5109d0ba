// Package daemon coordinates the long-running Tome process and its control
// surfaces.
//
// It wires configuration, the catalog store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes catalog maintenance helpers, accepts document
// submissions, reports dependency health, and serves the HTTP API (status,
// document listings, liveness, Prometheus metrics) when a bind address is
// configured.
//
// Keep orchestration logic here: individual pipeline stages live in their
// own packages while the daemon focuses on startup, shutdown, and high level
// coordination.
package daemon
