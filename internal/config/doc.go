// Package config loads, validates, and normalizes Tome configuration.
//
// Configuration comes from a TOML file (default ~/.config/tome/config.toml,
// or tome.toml in the working directory) layered over compiled-in defaults.
// All path fields are expanded and made absolute during Load, so downstream
// code never handles ~ or relative paths.
//
// Stage tuning follows a two-level scheme: [workflow] carries the pipeline
// defaults (attempt budget, backoff, timeout) and [stages.<name>] sections
// override them per stage. Helpers like StageMaxAttempts resolve the final
// value so callers never re-implement the fallback rules.
package config
