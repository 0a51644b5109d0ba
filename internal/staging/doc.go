// Package staging manages per-document staging workspaces under the
// configured staging directory.
//
// Stage copies a submitted source file into a content-addressed workspace
// and records the staged path on the catalog row; every pipeline stage reads
// and writes artifacts beside that staged copy. CleanStale and CleanOrphaned
// reclaim workspaces whose documents finished long ago or no longer exist,
// including directories abandoned when a re-submission changed the content
// hash.
package staging
