// Package indexing writes the final search entry for a completed pipeline
// pass: a per-document row plus term/frequency postings in the catalog.
//
// The stage depends on everything upstream so a document only becomes
// searchable once its text, class, parts, and optional embeddings are in
// place. Reindexing replaces the postings wholesale.
package indexing
