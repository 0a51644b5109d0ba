// Package embedding generates vector embeddings for extracted document text
// through an OpenAI-compatible endpoint.
//
// The stage is a capability: it stays disabled until embedding.base_url is
// configured. Text is chunked on paragraph boundaries, embedded in one batch
// request, and written to an embeddings.json artifact for the indexing
// stage.
package embedding
