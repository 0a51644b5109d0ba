// Package textutil provides the text processing shared by the pipeline
// stages: token fingerprints and cosine similarity for classification, term
// frequencies for search indexing, whitespace-safe excerpts for catalog
// rows, and filename sanitization for the staging layer.
//
// Tokenization lowercases text, splits on non-alphanumeric runs, and drops
// short tokens and common English stopwords so fingerprints weight the
// vocabulary that actually distinguishes technical documents.
package textutil
