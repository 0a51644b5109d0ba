// Package extraction turns staged documents into the plain text artifact
// every downstream stage reads.
//
// PDF sources are structurally validated and page-counted with pdfcpu, then
// run through the external pdftotext tool in layout mode so column alignment
// survives for the table detector. Plain text and Markdown sources are read
// directly. Either way the stage normalizes line endings and writes text.txt
// beside the staged source copy.
package extraction
