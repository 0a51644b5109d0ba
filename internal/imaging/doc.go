// Package imaging inventories the embedded images of PDF documents.
//
// Images are extracted with pdfcpu into an images/ directory beside the
// staged source and summarized in an images.json manifest. Non-PDF sources
// produce an empty manifest so the indexing stage can always rely on the
// artifact existing.
package imaging
