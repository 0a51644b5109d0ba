// Package pdftotext wraps the poppler pdftotext command-line tool used by
// the extract stage for PDF sources.
package pdftotext
