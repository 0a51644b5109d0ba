// Package tabular detects table regions in extracted document text.
//
// Two layouts are recognized: ruled tables drawn with pipe and rule
// characters (Markdown-style grids), and whitespace-aligned columns as
// produced by pdftotext in layout mode. Detected tables are written to a
// tables.json artifact with their cell contents so the parts-metadata stage
// can scan them without re-deriving layout.
package tabular
