package tabular

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/stage"
)

// TablesArtifact is the filename of the detected-tables artifact.
const TablesArtifact = "tables.json"

const (
	// minRuledRows is the smallest number of data rows a piped region must
	// hold to count as a table.
	minRuledRows = 2
	// minAlignedRows is the smallest aligned block that counts as a table.
	minAlignedRows = 3
	// minColumnGap is the narrowest run of shared spaces that splits
	// aligned columns. pdftotext separates columns with two or more.
	minColumnGap = 2
	// maxAlignedBlock bounds how far a single aligned-block scan looks so
	// pathological documents without blank lines stay cheap.
	maxAlignedBlock = 256
)

// Manifest is the tables.json payload.
type Manifest struct {
	Count  int     `json:"count"`
	Tables []Table `json:"tables"`
}

// Table is one detected table region with its split cell contents.
type Table struct {
	StartLine int        `json:"start_line"`
	EndLine   int        `json:"end_line"`
	Kind      string     `json:"kind"`
	Columns   int        `json:"columns"`
	Rows      [][]string `json:"rows"`
}

// Detector implements the tables stage.
type Detector struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs the table detection stage handler.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "tabular"),
	}
}

// Enabled reports whether table detection runs. Defaults on.
func (d *Detector) Enabled() bool {
	return d.cfg.StageEnabled("tables", true)
}

// Prepare verifies the text artifact from the extract stage is present.
func (d *Detector) Prepare(ctx context.Context, doc *catalog.Document) error {
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, extraction.TextArtifact)); err != nil {
		return services.Wrap(
			services.ErrNotFound, "tabular", "validate inputs",
			fmt.Sprintf("Text artifact %s missing; the extract stage must run before table detection", extraction.TextArtifact), err)
	}
	return nil
}

// Execute scans the extracted text and writes the tables.json artifact.
func (d *Detector) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, d.logger)

	text, err := stage.ReadArtifact(doc, extraction.TextArtifact)
	if err != nil {
		return err
	}
	manifest := Manifest{Tables: Detect(string(text))}
	manifest.Count = len(manifest.Tables)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return services.Wrap(
			services.ErrInvariant, "tabular", "encode manifest",
			"Table manifest failed to serialize", err)
	}
	if _, err := stage.WriteArtifact(doc, TablesArtifact, data); err != nil {
		return err
	}
	logger.Info("detected tables", logging.Int("table_count", manifest.Count))
	return nil
}

// HealthCheck reports readiness. Detection is pure computation, so only
// configuration can make the stage unready.
func (d *Detector) HealthCheck(ctx context.Context) stage.Health {
	const name = "tabular"
	if d.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	return stage.Healthy(name)
}

// Detect finds table regions in normalized document text. Ruled layouts take
// precedence over aligned ones because piped rows also carry the aligned
// signature.
func Detect(text string) []Table {
	lines := strings.Split(text, "\n")
	tables := []Table{}
	i := 0
	for i < len(lines) {
		if table, next, ok := scanRuled(lines, i); ok {
			tables = append(tables, table)
			i = next
			continue
		}
		if table, next, ok := scanAligned(lines, i); ok {
			tables = append(tables, table)
			i = next
			continue
		}
		i++
	}
	return tables
}

// scanRuled collects the maximal run of piped lines starting at start and
// accepts it when it holds enough data rows and at least two columns.
func scanRuled(lines []string, start int) (Table, int, bool) {
	end := start
	dataRows := 0
	for end < len(lines) && isPiped(lines[end]) {
		if !isRuleLine(lines[end]) {
			dataRows++
		}
		end++
	}
	if dataRows < minRuledRows {
		return Table{}, start, false
	}

	rows := make([][]string, 0, dataRows)
	columns := 0
	for _, line := range lines[start:end] {
		if isRuleLine(line) {
			continue
		}
		cells := splitPiped(line)
		if len(cells) > columns {
			columns = len(cells)
		}
		rows = append(rows, cells)
	}
	if columns < 2 {
		return Table{}, start, false
	}
	return Table{
		StartLine: start + 1,
		EndLine:   end,
		Kind:      "ruled",
		Columns:   columns,
		Rows:      rows,
	}, end, true
}

// scanAligned inspects the block of consecutive non-blank lines starting at
// start and accepts it when every line shares interior space runs wide
// enough to split into columns.
func scanAligned(lines []string, start int) (Table, int, bool) {
	end := start
	for end < len(lines) && end-start < maxAlignedBlock && strings.TrimSpace(lines[end]) != "" {
		end++
	}
	block := lines[start:end]
	if len(block) < minAlignedRows {
		return Table{}, start, false
	}
	cuts := columnCuts(block)
	if len(cuts) == 0 {
		return Table{}, start, false
	}
	return Table{
		StartLine: start + 1,
		EndLine:   end,
		Kind:      "aligned",
		Columns:   len(cuts) + 1,
		Rows:      splitAtCuts(block, cuts),
	}, end, true
}

func isPiped(line string) bool {
	return strings.Count(line, "|") >= 2
}

// isRuleLine reports whether a line is pure table drawing: rule glyphs and
// spaces with at least one horizontal stroke.
func isRuleLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	hasStroke := false
	for _, r := range trimmed {
		switch r {
		case '|', '+', ':', ' ':
		case '-', '=':
			hasStroke = true
		default:
			return false
		}
	}
	return hasStroke
}

func splitPiped(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, 0, len(parts))
	for _, part := range parts {
		cells = append(cells, strings.TrimSpace(part))
	}
	return cells
}

// columnCuts returns the interior ranges where every line in the block has a
// space (or has already ended). Positions past a line's end count as spaces
// so short rows do not break alignment.
func columnCuts(block []string) [][2]int {
	width := 0
	for _, line := range block {
		if len(line) > width {
			width = len(line)
		}
	}
	shared := make([]bool, width)
	for pos := range shared {
		shared[pos] = true
		for _, line := range block {
			if pos < len(line) && line[pos] != ' ' {
				shared[pos] = false
				break
			}
		}
	}

	lead := 0
	for lead < width && shared[lead] {
		lead++
	}
	tail := width
	for tail > lead && shared[tail-1] {
		tail--
	}

	var cuts [][2]int
	pos := lead
	for pos < tail {
		if !shared[pos] {
			pos++
			continue
		}
		runStart := pos
		for pos < tail && shared[pos] {
			pos++
		}
		if pos-runStart >= minColumnGap {
			cuts = append(cuts, [2]int{runStart, pos})
		}
	}
	return cuts
}

func splitAtCuts(block []string, cuts [][2]int) [][]string {
	rows := make([][]string, 0, len(block))
	for _, line := range block {
		cells := make([]string, 0, len(cuts)+1)
		prev := 0
		for _, cut := range cuts {
			cells = append(cells, sliceTrim(line, prev, cut[0]))
			prev = cut[1]
		}
		cells = append(cells, sliceTrim(line, prev, len(line)))
		rows = append(rows, cells)
	}
	return rows
}

func sliceTrim(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}
