package partsmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"log/slog"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/stage"
	"tome/internal/tabular"
	"tome/internal/textutil"
)

// PartsArtifact is the filename of the mined parts artifact.
const PartsArtifact = "parts.json"

// maxSummaryParts bounds how many part numbers the catalog metadata column
// carries; the full list stays in the artifact.
const maxSummaryParts = 10

// partPattern matches the two dominant part number shapes: letter-prefixed
// (LM317, SN74HC595N) and digit-prefixed (1N4148, 2N2222).
var partPattern = regexp.MustCompile(`\b(?:[A-Z]{1,5}[0-9]{2,6}[A-Z0-9-]*|[0-9]{1,2}[A-Z]{1,3}[0-9]{2,6}[A-Z0-9]*)\b`)

// blockedPrefixes excludes standards references that share the part number
// shape (ISO9001, IEC60950) but describe compliance, not components.
var blockedPrefixes = []string{"ISO", "IEC", "DIN", "RFC", "REV", "UL"}

// manufacturers is the built-in vendor name list, matched case-insensitively
// against whitespace-normalized text.
var manufacturers = []string{
	"Analog Devices",
	"Bourns",
	"Broadcom",
	"Diodes Incorporated",
	"Infineon",
	"Littelfuse",
	"Microchip",
	"Molex",
	"Murata",
	"NXP",
	"Nexperia",
	"ON Semiconductor",
	"Panasonic",
	"Renesas",
	"Rohm",
	"STMicroelectronics",
	"TDK",
	"TE Connectivity",
	"Texas Instruments",
	"Toshiba",
	"Vishay",
}

// Part is one mined part number.
type Part struct {
	Number   string `json:"number"`
	Mentions int    `json:"mentions"`
	InTable  bool   `json:"in_table"`
}

// Manifest is the parts.json payload.
type Manifest struct {
	Parts         []Part   `json:"parts"`
	Manufacturers []string `json:"manufacturers"`
}

// Summary is the compact form persisted on the catalog row.
type Summary struct {
	PartCount     int      `json:"part_count"`
	TopParts      []string `json:"top_parts"`
	Manufacturers []string `json:"manufacturers"`
}

// Miner implements the partsmeta stage.
type Miner struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs the parts metadata stage handler.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Miner {
	return &Miner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "partsmeta"),
	}
}

// Enabled reports whether parts mining runs. Defaults on.
func (m *Miner) Enabled() bool {
	return m.cfg.StageEnabled("partsmeta", true)
}

// Prepare verifies the text artifact is present. The tables artifact is
// optional because a skipped tables stage still satisfies the dependency.
func (m *Miner) Prepare(ctx context.Context, doc *catalog.Document) error {
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, extraction.TextArtifact)); err != nil {
		return services.Wrap(
			services.ErrNotFound, "partsmeta", "validate inputs",
			fmt.Sprintf("Text artifact %s missing; the extract stage must run before parts mining", extraction.TextArtifact), err)
	}
	return nil
}

// Execute mines the text and table cells, writes parts.json, and records the
// summary as catalog metadata.
func (m *Miner) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, m.logger)

	text, err := stage.ReadArtifact(doc, extraction.TextArtifact)
	if err != nil {
		return err
	}
	tables, err := m.loadTables(doc)
	if err != nil {
		return err
	}

	manifest := Mine(string(text), tables)
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return services.Wrap(
			services.ErrInvariant, "partsmeta", "encode manifest",
			"Parts manifest failed to serialize", err)
	}
	if _, err := stage.WriteArtifact(doc, PartsArtifact, data); err != nil {
		return err
	}

	summaryJSON, err := json.Marshal(summarize(manifest))
	if err != nil {
		return services.Wrap(
			services.ErrInvariant, "partsmeta", "encode summary",
			"Parts summary failed to serialize", err)
	}
	doc.MetadataJSON = string(summaryJSON)
	if err := m.store.SetMetadata(ctx, doc.ID, doc.MetadataJSON); err != nil {
		return services.Wrap(
			services.ErrTransient, "partsmeta", "record metadata",
			"Failed persisting parts metadata to the catalog", err)
	}

	logger.Info("mined parts metadata",
		logging.Int("part_count", len(manifest.Parts)),
		logging.Int("manufacturer_count", len(manifest.Manufacturers)),
	)
	return nil
}

// loadTables reads the tables artifact when the tables stage produced one.
func (m *Miner) loadTables(doc *catalog.Document) ([]tabular.Table, error) {
	data, err := stage.ReadArtifact(doc, tabular.TablesArtifact)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var manifest tabular.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, services.Wrap(
			services.ErrValidation, "partsmeta", "decode tables",
			"Tables artifact is not valid JSON; rerun the tables stage", err)
	}
	return manifest.Tables, nil
}

// HealthCheck reports readiness. Mining is pure computation.
func (m *Miner) HealthCheck(ctx context.Context) stage.Health {
	const name = "partsmeta"
	if m.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	return stage.Healthy(name)
}

// Mine extracts part numbers and manufacturer names from text and table
// cells. Mentions count text occurrences; table cells only mark provenance
// because detected tables are regions of the same text.
func Mine(text string, tables []tabular.Table) Manifest {
	mentions := make(map[string]int)
	for _, match := range partPattern.FindAllString(text, -1) {
		if blocked(match) {
			continue
		}
		mentions[match]++
	}

	inTable := make(map[string]bool)
	for _, table := range tables {
		for _, row := range table.Rows {
			for _, cell := range row {
				for _, match := range partPattern.FindAllString(cell, -1) {
					if blocked(match) {
						continue
					}
					inTable[match] = true
					if _, seen := mentions[match]; !seen {
						mentions[match] = 1
					}
				}
			}
		}
	}

	parts := make([]Part, 0, len(mentions))
	for number, count := range mentions {
		parts = append(parts, Part{Number: number, Mentions: count, InTable: inTable[number]})
	}
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].Mentions != parts[j].Mentions {
			return parts[i].Mentions > parts[j].Mentions
		}
		return parts[i].Number < parts[j].Number
	})

	return Manifest{
		Parts:         parts,
		Manufacturers: matchManufacturers(text),
	}
}

// blocked reports whether a match is a standards reference. The prefix must
// be followed by a digit so real parts like ULN2003 survive the UL rule.
func blocked(part string) bool {
	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(part, prefix) && len(part) > len(prefix) {
			if next := part[len(prefix)]; next >= '0' && next <= '9' {
				return true
			}
		}
	}
	return false
}

func matchManufacturers(text string) []string {
	normalized := strings.ToLower(textutil.NormalizeWhitespace(text))
	found := make([]string, 0, 4)
	for _, vendor := range manufacturers {
		if strings.Contains(normalized, strings.ToLower(vendor)) {
			found = append(found, vendor)
		}
	}
	return found
}

func summarize(manifest Manifest) Summary {
	top := make([]string, 0, maxSummaryParts)
	for i, part := range manifest.Parts {
		if i >= maxSummaryParts {
			break
		}
		top = append(top, part.Number)
	}
	return Summary{
		PartCount:     len(manifest.Parts),
		TopParts:      top,
		Manufacturers: manifest.Manufacturers,
	}
}
