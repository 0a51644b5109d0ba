package extraction

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/services/pdftotext"
	"tome/internal/stage"
)

// TextArtifact is the filename of the extracted plain text artifact.
const TextArtifact = "text.txt"

// Extractor implements the extract stage.
type Extractor struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
	pdf    *pdftotext.Client
}

// New constructs the extraction stage handler with default dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Extractor {
	return NewWithClient(cfg, store, logger, pdftotext.NewClient(cfg.PdftotextBinary()))
}

// NewWithClient allows injecting the pdftotext client (used in tests).
func NewWithClient(cfg *config.Config, store *catalog.Store, logger *slog.Logger, client *pdftotext.Client) *Extractor {
	return &Extractor{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "extraction"),
		pdf:    client,
	}
}

// Enabled reports whether text extraction runs. The stage roots the pipeline
// and defaults on.
func (e *Extractor) Enabled() bool {
	return e.cfg.StageEnabled("extract", true)
}

// Prepare validates the staged source before any text-producing work runs.
// PDF sources are structurally checked and page-counted so the catalog can
// report document size even when later stages fail.
func (e *Extractor) Prepare(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, e.logger)
	staged := strings.TrimSpace(doc.StagedPath)
	if staged == "" {
		return services.Wrap(
			services.ErrValidation, "extraction", "validate inputs",
			"Document has no staged copy; resubmit the source file", nil)
	}
	if _, err := os.Stat(staged); err != nil {
		return services.Wrap(
			services.ErrValidation, "extraction", "validate inputs",
			fmt.Sprintf("Staged file %s is missing; resubmit the source file", staged), err)
	}

	switch classifySource(staged) {
	case sourcePDF:
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.ValidateFile(staged, conf); err != nil {
			return services.Wrap(
				services.ErrValidation, "extraction", "validate pdf",
				"PDF failed structural validation; the file is corrupt or truncated", err)
		}
		pages, err := api.PageCountFile(staged)
		if err != nil {
			return services.Wrap(
				services.ErrValidation, "extraction", "count pages",
				"Could not determine PDF page count", err)
		}
		doc.PageCount = pages
		if err := e.store.SetPageCount(ctx, doc.ID, pages); err != nil {
			return services.Wrap(
				services.ErrTransient, "extraction", "record page count",
				"Failed persisting page count to the catalog", err)
		}
		logger.Debug("validated pdf source", logging.Int("page_count", pages))
	case sourceText:
		logger.Debug("staged source is plain text")
	default:
		return services.Wrap(
			services.ErrValidation, "extraction", "validate inputs",
			fmt.Sprintf("Unsupported source format %q; supported formats are .pdf, .txt, and .md", filepath.Ext(staged)), nil)
	}
	return nil
}

// Execute writes the text.txt artifact into the document's staging directory.
func (e *Extractor) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, e.logger)

	var (
		text []byte
		err  error
	)
	switch classifySource(doc.StagedPath) {
	case sourcePDF:
		text, err = e.extractPDF(ctx, doc)
	case sourceText:
		text, err = os.ReadFile(doc.StagedPath)
		if err != nil {
			err = services.Wrap(
				services.ErrTransient, "extraction", "read source",
				"Failed reading staged text source", err)
		}
	default:
		err = services.Wrap(
			services.ErrValidation, "extraction", "read source",
			fmt.Sprintf("Unsupported source format %q", filepath.Ext(doc.StagedPath)), nil)
	}
	if err != nil {
		return err
	}

	normalized := normalizeLineEndings(text)
	path, err := stage.WriteArtifact(doc, TextArtifact, normalized)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(normalized)) == 0 {
		logger.Warn("extraction produced no text",
			logging.String("staged_path", doc.StagedPath),
			logging.Int("page_count", doc.PageCount),
		)
	}
	logger.Info("extracted document text",
		logging.String("artifact", path),
		logging.Int("text_bytes", len(normalized)),
		logging.Int("page_count", doc.PageCount),
	)
	return nil
}

func (e *Extractor) extractPDF(ctx context.Context, doc *catalog.Document) ([]byte, error) {
	if e.pdf == nil || !e.pdf.Available() {
		binary := "pdftotext"
		if e.pdf != nil {
			binary = e.pdf.Binary()
		}
		return nil, services.Wrap(
			services.ErrConfiguration, "extraction", "locate binary",
			fmt.Sprintf("%s not found on PATH; install poppler-utils to process PDF sources", binary), nil)
	}
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(dir, TextArtifact+".tmp")
	defer os.Remove(dest)
	if err := e.pdf.Extract(ctx, doc.StagedPath, dest); err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "extraction", "run pdftotext",
			"pdftotext failed; the tool may have crashed or the PDF may use unsupported encryption", err)
	}
	text, err := os.ReadFile(dest)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "extraction", "read output",
			"pdftotext produced no readable output", err)
	}
	return text, nil
}

// HealthCheck verifies the external pdftotext dependency is reachable.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	const name = "extraction"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(e.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if e.pdf == nil {
		return stage.Unhealthy(name, "pdftotext client unavailable")
	}
	if !e.pdf.Available() {
		return stage.Unhealthy(name, fmt.Sprintf("pdftotext binary %q not found", e.pdf.Binary()))
	}
	return stage.Healthy(name)
}

type sourceKind int

const (
	sourceUnknown sourceKind = iota
	sourcePDF
	sourceText
)

func classifySource(path string) sourceKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return sourcePDF
	case ".txt", ".md":
		return sourceText
	default:
		return sourceUnknown
	}
}

// normalizeLineEndings rewrites CRLF and bare CR to LF so artifact hashes and
// table detection behave identically across source platforms.
func normalizeLineEndings(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	return bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
}
