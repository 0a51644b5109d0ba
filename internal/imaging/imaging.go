package imaging

import (
	"context"
	"encoding/json"
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
	"tome/internal/stage"
)

// ManifestArtifact is the filename of the image inventory artifact.
const ManifestArtifact = "images.json"

// imagesDirName is the staging subdirectory extracted images land in.
const imagesDirName = "images"

// Manifest summarizes the images extracted from a document.
type Manifest struct {
	Source string  `json:"source"`
	Count  int     `json:"count"`
	Images []Entry `json:"images"`
}

// Entry describes one extracted image file.
type Entry struct {
	File  string `json:"file"`
	Bytes int64  `json:"bytes"`
}

// Imager implements the images stage.
type Imager struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs the image inventory stage handler.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Imager {
	return &Imager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "imaging"),
	}
}

// Enabled reports whether the image inventory runs. Defaults on.
func (m *Imager) Enabled() bool {
	return m.cfg.StageEnabled("images", true)
}

// Prepare checks the staged source. PDF sources get the same structural
// validation the extract stage applies because the two stages are independent
// roots and either can reach a corrupt file first.
func (m *Imager) Prepare(ctx context.Context, doc *catalog.Document) error {
	staged := strings.TrimSpace(doc.StagedPath)
	if staged == "" {
		return services.Wrap(
			services.ErrValidation, "imaging", "validate inputs",
			"Document has no staged copy; resubmit the source file", nil)
	}
	if _, err := os.Stat(staged); err != nil {
		return services.Wrap(
			services.ErrValidation, "imaging", "validate inputs",
			fmt.Sprintf("Staged file %s is missing; resubmit the source file", staged), err)
	}
	if isPDF(staged) {
		if err := api.ValidateFile(staged, relaxedConfiguration()); err != nil {
			return services.Wrap(
				services.ErrValidation, "imaging", "validate pdf",
				"PDF failed structural validation; the file is corrupt or truncated", err)
		}
	}
	return nil
}

// Execute extracts embedded images and writes the images.json manifest.
// The images directory is replaced wholesale so retries never double-count.
func (m *Imager) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, m.logger)

	manifest := Manifest{
		Source: filepath.Base(doc.StagedPath),
		Images: []Entry{},
	}
	if isPDF(doc.StagedPath) {
		dir, err := stage.ArtifactDir(doc)
		if err != nil {
			return err
		}
		imagesDir := filepath.Join(dir, imagesDirName)
		if err := os.RemoveAll(imagesDir); err != nil {
			return services.Wrap(
				services.ErrTransient, "imaging", "reset images dir",
				"Failed clearing previous image extraction output", err)
		}
		if err := os.MkdirAll(imagesDir, 0o755); err != nil {
			return services.Wrap(
				services.ErrTransient, "imaging", "create images dir",
				"Failed creating the image extraction directory", err)
		}
		if err := api.ExtractImagesFile(doc.StagedPath, imagesDir, nil, relaxedConfiguration()); err != nil {
			return services.Wrap(
				services.ErrTransient, "imaging", "extract images",
				"PDF image extraction failed", err)
		}
		entries, err := inventoryDir(imagesDir)
		if err != nil {
			return err
		}
		manifest.Images = entries
	}
	manifest.Count = len(manifest.Images)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return services.Wrap(
			services.ErrInvariant, "imaging", "encode manifest",
			"Image manifest failed to serialize", err)
	}
	if _, err := stage.WriteArtifact(doc, ManifestArtifact, data); err != nil {
		return err
	}
	logger.Info("inventoried document images", logging.Int("image_count", manifest.Count))
	return nil
}

// HealthCheck reports readiness. Image extraction is pure library work, so
// only configuration can make the stage unready.
func (m *Imager) HealthCheck(ctx context.Context) stage.Health {
	const name = "imaging"
	if m.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(m.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	return stage.Healthy(name)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func relaxedConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func inventoryDir(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "imaging", "list images",
			"Failed listing extracted images", err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, services.Wrap(
				services.ErrTransient, "imaging", "stat image",
				"Failed reading extracted image metadata", err)
		}
		entries = append(entries, Entry{File: de.Name(), Bytes: info.Size()})
	}
	return entries, nil
}
