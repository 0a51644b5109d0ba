package indexing

import (
	"context"
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
	"tome/internal/textutil"
)

// Indexer implements the index stage.
type Indexer struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// New constructs the search indexing stage handler.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Indexer {
	return &Indexer{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "indexing"),
	}
}

// Enabled reports whether indexing runs. Defaults on.
func (i *Indexer) Enabled() bool {
	return i.cfg.StageEnabled("index", true)
}

// Prepare verifies the text artifact is present.
func (i *Indexer) Prepare(ctx context.Context, doc *catalog.Document) error {
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, extraction.TextArtifact)); err != nil {
		return services.Wrap(
			services.ErrNotFound, "indexing", "validate inputs",
			fmt.Sprintf("Text artifact %s missing; the extract stage must run before indexing", extraction.TextArtifact), err)
	}
	return nil
}

// Execute tokenizes the extracted text and replaces the document's search
// entry. Title tokens are counted on top of the body so short titles still
// rank for their own words.
func (i *Indexer) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, i.logger)

	text, err := stage.ReadArtifact(doc, extraction.TextArtifact)
	if err != nil {
		return err
	}

	postings := textutil.TermFrequencies(string(text))
	if postings == nil {
		postings = make(map[string]int)
	}
	for _, token := range textutil.Tokenize(doc.Title) {
		postings[token]++
	}

	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = filepath.Base(doc.SourcePath)
	}
	if err := i.store.ReplaceSearchEntry(ctx, doc.ID, title, doc.DocClass, postings); err != nil {
		return services.Wrap(
			services.ErrTransient, "indexing", "replace search entry",
			"Failed writing the search index entry", err)
	}

	total := 0
	for _, tf := range postings {
		total += tf
	}
	logger.Info("indexed document",
		logging.Int("distinct_terms", len(postings)),
		logging.Int("token_count", total),
		logging.String("doc_class", doc.DocClass),
	)
	return nil
}

// HealthCheck reports readiness. Indexing writes through the same catalog
// the envelope already requires.
func (i *Indexer) HealthCheck(ctx context.Context) stage.Health {
	const name = "indexing"
	if i.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if i.store == nil {
		return stage.Unhealthy(name, "catalog unavailable")
	}
	return stage.Healthy(name)
}
