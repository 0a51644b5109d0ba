package workflow

import (
	"log/slog"

	"tome/internal/catalog"
	"tome/internal/classification"
	"tome/internal/config"
	"tome/internal/embedding"
	"tome/internal/extraction"
	"tome/internal/imaging"
	"tome/internal/indexing"
	"tome/internal/partsmeta"
	"tome/internal/stage"
	"tome/internal/tabular"
)

// DefaultStages wires the production pipeline. Extraction and image capture
// start from the staged file; everything downstream consumes their artifacts,
// and indexing waits for every enrichment stage so the search entry is built
// once, from complete facts. Stage enablement lives in each handler's Enabled
// method; the registry validates the dependency graph at construction.
func DefaultStages(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*stage.Registry, error) {
	return stage.NewRegistry(
		stage.Registration{
			Definition: definitionFor(cfg, "extract", "Text Extraction"),
			Handler:    extraction.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "images", "Image Extraction"),
			Handler:    imaging.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "tables", "Table Detection", "extract"),
			Handler:    tabular.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "classify", "Classification", "extract"),
			Handler:    classification.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "embed", "Embeddings", "extract"),
			Handler:    embedding.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "partsmeta", "Parts Metadata", "extract", "tables"),
			Handler:    partsmeta.New(cfg, store, logger),
		},
		stage.Registration{
			Definition: definitionFor(cfg, "index", "Search Indexing", "classify", "partsmeta", "embed", "images"),
			Handler:    indexing.New(cfg, store, logger),
		},
	)
}

func definitionFor(cfg *config.Config, name, displayName string, requires ...string) stage.Definition {
	// Every built-in stage replaces its artifacts wholesale, so all of them
	// earn completion markers.
	return stage.Definition{
		Name:         name,
		DisplayName:  displayName,
		Requires:     requires,
		Idempotent:   true,
		MaxAttempts:  cfg.StageMaxAttempts(name),
		RetryBackoff: cfg.StageRetryBackoff(name),
		Timeout:      cfg.StageTimeout(name),
	}
}
