package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/stage"
)

// EmbeddingsArtifact is the filename of the embedding vectors artifact.
const EmbeddingsArtifact = "embeddings.json"

// Embedder is the slice of the langchaingo embedder this stage needs.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Vector is one embedded chunk.
type Vector struct {
	Index  int       `json:"index"`
	Chars  int       `json:"chars"`
	Values []float32 `json:"values"`
}

// Manifest is the embeddings.json payload.
type Manifest struct {
	Model     string   `json:"model"`
	Count     int      `json:"count"`
	Truncated bool     `json:"truncated,omitempty"`
	Vectors   []Vector `json:"vectors"`
}

// Service implements the embed stage.
type Service struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	embedder Embedder
	initErr  error
}

// New constructs the embedding stage handler. The endpoint client is built
// eagerly so configuration problems surface in health checks instead of at
// execution time.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Service {
	svc := &Service{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "embedding"),
	}
	if !cfg.EmbeddingConfigured() {
		return svc
	}
	token := strings.TrimSpace(cfg.Embedding.APIKey)
	if token == "" {
		// Local OpenAI-compatible services ignore the key, but the client
		// refuses to build without one.
		token = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.Embedding.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Embedding.Model),
	)
	if err != nil {
		svc.initErr = err
		return svc
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		svc.initErr = err
		return svc
	}
	svc.embedder = embedder
	return svc
}

// NewWithEmbedder allows injecting the embedder client (used in tests).
func NewWithEmbedder(cfg *config.Config, store *catalog.Store, logger *slog.Logger, embedder Embedder) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "embedding"),
		embedder: embedder,
	}
}

// Enabled reports whether embeddings run. The stage follows its config
// switch when set and otherwise turns on only once an endpoint is
// configured.
func (s *Service) Enabled() bool {
	return s.cfg.StageEnabled("embed", s.cfg.EmbeddingConfigured())
}

// Prepare validates endpoint configuration and the text artifact.
func (s *Service) Prepare(ctx context.Context, doc *catalog.Document) error {
	if !s.cfg.EmbeddingConfigured() {
		return services.Wrap(
			services.ErrConfiguration, "embedding", "validate configuration",
			"Embed stage enabled without an endpoint; set embedding.base_url or disable stages.embed", nil)
	}
	if s.initErr != nil {
		return services.Wrap(
			services.ErrConfiguration, "embedding", "build client",
			"Embedding client could not be constructed; check the [embedding] config section", s.initErr)
	}
	dir, err := stage.ArtifactDir(doc)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Join(dir, extraction.TextArtifact)); err != nil {
		return services.Wrap(
			services.ErrNotFound, "embedding", "validate inputs",
			fmt.Sprintf("Text artifact %s missing; the extract stage must run before embedding", extraction.TextArtifact), err)
	}
	return nil
}

// Execute chunks the extracted text, embeds all chunks in one batch, and
// writes the embeddings.json artifact.
func (s *Service) Execute(ctx context.Context, doc *catalog.Document) error {
	logger := logging.WithContext(ctx, s.logger)

	text, err := stage.ReadArtifact(doc, extraction.TextArtifact)
	if err != nil {
		return err
	}
	chunks, truncated := Chunk(string(text), s.cfg.Embedding.ChunkChars, s.cfg.Embedding.MaxChunks)
	manifest := Manifest{
		Model:     s.cfg.Embedding.Model,
		Truncated: truncated,
		Vectors:   []Vector{},
	}

	if len(chunks) > 0 {
		if s.embedder == nil {
			return services.Wrap(
				services.ErrConfiguration, "embedding", "build client",
				"Embedding client unavailable; check the [embedding] config section", s.initErr)
		}
		vectors, err := s.embedder.EmbedDocuments(ctx, chunks)
		if err != nil {
			return services.Wrap(
				services.ErrExternalTool, "embedding", "embed chunks",
				"Embedding endpoint request failed; check embedding.base_url connectivity", err)
		}
		if len(vectors) != len(chunks) {
			return services.Wrap(
				services.ErrExternalTool, "embedding", "embed chunks",
				fmt.Sprintf("Embedding endpoint returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
		}
		for i, values := range vectors {
			manifest.Vectors = append(manifest.Vectors, Vector{
				Index:  i,
				Chars:  utf8.RuneCountInString(chunks[i]),
				Values: values,
			})
		}
	}
	manifest.Count = len(manifest.Vectors)

	data, err := json.Marshal(manifest)
	if err != nil {
		return services.Wrap(
			services.ErrInvariant, "embedding", "encode manifest",
			"Embeddings manifest failed to serialize", err)
	}
	if _, err := stage.WriteArtifact(doc, EmbeddingsArtifact, data); err != nil {
		return err
	}

	if truncated {
		logger.Warn("embedding input truncated",
			logging.Int("chunk_count", manifest.Count),
			logging.Int("max_chunks", s.cfg.Embedding.MaxChunks),
		)
	}
	logger.Info("embedded document text",
		logging.Int("chunk_count", manifest.Count),
		logging.String("model", manifest.Model),
	)
	return nil
}

// HealthCheck reports endpoint readiness.
func (s *Service) HealthCheck(ctx context.Context) stage.Health {
	const name = "embedding"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if !s.cfg.EmbeddingConfigured() {
		return stage.Unhealthy(name, "embedding endpoint not configured")
	}
	if s.initErr != nil {
		return stage.Unhealthy(name, fmt.Sprintf("embedding client: %v", s.initErr))
	}
	if s.embedder == nil {
		return stage.Unhealthy(name, "embedding client unavailable")
	}
	return stage.Healthy(name)
}
