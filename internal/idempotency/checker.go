package idempotency

import (
	"context"
	"log/slog"
	"strings"

	"tome/internal/catalog"
	"tome/internal/logging"
	"tome/internal/services"
)

// Checker answers skip decisions from completion markers and keeps a
// document's stored content hash current.
type Checker struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewChecker builds a checker over the catalog store.
func NewChecker(store *catalog.Store, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Checker{store: store, logger: logger.With(logging.String("component", "idempotency"))}
}

// CompletedMarker returns the completion marker for the stage under the
// document's current content hash, or nil when the stage must run.
func (c *Checker) CompletedMarker(ctx context.Context, doc *catalog.Document, stage string) (*catalog.Marker, error) {
	if doc == nil || strings.TrimSpace(doc.ContentHash) == "" {
		return nil, nil
	}
	marker, err := c.store.Marker(ctx, doc.ID, stage, doc.ContentHash)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stage, "marker lookup", "query completion marker", err)
	}
	return marker, nil
}

// Refresh recomputes the document's content hash from its staged copy (or the
// original source before staging) and reconciles the catalog when the content
// changed. A changed hash re-opens every stage state; markers for the old
// hash stay behind and simply stop matching.
func (c *Checker) Refresh(ctx context.Context, doc *catalog.Document) (bool, error) {
	if doc == nil {
		return false, nil
	}
	path := strings.TrimSpace(doc.StagedPath)
	if path == "" {
		path = strings.TrimSpace(doc.SourcePath)
	}
	if path == "" {
		return false, services.Wrap(services.ErrValidation, "", "hash refresh", "document has no source path", nil)
	}

	current, err := HashFile(ctx, path)
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "", "hash refresh", "hash document content", err)
	}
	if current == doc.ContentHash {
		return false, nil
	}

	previous := doc.ContentHash
	doc.ContentHash = current
	if err := c.store.Update(ctx, doc); err != nil {
		doc.ContentHash = previous
		return false, err
	}
	if previous != "" {
		if err := c.store.ResetStageStates(ctx, doc.ID); err != nil {
			return false, err
		}
		c.logger.Info("content changed; stages re-opened",
			logging.Int64(logging.FieldDocumentID, doc.ID),
			logging.String("content_hash", current),
			logging.String("previous_hash", previous),
		)
	}
	return true, nil
}
