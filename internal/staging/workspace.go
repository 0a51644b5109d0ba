package staging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/fileutil"
	"tome/internal/idempotency"
	"tome/internal/logging"
	"tome/internal/textutil"
)

// Stage copies the document's source file into its staging workspace and
// persists the staged path and content hash. The workspace name embeds the
// content hash, so re-submitting an edited source lands in a fresh directory
// and the old one becomes an orphan for cleanup.
//
// Staging an unchanged document whose staged copy still exists is a no-op.
func Stage(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger, doc *catalog.Document) error {
	if cfg == nil || store == nil || doc == nil {
		return errors.New("staging requires config, store, and document")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	source := strings.TrimSpace(doc.SourcePath)
	if source == "" {
		return errors.New("document has no source path")
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source path %q is a directory", source)
	}

	hash, err := idempotency.HashFile(ctx, source)
	if err != nil {
		return fmt.Errorf("hash source file: %w", err)
	}

	if hash == doc.ContentHash && strings.TrimSpace(doc.StagedPath) != "" {
		if _, err := os.Stat(doc.StagedPath); err == nil {
			return nil
		}
	}

	previousHash := doc.ContentHash
	doc.ContentHash = hash
	root := doc.StagingRoot(cfg.Paths.StagingDir)
	if root == "" {
		doc.ContentHash = previousHash
		return errors.New("staging directory is not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		doc.ContentHash = previousHash
		return fmt.Errorf("create staging workspace: %w", err)
	}

	dest := filepath.Join(root, stagedFileName(source))
	if err := fileutil.CopyFileVerified(source, dest); err != nil {
		doc.ContentHash = previousHash
		return fmt.Errorf("copy source into staging: %w", err)
	}

	doc.StagedPath = dest
	if err := store.Update(ctx, doc); err != nil {
		doc.ContentHash = previousHash
		return fmt.Errorf("record staged path: %w", err)
	}

	logger.Info("document staged",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("staged_path", dest),
		logging.String("content_hash", hash),
		logging.String(logging.FieldEventType, "document_staged"),
	)
	return nil
}

// stagedFileName sanitizes the source base name for use inside the
// workspace. A name that sanitizes to nothing falls back to "document" with
// the original extension preserved.
func stagedFileName(source string) string {
	base := textutil.SanitizeFileName(filepath.Base(source))
	if strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base))) == "" {
		base = "document" + strings.ToLower(filepath.Ext(source))
	}
	return base
}

// ActiveRoots returns the workspace directory names still referenced by
// catalog documents, for orphan cleanup. Both the recorded staged path and
// the derived staging root count; they diverge only when a document was
// created but never staged.
func ActiveRoots(docs []*catalog.Document, base string) map[string]struct{} {
	active := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		if staged := strings.TrimSpace(doc.StagedPath); staged != "" {
			active[filepath.Base(filepath.Dir(staged))] = struct{}{}
		}
		if root := doc.StagingRoot(base); root != "" {
			active[filepath.Base(root)] = struct{}{}
		}
	}
	return active
}
