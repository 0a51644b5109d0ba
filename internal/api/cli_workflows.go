package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/locks"
	"tome/internal/logging"
	"tome/internal/staging"
)

type SubmitOutcome string

const (
	// SubmitQueued means a new catalog row was created and staged.
	SubmitQueued SubmitOutcome = "queued"
	// SubmitAlreadyQueued means the document is pending or in progress.
	SubmitAlreadyQueued SubmitOutcome = "already_queued"
	// SubmitUnchanged means the document already completed with this content.
	SubmitUnchanged SubmitOutcome = "unchanged"
	// SubmitRequeued means a terminal document was staged again for processing.
	SubmitRequeued SubmitOutcome = "requeued"
)

type SubmitDocumentRequest struct {
	Config     *config.Config
	Store      *catalog.Store
	Logger     *slog.Logger
	SourcePath string
	Title      string
}

type SubmitDocumentResult struct {
	Document *catalog.Document
	Outcome  SubmitOutcome
}

// SubmitDocument validates a source file and records intent to process it.
// Re-submitting while a document is pending or in progress returns the
// existing row untouched. Re-submitting a completed document with unchanged
// content is a no-op; changed content stages a fresh workspace and requeues.
func SubmitDocument(ctx context.Context, req SubmitDocumentRequest) (SubmitDocumentResult, error) {
	cfg := req.Config
	if cfg == nil {
		return SubmitDocumentResult{}, fmt.Errorf("configuration is required")
	}
	store := req.Store
	if store == nil {
		return SubmitDocumentResult{}, fmt.Errorf("catalog store is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	source := strings.TrimSpace(req.SourcePath)
	if source == "" {
		return SubmitDocumentResult{}, fmt.Errorf("source file path is required")
	}
	source, _ = filepath.Abs(source)
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return SubmitDocumentResult{}, fmt.Errorf("source file %q not found", source)
		}
		return SubmitDocumentResult{}, fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return SubmitDocumentResult{}, fmt.Errorf("source path %q is a directory", source)
	}

	existing, err := store.FindBySourcePath(ctx, source)
	if err != nil {
		return SubmitDocumentResult{}, fmt.Errorf("check existing document: %w", err)
	}
	if existing != nil {
		return resubmitDocument(ctx, cfg, store, logger, existing)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	doc, err := store.NewDocument(ctx, source, title, uuid.NewString())
	if err != nil {
		return SubmitDocumentResult{}, fmt.Errorf("create document: %w", err)
	}
	if err := staging.Stage(ctx, cfg, store, logger, doc); err != nil {
		doc.SetFailed(fmt.Sprintf("staging failed: %v", err))
		if updateErr := store.Update(ctx, doc); updateErr != nil {
			logger.Warn("failed to record staging failure",
				logging.Error(updateErr),
				logging.Int64(logging.FieldDocumentID, doc.ID),
				logging.String(logging.FieldEventType, "document_update_failed"),
				logging.String(logging.FieldErrorHint, "check catalog database access"),
				logging.String(logging.FieldImpact, "document stays pending without a staged copy"),
			)
		}
		return SubmitDocumentResult{}, fmt.Errorf("stage document: %w", err)
	}

	logger.Info("document submitted",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("source_path", doc.SourcePath),
		logging.String("request_id", doc.RequestID),
		logging.String(logging.FieldEventType, "document_submitted"),
	)
	return SubmitDocumentResult{Document: doc, Outcome: SubmitQueued}, nil
}

func resubmitDocument(ctx context.Context, cfg *config.Config, store *catalog.Store, logger *slog.Logger, doc *catalog.Document) (SubmitDocumentResult, error) {
	if doc.Status == catalog.StatusPending || doc.Status == catalog.StatusInProgress {
		return SubmitDocumentResult{Document: doc, Outcome: SubmitAlreadyQueued}, nil
	}

	previousHash := doc.ContentHash
	if err := staging.Stage(ctx, cfg, store, logger, doc); err != nil {
		return SubmitDocumentResult{}, fmt.Errorf("stage document: %w", err)
	}
	if doc.Status == catalog.StatusCompleted && doc.ContentHash == previousHash {
		return SubmitDocumentResult{Document: doc, Outcome: SubmitUnchanged}, nil
	}

	doc.Status = catalog.StatusPending
	doc.ErrorMessage = ""
	doc.NextAttemptAt = nil
	doc.CompletedAt = nil
	doc.RequestID = uuid.NewString()
	if err := store.Update(ctx, doc); err != nil {
		return SubmitDocumentResult{}, fmt.Errorf("requeue document: %w", err)
	}

	logger.Info("document requeued",
		logging.Int64(logging.FieldDocumentID, doc.ID),
		logging.String("content_hash", doc.ContentHash),
		logging.String("request_id", doc.RequestID),
		logging.String(logging.FieldEventType, "document_requeued"),
	)
	return SubmitDocumentResult{Document: doc, Outcome: SubmitRequeued}, nil
}

type SweepCatalogRequest struct {
	Config *config.Config
	Store  *catalog.Store
	Logger *slog.Logger
	// AlertRetention bounds how long sent alerts are kept. Zero keeps them.
	AlertRetention time.Duration
}

type SweepCatalogResult struct {
	DocumentsReclaimed int64    `json:"documentsReclaimed"`
	LocksExpired       int      `json:"locksExpired"`
	WorkspacesRemoved  []string `json:"workspacesRemoved,omitempty"`
	AlertsPurged       int64    `json:"alertsPurged"`
}

// SweepCatalog performs the maintenance pass the daemon runs periodically:
// reclaim documents with stale heartbeats, expire advisory locks, remove
// staging workspaces no live document references, and purge old sent alerts.
func SweepCatalog(ctx context.Context, req SweepCatalogRequest) (SweepCatalogResult, error) {
	cfg := req.Config
	if cfg == nil {
		return SweepCatalogResult{}, fmt.Errorf("configuration is required")
	}
	store := req.Store
	if store == nil {
		return SweepCatalogResult{}, fmt.Errorf("catalog store is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var result SweepCatalogResult

	heartbeatCutoff := time.Now().UTC().Add(-time.Duration(cfg.Workflow.HeartbeatTimeout) * time.Second)
	reclaimed, err := store.ReclaimStale(ctx, heartbeatCutoff)
	if err != nil {
		return result, fmt.Errorf("reclaim stale documents: %w", err)
	}
	result.DocumentsReclaimed = reclaimed

	lockTTL := time.Duration(cfg.Workflow.LockTimeout) * time.Second
	lockInterval := time.Duration(cfg.Workflow.LockHeartbeatInterval) * time.Second
	expired, err := locks.NewManager(store, logger, lockTTL, lockInterval).Sweep(ctx)
	if err != nil {
		return result, fmt.Errorf("sweep advisory locks: %w", err)
	}
	result.LocksExpired = expired

	docs, err := store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("list documents: %w", err)
	}
	active := staging.ActiveRoots(docs, cfg.Paths.StagingDir)
	cleanup := staging.CleanOrphaned(ctx, cfg.Paths.StagingDir, active, logger)
	result.WorkspacesRemoved = cleanup.Removed
	for _, cleanupErr := range cleanup.Errors {
		logger.Warn("staging cleanup error",
			logging.String("path", cleanupErr.Path),
			logging.String("error", cleanupErr.Error.Error()),
			logging.String(logging.FieldEventType, "staging_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
	}

	if req.AlertRetention > 0 {
		purged, err := store.PurgeSentAlerts(ctx, time.Now().UTC().Add(-req.AlertRetention))
		if err != nil {
			return result, fmt.Errorf("purge sent alerts: %w", err)
		}
		result.AlertsPurged = purged
	}

	logger.Info("catalog sweep finished",
		logging.Int64("documents_reclaimed", result.DocumentsReclaimed),
		logging.Int("locks_expired", result.LocksExpired),
		logging.Int("workspaces_removed", len(result.WorkspacesRemoved)),
		logging.Int64("alerts_purged", result.AlertsPurged),
		logging.String(logging.FieldEventType, "catalog_sweep_finished"),
	)
	return result, nil
}
