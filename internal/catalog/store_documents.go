package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NewDocument inserts a pending document for the given source path. The
// request ID ties every log line and alert for this submission together.
func (s *Store) NewDocument(ctx context.Context, sourcePath, title, requestID string) (*Document, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	ts := timestamp(now)

	if strings.TrimSpace(sourcePath) == "" {
		return nil, errors.New("source path is required")
	}
	if strings.TrimSpace(title) == "" {
		title = inferTitleFromPath(sourcePath)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO documents (source_path, title, status, request_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sourcePath,
		title,
		StatusPending,
		nullableString(requestID),
		ts,
		ts,
	)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a document by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Document, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// FindBySourcePath returns the document registered for a source path.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Document, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+documentColumns+` FROM documents WHERE source_path = ? LIMIT 1`,
		sourcePath,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source path: %w", err)
	}
	return doc, nil
}

// Update persists changes to an existing document.
func (s *Store) Update(ctx context.Context, doc *Document) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	ctx = ensureContext(ctx)
	doc.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET source_path = ?, staged_path = ?, title = ?, content_hash = ?, status = ?,
             request_id = ?, doc_class = ?, class_confidence = ?, page_count = ?,
             error_message = ?, metadata_json = ?, needs_review = ?, review_reason = ?,
             updated_at = ?, started_at = ?, completed_at = ?, next_attempt_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		doc.SourcePath,
		nullableString(doc.StagedPath),
		nullableString(doc.Title),
		nullableString(doc.ContentHash),
		doc.Status,
		nullableString(doc.RequestID),
		nullableString(doc.DocClass),
		doc.ClassConfidence,
		doc.PageCount,
		nullableString(doc.ErrorMessage),
		nullableString(doc.MetadataJSON),
		boolToInt(doc.NeedsReview),
		nullableString(doc.ReviewReason),
		timestamp(doc.UpdatedAt),
		nullableTime(doc.StartedAt),
		nullableTime(doc.CompletedAt),
		nullableTime(doc.NextAttemptAt),
		nullableTime(doc.LastHeartbeat),
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// SetPageCount records the page count discovered during extraction. Stages on
// one document run concurrently, so document facts are written column by
// column instead of through Update.
func (s *Store) SetPageCount(ctx context.Context, id int64, pages int) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET page_count = ?, updated_at = ? WHERE id = ?`,
		pages,
		timestamp(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set page count: %w", err)
	}
	return nil
}

// SetClassification records the class assigned to a document.
func (s *Store) SetClassification(ctx context.Context, id int64, class string, confidence float64) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET doc_class = ?, class_confidence = ?, updated_at = ? WHERE id = ?`,
		nullableString(class),
		confidence,
		timestamp(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set classification: %w", err)
	}
	return nil
}

// SetMetadata replaces the structured metadata payload for a document.
func (s *Store) SetMetadata(ctx context.Context, id int64, metadataJSON string) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET metadata_json = ?, updated_at = ? WHERE id = ?`,
		nullableString(metadataJSON),
		timestamp(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

// FlagForReview marks a document for human review without failing it.
func (s *Store) FlagForReview(ctx context.Context, id int64, reason string) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET needs_review = 1, review_reason = ?, updated_at = ? WHERE id = ?`,
		nullableString(reason),
		timestamp(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("flag for review: %w", err)
	}
	return nil
}

// List returns documents filtered by status set, oldest first. No statuses
// means all documents.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Document, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + documentColumns + ` FROM documents`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// LeaseNext claims the oldest pending document whose retry schedule is due.
// The claim is a compare-and-swap on status so concurrent pollers never lease
// the same document twice. Returns nil when nothing is eligible.
func (s *Store) LeaseNext(ctx context.Context, now time.Time) (*Document, error) {
	ctx = ensureContext(ctx)
	cutoff := timestamp(now)

	for {
		row := s.db.QueryRowContext(
			ctx,
			`SELECT `+documentColumns+` FROM documents
             WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
             ORDER BY created_at, id LIMIT 1`,
			StatusPending,
			cutoff,
		)
		doc, err := scanDocument(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("select next document: %w", err)
		}

		ts := timestamp(time.Now().UTC())
		res, err := s.execWithRetry(
			ctx,
			`UPDATE documents
             SET status = ?, started_at = COALESCE(started_at, ?), next_attempt_at = NULL,
                 last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusInProgress,
			ts,
			ts,
			ts,
			doc.ID,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("lease document: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("lease rows affected: %w", err)
		}
		if affected == 0 {
			// Another worker won the claim; try the next candidate.
			continue
		}
		return s.GetByID(ctx, doc.ID)
	}
}

// Park returns a leased document to pending with a wake-up time. The poll
// loop re-leases it once the earliest stage retry is due.
func (s *Store) Park(ctx context.Context, id int64, nextAttempt *time.Time) error {
	ctx = ensureContext(ctx)
	ts := timestamp(time.Now().UTC())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET status = ?, next_attempt_at = ?, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		nullableTime(nextAttempt),
		ts,
		id,
		StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("park document: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight document.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	now := timestamp(time.Now().UTC())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE documents SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStale returns in-progress documents with expired heartbeats back to
// pending so another worker can resume them after a crash.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	now := timestamp(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		now,
		StatusInProgress,
		timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale documents: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseInFlight returns every leased document to the queue and reopens its
// running stages. Called during clean shutdown so a restart resumes the work
// immediately instead of waiting out heartbeat and lock expiry.
func (s *Store) ReleaseInFlight(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	now := timestamp(time.Now().UTC())
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE stage_state SET result = ?, next_attempt_at = NULL, updated_at = ?
         WHERE result = ? AND document_id IN (SELECT id FROM documents WHERE status = ?)`,
		ResultPending,
		now,
		ResultRunning,
		StatusInProgress,
	); err != nil {
		return 0, fmt.Errorf("reopen running stages: %w", err)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE documents
         SET status = ?, error_message = ?, last_heartbeat = NULL, next_attempt_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		ShutdownStopReason,
		now,
		StatusInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("release in-flight documents: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed documents back to pending for reprocessing. With
// no IDs, all failed documents are retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	ctx = ensureContext(ctx)
	ts := timestamp(time.Now().UTC())
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE documents
             SET status = ?, error_message = NULL, next_attempt_at = NULL, updated_at = ?
             WHERE status = ?`,
			StatusPending,
			ts,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed documents: %w", err)
		}
		if _, err := s.resetFailedStageState(ctx, nil); err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, ts)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE documents
         SET status = ?, error_message = NULL, next_attempt_at = NULL, updated_at = ?
         WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected documents: %w", err)
	}
	if _, err := s.resetFailedStageState(ctx, ids); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Remove deletes a document (and its dependent rows via foreign keys).
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes completed documents from the catalog.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM documents WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed documents from the catalog.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM documents WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all documents from the catalog.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("clear documents: %w", err)
	}
	return res.RowsAffected()
}

func inferTitleFromPath(path string) string {
	base := strings.TrimSpace(filepath.Base(path))
	if base == "" {
		return "Untitled Document"
	}
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)
	cleaned := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
	if cleaned == "" {
		return "Untitled Document"
	}
	return cleaned
}
