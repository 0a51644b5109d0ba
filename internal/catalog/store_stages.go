package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StageStates returns the recorded stage outcomes for a document keyed by
// stage name.
func (s *Store) StageStates(ctx context.Context, documentID int64) (map[string]*StageState, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT document_id, stage, result, attempts, next_attempt_at, last_error, updated_at
         FROM stage_state WHERE document_id = ?`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage state: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*StageState)
	for rows.Next() {
		state, err := scanStageState(rows)
		if err != nil {
			return nil, err
		}
		states[state.Stage] = state
	}
	return states, rows.Err()
}

// StageState returns the recorded outcome of one stage for a document.
// Returns nil when the stage has never been touched.
func (s *Store) StageState(ctx context.Context, documentID int64, stage string) (*StageState, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT document_id, stage, result, attempts, next_attempt_at, last_error, updated_at
         FROM stage_state WHERE document_id = ? AND stage = ?`,
		documentID,
		stage,
	)
	state, err := scanStageState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stage state: %w", err)
	}
	return state, nil
}

// MarkStageRunning upserts the stage row into the running state with the
// attempt counter the envelope is about to consume.
func (s *Store) MarkStageRunning(ctx context.Context, documentID int64, stage string, attempt int) error {
	return s.upsertStageState(ctx, documentID, stage, ResultRunning, attempt, nil, "")
}

// RecordStageSuccess persists the completion marker and the success outcome in
// one transaction so a crash can never separate them.
func (s *Store) RecordStageSuccess(ctx context.Context, documentID int64, stage, contentHash, artifactPath string, attempt int) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin success tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		now := timestamp(time.Now().UTC())
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO completion_markers (document_id, stage, content_hash, artifact_path, produced_at)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(document_id, stage, content_hash) DO UPDATE
             SET artifact_path = excluded.artifact_path, produced_at = excluded.produced_at`,
			documentID,
			stage,
			contentHash,
			nullableString(artifactPath),
			now,
		); err != nil {
			return fmt.Errorf("insert completion marker: %w", err)
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO stage_state (document_id, stage, result, attempts, next_attempt_at, last_error, updated_at)
             VALUES (?, ?, ?, ?, NULL, NULL, ?)
             ON CONFLICT(document_id, stage) DO UPDATE
             SET result = excluded.result, attempts = excluded.attempts,
                 next_attempt_at = NULL, last_error = NULL, updated_at = excluded.updated_at`,
			documentID,
			stage,
			ResultSuccess,
			attempt,
			now,
		); err != nil {
			return fmt.Errorf("record stage success: %w", err)
		}

		return tx.Commit()
	})
}

// RecordStageSuccessNoMarker persists a success outcome without a completion
// marker, for stages that are not idempotent and must re-run on every pass.
func (s *Store) RecordStageSuccessNoMarker(ctx context.Context, documentID int64, stage string, attempt int) error {
	return s.upsertStageState(ctx, documentID, stage, ResultSuccess, attempt, nil, "")
}

// RecordStageSkipped notes that a stage satisfied its dependents without
// executing (marker hit or disabled capability). No marker is written here;
// marker hits already have one and disabled stages must not gain one.
func (s *Store) RecordStageSkipped(ctx context.Context, documentID int64, stage, reason string) error {
	return s.upsertStageState(ctx, documentID, stage, ResultSkipped, 0, nil, reason)
}

// ScheduleStageRetry records a retryable failure and the instant the next
// attempt becomes due.
func (s *Store) ScheduleStageRetry(ctx context.Context, documentID int64, stage string, attempt int, nextAttempt time.Time, lastError string) error {
	return s.upsertStageState(ctx, documentID, stage, ResultRetryable, attempt, &nextAttempt, lastError)
}

// RecordStageFailure persists a terminal failure outcome for a stage.
func (s *Store) RecordStageFailure(ctx context.Context, documentID int64, stage string, result StageResult, attempt int, lastError string) error {
	return s.upsertStageState(ctx, documentID, stage, result, attempt, nil, lastError)
}

// MarkStagesBlocked records that stages will never run because a prerequisite
// failed for good.
func (s *Store) MarkStagesBlocked(ctx context.Context, documentID int64, stages []string, reason string) error {
	for _, stage := range stages {
		if err := s.upsertStageState(ctx, documentID, stage, ResultBlocked, 0, nil, reason); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertStageState(ctx context.Context, documentID int64, stage string, result StageResult, attempts int, nextAttempt *time.Time, lastError string) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO stage_state (document_id, stage, result, attempts, next_attempt_at, last_error, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(document_id, stage) DO UPDATE
         SET result = excluded.result, attempts = excluded.attempts,
             next_attempt_at = excluded.next_attempt_at, last_error = excluded.last_error,
             updated_at = excluded.updated_at`,
		documentID,
		stage,
		result,
		attempts,
		nullableTime(nextAttempt),
		nullableString(lastError),
		timestamp(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("upsert stage state %s: %w", stage, err)
	}
	return nil
}

// ReopenRunningStage returns a stage recorded as running to the pending
// result so the scheduler offers it again. Used after an expired lock is
// swept; outcomes other than running are left alone.
func (s *Store) ReopenRunningStage(ctx context.Context, documentID int64, stage string) (bool, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE stage_state
         SET result = '', next_attempt_at = NULL, updated_at = ?
         WHERE document_id = ? AND stage = ? AND result = ?`,
		timestamp(time.Now().UTC()),
		documentID,
		stage,
		ResultRunning,
	)
	if err != nil {
		return false, fmt.Errorf("reopen stage %s: %w", stage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ResetStageStates clears all stage outcomes for a document. Used when the
// content hash changes and the pipeline restarts from the roots.
func (s *Store) ResetStageStates(ctx context.Context, documentID int64) error {
	ctx = ensureContext(ctx)
	_, err := s.execWithRetry(ctx, `DELETE FROM stage_state WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("reset stage state: %w", err)
	}
	return nil
}

// resetFailedStageState clears non-successful stage outcomes so retried
// documents re-run only what failed. Success and skip rows stay; their
// markers make re-execution a no-op anyway.
func (s *Store) resetFailedStageState(ctx context.Context, ids []int64) (int64, error) {
	ctx = ensureContext(ctx)
	query := `UPDATE stage_state
         SET result = '', attempts = 0, next_attempt_at = NULL, last_error = NULL, updated_at = ?
         WHERE result IN (?, ?, ?, ?, ?)`
	args := []any{
		timestamp(time.Now().UTC()),
		ResultRunning,
		ResultRetryable,
		ResultPermanent,
		ResultFatal,
		ResultBlocked,
	}
	if len(ids) > 0 {
		query += ` AND document_id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset failed stage state: %w", err)
	}
	return res.RowsAffected()
}

// HasMarker reports whether a completion marker exists for the triple.
func (s *Store) HasMarker(ctx context.Context, documentID int64, stage, contentHash string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM completion_markers
         WHERE document_id = ? AND stage = ? AND content_hash = ?`,
		documentID,
		stage,
		contentHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return count > 0, nil
}

// Marker fetches a completion marker row. Returns nil when absent.
func (s *Store) Marker(ctx context.Context, documentID int64, stage, contentHash string) (*Marker, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT document_id, stage, content_hash, artifact_path, produced_at
         FROM completion_markers
         WHERE document_id = ? AND stage = ? AND content_hash = ?`,
		documentID,
		stage,
		contentHash,
	)
	var (
		marker   Marker
		artifact sql.NullString
		produced sql.NullString
	)
	err := row.Scan(&marker.DocumentID, &marker.Stage, &marker.ContentHash, &artifact, &produced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	marker.ArtifactPath = artifact.String
	if t, err := parseTimeString(produced.String); err == nil {
		marker.ProducedAt = t
	}
	return &marker, nil
}

// MarkersForDocument lists every completion marker recorded for a document.
func (s *Store) MarkersForDocument(ctx context.Context, documentID int64) ([]*Marker, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT document_id, stage, content_hash, artifact_path, produced_at
         FROM completion_markers WHERE document_id = ? ORDER BY stage, produced_at`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	var markers []*Marker
	for rows.Next() {
		var (
			marker   Marker
			artifact sql.NullString
			produced sql.NullString
		)
		if err := rows.Scan(&marker.DocumentID, &marker.Stage, &marker.ContentHash, &artifact, &produced); err != nil {
			return nil, err
		}
		marker.ArtifactPath = artifact.String
		if t, err := parseTimeString(produced.String); err == nil {
			marker.ProducedAt = t
		}
		markers = append(markers, &marker)
	}
	return markers, rows.Err()
}

func scanStageState(scanner interface{ Scan(dest ...any) error }) (*StageState, error) {
	var (
		state       StageState
		resultStr   string
		nextAttempt sql.NullString
		lastError   sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&state.DocumentID,
		&state.Stage,
		&resultStr,
		&state.Attempts,
		&nextAttempt,
		&lastError,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	state.Result = StageResult(resultStr)
	state.NextAttemptAt = parseNullableTime(nextAttempt)
	state.LastError = lastError.String
	if t, err := parseTimeString(updatedRaw.String); err == nil {
		state.UpdatedAt = t
	}
	return &state, nil
}
