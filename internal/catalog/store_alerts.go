package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertAlert enqueues a durable alert row. The insert is the only work the
// hot path performs; delivery happens later in the dispatcher.
func (s *Store) InsertAlert(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is nil")
	}
	ctx = ensureContext(ctx)
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.Status == "" {
		alert.Status = AlertPending
	}
	var docID any
	if alert.DocumentID != nil {
		docID = *alert.DocumentID
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO alerts (id, created_at, severity, event, document_id, correlation_id, payload, status, attempts, last_error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		timestamp(alert.CreatedAt),
		alert.Severity,
		alert.Event,
		docID,
		nullableString(alert.CorrelationID),
		nullableString(alert.Payload),
		alert.Status,
		alert.Attempts,
		nullableString(alert.LastError),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// PendingAlerts returns queued alerts oldest first, capped at limit.
func (s *Store) PendingAlerts(ctx context.Context, limit int) ([]*Alert, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+alertColumns+` FROM alerts WHERE status = ? ORDER BY created_at LIMIT ?`,
		AlertPending,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending alerts: %w", err)
	}
	return collectAlerts(rows)
}

// MarkAlertSent records a successful webhook delivery.
func (s *Store) MarkAlertSent(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	now := timestamp(time.Now().UTC())
	_, err := s.execWithRetry(
		ctx,
		`UPDATE alerts SET status = ?, sent_at = ?, last_error = NULL WHERE id = ?`,
		AlertSent,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark alert sent: %w", err)
	}
	return nil
}

// MarkAlertAttempt records a delivery failure. Once attempts reach the cap
// the alert is parked as failed and the dispatcher stops retrying it.
func (s *Store) MarkAlertAttempt(ctx context.Context, id string, attempts, maxAttempts int, lastError string) error {
	ctx = ensureContext(ctx)
	status := AlertPending
	if attempts >= maxAttempts {
		status = AlertFailed
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE alerts SET status = ?, attempts = ?, last_error = ? WHERE id = ?`,
		status,
		attempts,
		nullableString(lastError),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark alert attempt: %w", err)
	}
	return nil
}

// ListAlerts returns alerts newest first, capped at limit. A status filter of
// "" returns all alerts.
func (s *Store) ListAlerts(ctx context.Context, status AlertStatus, limit int) ([]*Alert, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 100
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+alertColumns+` FROM alerts ORDER BY created_at DESC LIMIT ?`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(
			ctx,
			`SELECT `+alertColumns+` FROM alerts WHERE status = ? ORDER BY created_at DESC LIMIT ?`,
			status,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return collectAlerts(rows)
}

// PurgeSentAlerts removes delivered alerts older than the cutoff.
func (s *Store) PurgeSentAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM alerts WHERE status = ? AND created_at < ?`,
		AlertSent,
		timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("purge sent alerts: %w", err)
	}
	return res.RowsAffected()
}

const alertColumns = "id, created_at, severity, event, document_id, correlation_id, payload, status, attempts, last_error, sent_at"

func collectAlerts(rows *sql.Rows) ([]*Alert, error) {
	defer rows.Close()
	var alerts []*Alert
	for rows.Next() {
		var (
			alert       Alert
			createdRaw  sql.NullString
			docID       sql.NullInt64
			correlation sql.NullString
			payload     sql.NullString
			lastError   sql.NullString
			sentRaw     sql.NullString
		)
		if err := rows.Scan(
			&alert.ID,
			&createdRaw,
			&alert.Severity,
			&alert.Event,
			&docID,
			&correlation,
			&payload,
			&alert.Status,
			&alert.Attempts,
			&lastError,
			&sentRaw,
		); err != nil {
			return nil, err
		}
		if createdRaw.Valid {
			if t, err := parseTimeString(createdRaw.String); err == nil {
				alert.CreatedAt = t
			}
		}
		if docID.Valid {
			v := docID.Int64
			alert.DocumentID = &v
		}
		alert.CorrelationID = correlation.String
		alert.Payload = payload.String
		alert.LastError = lastError.String
		alert.SentAt = parseNullableTime(sentRaw)
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}
