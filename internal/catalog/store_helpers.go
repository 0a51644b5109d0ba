package catalog

import (
	"database/sql"
	"errors"
	"time"
)

const documentColumns = "id, source_path, staged_path, title, content_hash, status, request_id, doc_class, class_confidence, page_count, error_message, metadata_json, needs_review, review_reason, created_at, updated_at, started_at, completed_at, next_attempt_at, last_heartbeat"

func scanDocument(scanner interface{ Scan(dest ...any) error }) (*Document, error) {
	var (
		id              int64
		sourcePath      sql.NullString
		stagedPath      sql.NullString
		title           sql.NullString
		contentHash     sql.NullString
		statusStr       string
		requestID       sql.NullString
		docClass        sql.NullString
		classConfidence sql.NullFloat64
		pageCount       sql.NullInt64
		errorMessage    sql.NullString
		metadata        sql.NullString
		needsReview     sql.NullInt64
		reviewReason    sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		startedRaw      sql.NullString
		completedRaw    sql.NullString
		nextAttemptRaw  sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&stagedPath,
		&title,
		&contentHash,
		&statusStr,
		&requestID,
		&docClass,
		&classConfidence,
		&pageCount,
		&errorMessage,
		&metadata,
		&needsReview,
		&reviewReason,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
		&nextAttemptRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	doc := &Document{
		ID:              id,
		SourcePath:      sourcePath.String,
		StagedPath:      stagedPath.String,
		Title:           title.String,
		ContentHash:     contentHash.String,
		Status:          Status(statusStr),
		RequestID:       requestID.String,
		DocClass:        docClass.String,
		ClassConfidence: classConfidence.Float64,
		PageCount:       int(pageCount.Int64),
		ErrorMessage:    errorMessage.String,
		MetadataJSON:    metadata.String,
		ReviewReason:    reviewReason.String,
	}
	if needsReview.Valid {
		doc.NeedsReview = needsReview.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		doc.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		doc.UpdatedAt = updated
	}
	doc.StartedAt = parseNullableTime(startedRaw)
	doc.CompletedAt = parseNullableTime(completedRaw)
	doc.NextAttemptAt = parseNullableTime(nextAttemptRaw)
	doc.LastHeartbeat = parseNullableTime(heartbeatRaw)
	return doc, nil
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
