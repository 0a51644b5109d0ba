package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"tome/internal/catalog"
	"tome/internal/stage"
	"tome/internal/workflow"
)

// FromDocument converts a catalog record to its API representation.
func FromDocument(doc *catalog.Document) Document {
	if doc == nil {
		return Document{}
	}

	dto := Document{
		ID:              doc.ID,
		Title:           doc.Title,
		SourcePath:      doc.SourcePath,
		StagedPath:      doc.StagedPath,
		ContentHash:     doc.ContentHash,
		Status:          string(doc.Status),
		RequestID:       doc.RequestID,
		DocClass:        doc.DocClass,
		ClassConfidence: doc.ClassConfidence,
		PageCount:       doc.PageCount,
		ErrorMessage:    doc.ErrorMessage,
		NeedsReview:     doc.NeedsReview,
		ReviewReason:    doc.ReviewReason,
	}
	dto.CreatedAt = FormatTime(doc.CreatedAt)
	dto.UpdatedAt = FormatTime(doc.UpdatedAt)
	if doc.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*doc.CompletedAt)
	}
	if doc.NextAttemptAt != nil {
		dto.NextAttemptAt = FormatTime(*doc.NextAttemptAt)
	}
	if raw := strings.TrimSpace(doc.MetadataJSON); raw != "" {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromDocuments converts a slice of catalog records into API DTOs.
func FromDocuments(docs []*catalog.Document) []Document {
	if len(docs) == 0 {
		return nil
	}
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromDocument(doc))
	}
	return out
}

// FromStageStates merges per-stage execution state and completion markers
// into ordered DTOs. The order slice fixes presentation order; stages with
// no recorded state yet appear with an empty result.
func FromStageStates(order []string, states map[string]*catalog.StageState, markers []*catalog.Marker) []StageState {
	if len(order) == 0 {
		return nil
	}
	markerByStage := make(map[string]*catalog.Marker, len(markers))
	for _, marker := range markers {
		if marker != nil {
			markerByStage[marker.Stage] = marker
		}
	}

	out := make([]StageState, 0, len(order))
	for _, name := range order {
		dto := StageState{Name: name}
		if state := states[name]; state != nil {
			dto.Result = string(state.Result)
			dto.Attempts = state.Attempts
			dto.LastError = state.LastError
			dto.UpdatedAt = FormatTime(state.UpdatedAt)
			if state.NextAttemptAt != nil {
				dto.NextAttemptAt = FormatTime(*state.NextAttemptAt)
			}
		}
		if marker := markerByStage[name]; marker != nil {
			dto.MarkerHash = marker.ContentHash
			dto.ArtifactPath = marker.ArtifactPath
		}
		out = append(out, dto)
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastDocument != nil {
		last := FromDocument(summary.LastDocument)
		wf.LastDocument = &last
	}
	return wf
}

// FromAlert converts an alert outbox row to its API representation.
func FromAlert(alert *catalog.Alert) Alert {
	if alert == nil {
		return Alert{}
	}
	dto := Alert{
		ID:            alert.ID,
		Severity:      alert.Severity,
		Event:         alert.Event,
		CorrelationID: alert.CorrelationID,
		Payload:       alert.Payload,
		Status:        string(alert.Status),
		Attempts:      alert.Attempts,
		LastError:     alert.LastError,
		CreatedAt:     FormatTime(alert.CreatedAt),
	}
	if alert.DocumentID != nil {
		dto.DocumentID = *alert.DocumentID
	}
	if alert.SentAt != nil {
		dto.SentAt = FormatTime(*alert.SentAt)
	}
	return dto
}

// FromAlerts converts a slice of alert rows into API DTOs.
func FromAlerts(alerts []*catalog.Alert) []Alert {
	if len(alerts) == 0 {
		return nil
	}
	out := make([]Alert, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, FromAlert(alert))
	}
	return out
}

// FromSearchHits converts catalog search results into API DTOs.
func FromSearchHits(hits []catalog.SearchHit) []SearchHit {
	if len(hits) == 0 {
		return nil
	}
	out := make([]SearchHit, 0, len(hits))
	for _, hit := range hits {
		out = append(out, SearchHit{
			DocumentID: hit.DocumentID,
			Title:      hit.Title,
			DocClass:   hit.DocClass,
			Score:      hit.Score,
		})
	}
	return out
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[catalog.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
