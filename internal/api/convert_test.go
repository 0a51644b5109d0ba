package api

import (
	"testing"
	"time"

	"tome/internal/catalog"
	"tome/internal/stage"
	"tome/internal/workflow"
)

func TestFromDocumentMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	completed := created.Add(2 * time.Minute)
	doc := &catalog.Document{
		ID:              42,
		Title:           "LM317 Datasheet",
		SourcePath:      "/library/lm317.pdf",
		StagedPath:      "/staging/doc-42-abc/lm317.pdf",
		ContentHash:     "abc123",
		Status:          catalog.StatusCompleted,
		RequestID:       "req-1",
		DocClass:        "datasheet",
		ClassConfidence: 0.91,
		PageCount:       12,
		MetadataJSON:    `{"part_count":3}`,
		CreatedAt:       created,
		UpdatedAt:       created,
		CompletedAt:     &completed,
	}

	dto := FromDocument(doc)
	if dto.ID != 42 || dto.Title != "LM317 Datasheet" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.Status != string(catalog.StatusCompleted) {
		t.Fatalf("unexpected status: %q", dto.Status)
	}
	if dto.DocClass != "datasheet" || dto.ClassConfidence != 0.91 {
		t.Fatalf("unexpected classification: %q %v", dto.DocClass, dto.ClassConfidence)
	}
	if dto.CreatedAt == "" || dto.CompletedAt == "" {
		t.Fatalf("expected timestamps to be formatted: %+v", dto)
	}
	if string(dto.Metadata) != `{"part_count":3}` {
		t.Fatalf("unexpected metadata passthrough: %s", dto.Metadata)
	}
}

func TestFromDocumentNil(t *testing.T) {
	dto := FromDocument(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
}

func TestFromStageStatesMergesMarkers(t *testing.T) {
	next := time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC)
	states := map[string]*catalog.StageState{
		"extract": {
			DocumentID: 1,
			Stage:      "extract",
			Result:     catalog.ResultSuccess,
			Attempts:   1,
			UpdatedAt:  next,
		},
		"tables": {
			DocumentID:    1,
			Stage:         "tables",
			Result:        catalog.ResultRetryable,
			Attempts:      2,
			LastError:     "boom",
			NextAttemptAt: &next,
			UpdatedAt:     next,
		},
	}
	markers := []*catalog.Marker{
		{DocumentID: 1, Stage: "extract", ContentHash: "abc", ArtifactPath: "/staging/doc-1/text.txt"},
	}

	out := FromStageStates([]string{"extract", "tables", "classify"}, states, markers)
	if len(out) != 3 {
		t.Fatalf("expected 3 stage rows, got %d", len(out))
	}
	if out[0].Name != "extract" || out[0].Result != string(catalog.ResultSuccess) {
		t.Fatalf("unexpected extract row: %+v", out[0])
	}
	if out[0].MarkerHash != "abc" || out[0].ArtifactPath != "/staging/doc-1/text.txt" {
		t.Fatalf("expected marker merged into extract row: %+v", out[0])
	}
	if out[1].Name != "tables" || out[1].Attempts != 2 || out[1].LastError != "boom" {
		t.Fatalf("unexpected tables row: %+v", out[1])
	}
	if out[1].NextAttemptAt == "" {
		t.Fatalf("expected next attempt timestamp on tables row")
	}
	if out[2].Name != "classify" || out[2].Result != "" {
		t.Fatalf("expected empty classify row, got %+v", out[2])
	}
}

func TestFromStatusSummary(t *testing.T) {
	doc := &catalog.Document{ID: 9, Title: "Manual", Status: catalog.StatusInProgress}
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "stage failed",
		QueueStats: map[catalog.Status]int{
			catalog.StatusPending: 3,
		},
		StageHealth: map[string]stage.Health{
			"extract": stage.Healthy("extract"),
			"classify": {
				Name:   "classify",
				Ready:  false,
				Detail: "profiles missing",
			},
		},
		LastDocument: doc,
	}

	wf := FromStatusSummary(summary)
	if !wf.Running || wf.LastError != "stage failed" {
		t.Fatalf("unexpected workflow status: %+v", wf)
	}
	if wf.QueueStats[string(catalog.StatusPending)] != 3 {
		t.Fatalf("unexpected queue stats: %+v", wf.QueueStats)
	}
	if len(wf.StageHealth) != 2 {
		t.Fatalf("expected 2 stage health rows, got %d", len(wf.StageHealth))
	}
	if wf.StageHealth[0].Name != "classify" || wf.StageHealth[1].Name != "extract" {
		t.Fatalf("expected stage health sorted by name: %+v", wf.StageHealth)
	}
	if wf.LastDocument == nil || wf.LastDocument.ID != 9 {
		t.Fatalf("expected last document to carry through: %+v", wf.LastDocument)
	}
}

func TestFromAlertDerefsPointers(t *testing.T) {
	docID := int64(5)
	sent := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	alert := &catalog.Alert{
		ID:            "a-1",
		Severity:      "error",
		Event:         "stage_failed",
		DocumentID:    &docID,
		CorrelationID: "req-1.extract.2",
		Status:        catalog.AlertSent,
		Attempts:      1,
		CreatedAt:     sent.Add(-time.Minute),
		SentAt:        &sent,
	}

	dto := FromAlert(alert)
	if dto.DocumentID != 5 {
		t.Fatalf("expected document id 5, got %d", dto.DocumentID)
	}
	if dto.SentAt == "" {
		t.Fatalf("expected sent timestamp")
	}
	if dto.CorrelationID != "req-1.extract.2" {
		t.Fatalf("unexpected correlation id: %q", dto.CorrelationID)
	}
}

func TestMergeQueueStats(t *testing.T) {
	got := MergeQueueStats(map[catalog.Status]int{
		catalog.StatusPending: 2,
		catalog.StatusFailed:  1,
	})
	if got["pending"] != 2 || got["failed"] != 1 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
	stamp := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	if got := FormatTime(stamp); got != "2026-03-05T10:30:00.000Z" {
		t.Fatalf("unexpected formatted time: %q", got)
	}
}
