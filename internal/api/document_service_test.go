package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"tome/internal/catalog"
)

type mockCatalogReader struct {
	docs     []*catalog.Document
	stats    map[catalog.Status]int
	states   map[string]*catalog.StageState
	markers  []*catalog.Marker
	docErr   error
	statsErr error
}

func (m *mockCatalogReader) List(context.Context, ...catalog.Status) ([]*catalog.Document, error) {
	return m.docs, m.docErr
}

func (m *mockCatalogReader) Stats(context.Context) (map[catalog.Status]int, error) {
	return m.stats, m.statsErr
}

func (m *mockCatalogReader) GetByID(context.Context, int64) (*catalog.Document, error) {
	if len(m.docs) == 0 {
		return nil, m.docErr
	}
	return m.docs[0], m.docErr
}

func (m *mockCatalogReader) StageStates(context.Context, int64) (map[string]*catalog.StageState, error) {
	return m.states, nil
}

func (m *mockCatalogReader) MarkersForDocument(context.Context, int64) ([]*catalog.Marker, error) {
	return m.markers, nil
}

func TestDocumentService_List(t *testing.T) {
	now := time.Now().UTC()
	reader := &mockCatalogReader{
		docs: []*catalog.Document{{
			ID:        1,
			Title:     "Example",
			Status:    catalog.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	svc := NewDocumentService(reader, []string{"extract"})
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected document count: %d", len(got))
	}
	if got[0].Title != "Example" {
		t.Fatalf("unexpected title: %q", got[0].Title)
	}
	if got[0].Status != string(catalog.StatusPending) {
		t.Fatalf("unexpected status: %q", got[0].Status)
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatalf("expected timestamps to be formatted")
	}
}

func TestDocumentService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewDocumentService(&mockCatalogReader{docErr: errSentinel}, nil)
	_, err := svc.List(context.Background())
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestDocumentService_Stats(t *testing.T) {
	svc := NewDocumentService(&mockCatalogReader{stats: map[catalog.Status]int{
		catalog.StatusPending: 2,
		catalog.StatusFailed:  1,
	}}, nil)
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got[string(catalog.StatusPending)] != 2 {
		t.Fatalf("expected pending count 2, got %d", got[string(catalog.StatusPending)])
	}
	if got[string(catalog.StatusFailed)] != 1 {
		t.Fatalf("expected failed count 1, got %d", got[string(catalog.StatusFailed)])
	}
}

func TestDocumentService_DescribeAttachesStages(t *testing.T) {
	next := time.Now().UTC().Add(time.Minute)
	reader := &mockCatalogReader{
		docs: []*catalog.Document{{ID: 7, Title: "Doc", Status: catalog.StatusInProgress}},
		states: map[string]*catalog.StageState{
			"extract": {DocumentID: 7, Stage: "extract", Result: catalog.ResultSuccess, Attempts: 1},
			"tables":  {DocumentID: 7, Stage: "tables", Result: catalog.ResultRetryable, Attempts: 1, NextAttemptAt: &next},
		},
		markers: []*catalog.Marker{
			{DocumentID: 7, Stage: "extract", ContentHash: "h1", ArtifactPath: "/staging/doc-7/text.txt"},
		},
	}
	svc := NewDocumentService(reader, []string{"extract", "tables"})
	doc, err := svc.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if doc == nil {
		t.Fatal("Describe returned nil document")
	}
	if doc.ID != 7 {
		t.Fatalf("unexpected id: %d", doc.ID)
	}
	if len(doc.Stages) != 2 {
		t.Fatalf("expected 2 stage rows, got %d", len(doc.Stages))
	}
	if doc.Stages[0].MarkerHash != "h1" {
		t.Fatalf("expected marker hash on extract row: %+v", doc.Stages[0])
	}
	if doc.Stages[1].NextAttemptAt == "" {
		t.Fatalf("expected retry timestamp on tables row: %+v", doc.Stages[1])
	}
}

func TestDocumentService_DescribeMissing(t *testing.T) {
	svc := NewDocumentService(&mockCatalogReader{}, nil)
	doc, err := svc.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for missing document, got %+v", doc)
	}
}
