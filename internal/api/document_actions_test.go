package api

import (
	"context"
	"errors"
	"testing"
)

type documentActionStub struct {
	docs    map[int64]*Document
	removed map[int64]bool
}

func (s *documentActionStub) Describe(_ context.Context, id int64) (*Document, error) {
	if doc, ok := s.docs[id]; ok {
		return doc, nil
	}
	return nil, nil
}

func (s *documentActionStub) Retry(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func (s *documentActionStub) Remove(_ context.Context, id int64) (bool, error) {
	return s.removed[id], nil
}

func TestRetryFailedDocumentsByIDOutcomes(t *testing.T) {
	stub := &documentActionStub{
		docs: map[int64]*Document{
			1: {ID: 1, Status: "failed"},
			2: {ID: 2, Status: "pending"},
		},
	}

	result, err := RetryFailedDocumentsByID(context.Background(), stub, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("RetryFailedDocumentsByID: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}
	if result.Items[0].Outcome != RetryDocumentUpdated {
		t.Fatalf("doc 1 outcome = %s, want %s", result.Items[0].Outcome, RetryDocumentUpdated)
	}
	if result.Items[1].Outcome != RetryDocumentNotFailed {
		t.Fatalf("doc 2 outcome = %s, want %s", result.Items[1].Outcome, RetryDocumentNotFailed)
	}
	if result.Items[2].Outcome != RetryDocumentNotFound {
		t.Fatalf("doc 3 outcome = %s, want %s", result.Items[2].Outcome, RetryDocumentNotFound)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
}

func TestRemoveDocumentsByIDOutcomes(t *testing.T) {
	stub := &documentActionStub{removed: map[int64]bool{4: true}}

	result, err := RemoveDocumentsByID(context.Background(), stub, []int64{4, 5})
	if err != nil {
		t.Fatalf("RemoveDocumentsByID: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(result.Items))
	}
	if result.Items[0].Outcome != RemoveDocumentRemoved {
		t.Fatalf("doc 4 outcome = %s, want %s", result.Items[0].Outcome, RemoveDocumentRemoved)
	}
	if result.Items[1].Outcome != RemoveDocumentNotFound {
		t.Fatalf("doc 5 outcome = %s, want %s", result.Items[1].Outcome, RemoveDocumentNotFound)
	}
	if result.RemovedCount != 1 {
		t.Fatalf("RemovedCount = %d, want 1", result.RemovedCount)
	}
}
