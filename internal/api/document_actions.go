package api

import (
	"context"

	"tome/internal/catalog"
)

// DocumentActionService captures catalog operations needed by per-document
// retry and remove workflows.
type DocumentActionService interface {
	Describe(ctx context.Context, id int64) (*Document, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
}

type RetryDocumentOutcome string

const (
	RetryDocumentUpdated   RetryDocumentOutcome = "retried"
	RetryDocumentNotFound  RetryDocumentOutcome = "not_found"
	RetryDocumentNotFailed RetryDocumentOutcome = "not_failed"
)

type RetryDocumentResult struct {
	ID      int64                `json:"id"`
	Outcome RetryDocumentOutcome `json:"outcome"`
}

type RetryDocumentsResult struct {
	UpdatedCount int64                 `json:"updatedCount"`
	Items        []RetryDocumentResult `json:"items"`
}

type RemoveDocumentOutcome string

const (
	RemoveDocumentRemoved  RemoveDocumentOutcome = "removed"
	RemoveDocumentNotFound RemoveDocumentOutcome = "not_found"
)

type RemoveDocumentResult struct {
	ID      int64                 `json:"id"`
	Outcome RemoveDocumentOutcome `json:"outcome"`
}

type RemoveDocumentsResult struct {
	RemovedCount int64                  `json:"removedCount"`
	Items        []RemoveDocumentResult `json:"items"`
}

// RetryFailedDocumentsByID validates IDs and retries only failed documents.
func RetryFailedDocumentsByID(ctx context.Context, service DocumentActionService, ids []int64) (RetryDocumentsResult, error) {
	result := RetryDocumentsResult{Items: make([]RetryDocumentResult, 0, len(ids))}
	for _, id := range ids {
		doc, err := service.Describe(ctx, id)
		if err != nil {
			return RetryDocumentsResult{}, err
		}
		if doc == nil {
			result.Items = append(result.Items, RetryDocumentResult{ID: id, Outcome: RetryDocumentNotFound})
			continue
		}
		status, ok := catalog.ParseStatus(doc.Status)
		if !ok || status != catalog.StatusFailed {
			result.Items = append(result.Items, RetryDocumentResult{ID: id, Outcome: RetryDocumentNotFailed})
			continue
		}
		updated, err := service.Retry(ctx, []int64{id})
		if err != nil {
			return RetryDocumentsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryDocumentResult{ID: id, Outcome: RetryDocumentUpdated})
			continue
		}
		result.Items = append(result.Items, RetryDocumentResult{ID: id, Outcome: RetryDocumentNotFailed})
	}
	return result, nil
}

// RemoveDocumentsByID removes documents one-by-one so each ID can report
// removed/not_found.
func RemoveDocumentsByID(ctx context.Context, service DocumentActionService, ids []int64) (RemoveDocumentsResult, error) {
	result := RemoveDocumentsResult{Items: make([]RemoveDocumentResult, 0, len(ids))}
	for _, id := range ids {
		removed, err := service.Remove(ctx, id)
		if err != nil {
			return RemoveDocumentsResult{}, err
		}
		if removed {
			result.RemovedCount++
			result.Items = append(result.Items, RemoveDocumentResult{ID: id, Outcome: RemoveDocumentRemoved})
			continue
		}
		result.Items = append(result.Items, RemoveDocumentResult{ID: id, Outcome: RemoveDocumentNotFound})
	}
	return result, nil
}
