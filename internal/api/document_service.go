package api

import (
	"context"

	"tome/internal/catalog"
)

// CatalogReader abstracts catalog persistence interactions needed for API queries.
type CatalogReader interface {
	List(ctx context.Context, statuses ...catalog.Status) ([]*catalog.Document, error)
	Stats(ctx context.Context) (map[catalog.Status]int, error)
	GetByID(ctx context.Context, id int64) (*catalog.Document, error)
	StageStates(ctx context.Context, documentID int64) (map[string]*catalog.StageState, error)
	MarkersForDocument(ctx context.Context, documentID int64) ([]*catalog.Marker, error)
}

// DocumentService exposes read-only catalog operations returning API DTOs.
type DocumentService struct {
	store      CatalogReader
	stageOrder []string
}

// NewDocumentService constructs a DocumentService around the provided reader.
// The stage order fixes how per-stage state is presented; pass the registry's
// topological order.
func NewDocumentService(store CatalogReader, stageOrder []string) *DocumentService {
	if store == nil {
		return nil
	}
	return &DocumentService{store: store, stageOrder: stageOrder}
}

// List returns documents filtered by status.
func (s *DocumentService) List(ctx context.Context, statuses ...catalog.Status) ([]Document, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	docs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromDocuments(docs), nil
}

// Stats returns document summary counts keyed by status string.
func (s *DocumentService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single document with its per-stage state and markers.
func (s *DocumentService) Describe(ctx context.Context, id int64) (*Document, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	doc, err := s.store.GetByID(ctx, id)
	if err != nil || doc == nil {
		return nil, err
	}
	dto := FromDocument(doc)

	states, err := s.store.StageStates(ctx, id)
	if err != nil {
		return nil, err
	}
	markers, err := s.store.MarkersForDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	dto.Stages = FromStageStates(s.stageOrder, states, markers)
	return &dto, nil
}
