package api

import (
	"context"
	"fmt"
	"strings"

	"tome/internal/catalog"
	"tome/internal/staging"
)

// ActiveRootProvider surfaces staging workspace names still referenced by
// live catalog documents.
type ActiveRootProvider interface {
	ActiveStagingRoots(ctx context.Context) (map[string]struct{}, error)
}

type CleanStagingRequest struct {
	StagingDir string
	CleanAll   bool
	Roots      ActiveRootProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanStaleResult
}

// CleanStagingDirectories applies staging cleanup policy used by CLI commands.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "staging",
			Cleanup:    staging.CleanStale(ctx, stagingDir, 0, nil),
		}, nil
	}

	if req.Roots == nil {
		return CleanStagingResult{}, fmt.Errorf("active root provider is required when clean_all is false")
	}
	roots, err := req.Roots.ActiveStagingRoots(ctx)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned staging",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, roots, nil),
	}, nil
}

// CatalogRootProvider derives active workspace names from catalog documents.
type CatalogRootProvider struct {
	Store      *catalog.Store
	StagingDir string
}

// ActiveStagingRoots lists catalog documents and derives their workspace names.
func (p CatalogRootProvider) ActiveStagingRoots(ctx context.Context) (map[string]struct{}, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	docs, err := p.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return staging.ActiveRoots(docs, p.StagingDir), nil
}
