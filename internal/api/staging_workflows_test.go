package api

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tome/internal/testsupport"
)

type rootStub struct {
	roots map[string]struct{}
	err   error
}

func (s rootStub) ActiveStagingRoots(_ context.Context) (map[string]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.roots, nil
}

func TestCleanStagingDirectoriesNotConfigured(t *testing.T) {
	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Configured {
		t.Fatal("Configured = true, want false")
	}
}

func TestCleanStagingDirectoriesCleanAll(t *testing.T) {
	dir := t.TempDir()
	oldDir := filepath.Join(dir, "doc-1-aaaaaaaaaaaa")
	if err := os.MkdirAll(oldDir, 0o755); err != nil {
		t.Fatalf("mkdir old dir: %v", err)
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir: dir,
		CleanAll:   true,
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if !result.Configured {
		t.Fatal("Configured = false, want true")
	}
	if result.Scope != "staging" {
		t.Fatalf("Scope = %q, want staging", result.Scope)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(result.Cleanup.Removed))
	}
}

func TestCleanStagingDirectoriesOrphaned(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "doc-3-abcabcabcabc")
	orphan := filepath.Join(dir, "doc-3-000000000000")
	for _, d := range []string{active, orphan} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	result, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{
		StagingDir: dir,
		Roots: rootStub{roots: map[string]struct{}{
			"doc-3-abcabcabcabc": {},
		}},
	})
	if err != nil {
		t.Fatalf("CleanStagingDirectories: %v", err)
	}
	if result.Scope != "orphaned staging" {
		t.Fatalf("Scope = %q, want orphaned staging", result.Scope)
	}
	if len(result.Cleanup.Removed) != 1 {
		t.Fatalf("removed = %d, want 1", len(result.Cleanup.Removed))
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatalf("active dir should remain: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan dir should be removed, stat err=%v", err)
	}
}

func TestCleanStagingDirectoriesRequiresProvider(t *testing.T) {
	_, err := CleanStagingDirectories(context.Background(), CleanStagingRequest{StagingDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error without an active root provider")
	}
}

func TestCatalogRootProviderDerivesRoots(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	source := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(source, []byte("user guide"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	result, err := SubmitDocument(context.Background(), SubmitDocumentRequest{Config: cfg, Store: store, SourcePath: source})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	provider := CatalogRootProvider{Store: store, StagingDir: cfg.Paths.StagingDir}
	roots, err := provider.ActiveStagingRoots(context.Background())
	if err != nil {
		t.Fatalf("ActiveStagingRoots: %v", err)
	}
	workspace := filepath.Base(filepath.Dir(result.Document.StagedPath))
	if _, ok := roots[workspace]; !ok {
		t.Fatalf("expected %q in active roots %v", workspace, roots)
	}
}
