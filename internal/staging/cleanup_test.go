package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tome/internal/logging"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkspaces(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "doc-1-aaaaaaaaaaaa")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("create old dir: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldDir, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	recentDir := filepath.Join(tmpDir, "doc-2-bbbbbbbbbbbb")
	if err := os.Mkdir(recentDir, 0o755); err != nil {
		t.Fatalf("create recent dir: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old workspace should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent workspace should still exist")
	}
}

func TestCleanStaleZeroAgeRemovesEverything(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"doc-1", "doc-2-cccccccccccc"} {
		if err := os.Mkdir(filepath.Join(tmpDir, name), 0o755); err != nil {
			t.Fatalf("create dir %s: %v", name, err)
		}
	}

	result := CleanStale(context.Background(), tmpDir, 0, logging.NewNop())
	if len(result.Removed) != 2 {
		t.Fatalf("expected 2 removed, got %d: %v", len(result.Removed), result.Removed)
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "stray-file.txt")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanOrphanedEmptyDir(t *testing.T) {
	for _, dir := range []string{"", "   "} {
		result := CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedRemovesUnreferencedWorkspaces(t *testing.T) {
	tmpDir := t.TempDir()

	knownDir := filepath.Join(tmpDir, "doc-7-abc123abc123")
	if err := os.Mkdir(knownDir, 0o755); err != nil {
		t.Fatalf("create known dir: %v", err)
	}

	// Workspace left behind after the document's content hash changed.
	orphanDir := filepath.Join(tmpDir, "doc-7-000000000000")
	if err := os.Mkdir(orphanDir, 0o755); err != nil {
		t.Fatalf("create orphan dir: %v", err)
	}

	activeRoots := map[string]struct{}{
		"doc-7-abc123abc123": {},
	}

	result := CleanOrphaned(context.Background(), tmpDir, activeRoots, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != orphanDir {
		t.Errorf("expected %s to be removed, got %s", orphanDir, result.Removed[0])
	}
	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Error("orphan workspace should have been removed")
	}
	if _, err := os.Stat(knownDir); err != nil {
		t.Error("referenced workspace should still exist")
	}
}

func TestCleanOrphanedIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	strayFile := filepath.Join(tmpDir, "notes.txt")
	if err := os.WriteFile(strayFile, []byte("keep"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	result := CleanOrphaned(context.Background(), tmpDir, map[string]struct{}{}, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Errorf("expected no removals, got %v", result.Removed)
	}
	if _, err := os.Stat(strayFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil dirs for %q, got %v", path, dirs)
		}
	}
}

func TestListDirectoriesReportsSizes(t *testing.T) {
	tmpDir := t.TempDir()

	workspace := filepath.Join(tmpDir, "doc-3-ffffffffffff")
	if err := os.Mkdir(workspace, 0o755); err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, "text.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 workspace, got %d", len(dirs))
	}
	if dirs[0].Name != "doc-3-ffffffffffff" {
		t.Errorf("unexpected name %q", dirs[0].Name)
	}
	if dirs[0].Size != 10 {
		t.Errorf("expected size 10, got %d", dirs[0].Size)
	}
}
