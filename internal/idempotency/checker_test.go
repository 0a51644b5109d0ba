package idempotency_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tome/internal/idempotency"
	"tome/internal/testsupport"
)

func TestCompletedMarkerHitAfterSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	doc := testsupport.NewDocument(t, store, "/inbox/manual.pdf", "Manual")
	doc.ContentHash = idempotency.HashBytes([]byte("manual body"))
	if err := store.Update(ctx, doc); err != nil {
		t.Fatalf("update document: %v", err)
	}
	if err := store.RecordStageSuccess(ctx, doc.ID, "extract", doc.ContentHash, "/staging/1/text.txt", 1); err != nil {
		t.Fatalf("record success: %v", err)
	}

	checker := idempotency.NewChecker(store, nil)
	marker, err := checker.CompletedMarker(ctx, doc, "extract")
	if err != nil {
		t.Fatalf("CompletedMarker returned error: %v", err)
	}
	if marker == nil {
		t.Fatal("expected marker hit")
	}
	if marker.ArtifactPath != "/staging/1/text.txt" {
		t.Fatalf("unexpected artifact path %q", marker.ArtifactPath)
	}

	if marker, err := checker.CompletedMarker(ctx, doc, "tables"); err != nil || marker != nil {
		t.Fatalf("expected miss for other stage, got marker=%v err=%v", marker, err)
	}
}

func TestCompletedMarkerMissWithoutHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	doc := testsupport.NewDocument(t, store, "/inbox/manual.pdf", "Manual")
	checker := idempotency.NewChecker(store, nil)

	marker, err := checker.CompletedMarker(context.Background(), doc, "extract")
	if err != nil {
		t.Fatalf("CompletedMarker returned error: %v", err)
	}
	if marker != nil {
		t.Fatal("expected miss when document has no content hash")
	}
}

func TestRefreshSetsInitialHash(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte("torque values\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	doc := testsupport.NewDocument(t, store, path, "Guide")

	checker := idempotency.NewChecker(store, nil)
	changed, err := checker.Refresh(ctx, doc)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if !changed {
		t.Fatal("expected first Refresh to report a change")
	}
	if doc.ContentHash == "" {
		t.Fatal("expected content hash to be populated")
	}

	stored, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if stored.ContentHash != doc.ContentHash {
		t.Fatalf("hash not persisted: stored %q, in-memory %q", stored.ContentHash, doc.ContentHash)
	}
}

func TestRefreshInvalidatesStagesOnContentChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte("revision 1\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	doc := testsupport.NewDocument(t, store, path, "Guide")

	checker := idempotency.NewChecker(store, nil)
	if _, err := checker.Refresh(ctx, doc); err != nil {
		t.Fatalf("initial Refresh: %v", err)
	}
	firstHash := doc.ContentHash
	if err := store.RecordStageSuccess(ctx, doc.ID, "extract", firstHash, "", 1); err != nil {
		t.Fatalf("record success: %v", err)
	}

	if err := os.WriteFile(path, []byte("revision 2\n"), 0o644); err != nil {
		t.Fatalf("rewrite source: %v", err)
	}
	changed, err := checker.Refresh(ctx, doc)
	if err != nil {
		t.Fatalf("Refresh after edit: %v", err)
	}
	if !changed {
		t.Fatal("expected change detection after edit")
	}
	if doc.ContentHash == firstHash {
		t.Fatal("expected a new content hash")
	}

	states, err := store.StageStates(ctx, doc.ID)
	if err != nil {
		t.Fatalf("stage states: %v", err)
	}
	if len(states) != 0 {
		t.Fatalf("expected stage states cleared, got %d rows", len(states))
	}

	// The old marker survives but no longer matches the new hash.
	if marker, err := checker.CompletedMarker(ctx, doc, "extract"); err != nil || marker != nil {
		t.Fatalf("expected marker miss under new hash, got marker=%v err=%v", marker, err)
	}
	if ok, err := store.HasMarker(ctx, doc.ID, "extract", firstHash); err != nil || !ok {
		t.Fatalf("expected old-hash marker retained, got ok=%v err=%v", ok, err)
	}
}

func TestRefreshNoChangeIsStable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "guide.txt")
	if err := os.WriteFile(path, []byte("stable\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	doc := testsupport.NewDocument(t, store, path, "Guide")

	checker := idempotency.NewChecker(store, nil)
	if _, err := checker.Refresh(ctx, doc); err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if err := store.RecordStageSuccess(ctx, doc.ID, "extract", doc.ContentHash, "", 1); err != nil {
		t.Fatalf("record success: %v", err)
	}

	changed, err := checker.Refresh(ctx, doc)
	if err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if changed {
		t.Fatal("expected no change for identical content")
	}
	states, err := store.StageStates(ctx, doc.ID)
	if err != nil {
		t.Fatalf("stage states: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected stage state preserved, got %d rows", len(states))
	}
}

func TestRefreshRequiresPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	doc := testsupport.NewDocument(t, store, "/inbox/ghost.pdf", "Ghost")
	doc.SourcePath = ""

	checker := idempotency.NewChecker(store, nil)
	if _, err := checker.Refresh(context.Background(), doc); err == nil {
		t.Fatal("expected error when document has no path")
	}
}
