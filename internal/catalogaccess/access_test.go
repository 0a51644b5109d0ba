package catalogaccess_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tome/internal/catalog"
	"tome/internal/catalogaccess"
	"tome/internal/testsupport"
)

func storeSession(t *testing.T) (catalogaccess.Session, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	session, err := catalogaccess.OpenWithFallback(nil, func() (*catalog.Store, []string, error) {
		return store, []string{"extract", "classify"}, nil
	})
	if err != nil {
		t.Fatalf("OpenWithFallback: %v", err)
	}
	return session, store
}

func TestStoreAccessListDescribeRetry(t *testing.T) {
	session, store := storeSession(t)
	ctx := context.Background()

	docA := testsupport.NewDocument(t, store, filepath.Join(t.TempDir(), "a.pdf"), "Doc A")
	docB := testsupport.NewDocument(t, store, filepath.Join(t.TempDir(), "b.pdf"), "Doc B")
	docB.SetFailed("extract exploded")
	if err := store.Update(ctx, docB); err != nil {
		t.Fatalf("Update docB: %v", err)
	}

	docs, err := session.Access.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	failed, err := session.Access.List(ctx, []string{"failed", "bogus"})
	if err != nil {
		t.Fatalf("List failed filter: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != docB.ID {
		t.Fatalf("unexpected failed filter result: %#v", failed)
	}

	desc, err := session.Access.Describe(ctx, docA.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.ID != docA.ID || len(desc.Stages) != 2 {
		t.Fatalf("unexpected describe result: %#v", desc)
	}
	if _, err := session.Access.Describe(ctx, docB.ID+50); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}

	stats, err := session.Access.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[string(catalog.StatusFailed)] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	updated, err := session.Access.Retry(ctx, nil)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 retried document, got %d", updated)
	}

	removed, err := session.Access.Remove(ctx, []int64{docA.ID, docA.ID + 99})
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed document, got %d", removed)
	}

	cleared, err := session.Access.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared document, got %d", cleared)
	}
}

func TestStoreAccessAlertsValidation(t *testing.T) {
	session, _ := storeSession(t)
	ctx := context.Background()

	alerts, err := session.Access.Alerts(ctx, "", 0)
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
	if _, err := session.Access.Alerts(ctx, "bogus", 0); err == nil {
		t.Fatal("expected unknown alert status error")
	}
}

func TestOpenWithFallbackRequiresOpener(t *testing.T) {
	if _, err := catalogaccess.OpenWithFallback(nil, nil); err == nil {
		t.Fatal("expected error when no opener configured")
	}
}
