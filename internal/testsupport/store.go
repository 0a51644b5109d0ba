package testsupport

import (
	"context"
	"testing"

	"tome/internal/catalog"
	"tome/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDocument creates a new document for tests using the provided store.
func NewDocument(t testing.TB, store *catalog.Store, sourcePath, title string) *catalog.Document {
	t.Helper()

	doc, err := store.NewDocument(context.Background(), sourcePath, title, "")
	if err != nil {
		t.Fatalf("store.NewDocument: %v", err)
	}
	return doc
}
