package indexing_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/indexing"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/testsupport"
)

func newFixture(t *testing.T, title, text string) (*config.Config, *catalog.Store, *catalog.Document) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.NewDocument(t, store, "/inbox/doc.pdf", title)

	dir := t.TempDir()
	staged := filepath.Join(dir, "doc.pdf")
	if err := os.WriteFile(staged, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("seed staged file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, extraction.TextArtifact), []byte(text), 0o644); err != nil {
		t.Fatalf("seed text artifact: %v", err)
	}
	doc.StagedPath = staged
	doc.DocClass = "datasheet"
	if err := store.Update(context.Background(), doc); err != nil {
		t.Fatalf("update document: %v", err)
	}
	return cfg, store, doc
}

func TestIndexerMakesDocumentSearchable(t *testing.T) {
	cfg, store, doc := newFixture(t, "Regulator Guide", "resistor resistor capacitor values")
	indexer := indexing.New(cfg, store, logging.NewNop())

	if err := indexer.Prepare(context.Background(), doc); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := indexer.Execute(context.Background(), doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	count, err := store.IndexedCount(context.Background())
	if err != nil {
		t.Fatalf("IndexedCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one indexed document, got %d", count)
	}

	hits, err := store.Search(context.Background(), []string{"resistor"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != doc.ID {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if hits[0].DocClass != "datasheet" || hits[0].Title != "Regulator Guide" {
		t.Fatalf("unexpected hit metadata %+v", hits[0])
	}
	if hits[0].Score <= 0 {
		t.Fatalf("expected positive score, got %v", hits[0].Score)
	}
}

func TestIndexerIndexesTitleTokens(t *testing.T) {
	cfg, store, doc := newFixture(t, "Thermal Handbook", "unrelated body words")
	indexer := indexing.New(cfg, store, logging.NewNop())

	if err := indexer.Execute(context.Background(), doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	hits, err := store.Search(context.Background(), []string{"thermal"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected title token hit, got %+v", hits)
	}
}

func TestIndexerReindexReplacesPostings(t *testing.T) {
	cfg, store, doc := newFixture(t, "Guide", "inductor saturation current")
	indexer := indexing.New(cfg, store, logging.NewNop())

	if err := indexer.Execute(context.Background(), doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	textPath := filepath.Join(filepath.Dir(doc.StagedPath), extraction.TextArtifact)
	if err := os.WriteFile(textPath, []byte("capacitor ripple voltage"), 0o644); err != nil {
		t.Fatalf("rewrite text artifact: %v", err)
	}
	if err := indexer.Execute(context.Background(), doc); err != nil {
		t.Fatalf("reindex Execute: %v", err)
	}

	stale, err := store.Search(context.Background(), []string{"inductor"}, 10)
	if err != nil {
		t.Fatalf("Search stale: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected stale postings replaced, got %+v", stale)
	}
	fresh, err := store.Search(context.Background(), []string{"capacitor"}, 10)
	if err != nil {
		t.Fatalf("Search fresh: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("expected fresh postings, got %+v", fresh)
	}
}

func TestIndexerMultiTermSearchRequiresAllTerms(t *testing.T) {
	cfg, store, doc := newFixture(t, "Guide", "buck converter layout")
	indexer := indexing.New(cfg, store, logging.NewNop())
	if err := indexer.Execute(context.Background(), doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	hits, err := store.Search(context.Background(), []string{"buck", "layout"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected all-terms match, got %+v", hits)
	}
	miss, err := store.Search(context.Background(), []string{"buck", "missing"}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(miss) != 0 {
		t.Fatalf("expected no hits when a term is absent, got %+v", miss)
	}
}

func TestIndexerPrepareRequiresTextArtifact(t *testing.T) {
	cfg, store, doc := newFixture(t, "Guide", "anything")
	if err := os.Remove(filepath.Join(filepath.Dir(doc.StagedPath), extraction.TextArtifact)); err != nil {
		t.Fatalf("remove text artifact: %v", err)
	}
	indexer := indexing.New(cfg, store, logging.NewNop())

	err := indexer.Prepare(context.Background(), doc)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestIndexerEnabledFollowsConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageEnabled("index", false))
	store := testsupport.MustOpenStore(t, cfg)
	if indexing.New(cfg, store, logging.NewNop()).Enabled() {
		t.Fatal("expected index stage disabled by config")
	}
}
