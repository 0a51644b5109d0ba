package extraction_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/extraction"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/services/pdftotext"
	"tome/internal/testsupport"
)

type fixture struct {
	cfg   *config.Config
	store *catalog.Store
	doc   *catalog.Document
}

func newFixture(t *testing.T, filename string, content []byte) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.NewDocument(t, store, filepath.Join("/inbox", filename), "Test Document")

	staged := filepath.Join(t.TempDir(), filename)
	if err := os.WriteFile(staged, content, 0o644); err != nil {
		t.Fatalf("seed staged file: %v", err)
	}
	doc.StagedPath = staged
	if err := store.Update(context.Background(), doc); err != nil {
		t.Fatalf("update document: %v", err)
	}
	return &fixture{cfg: cfg, store: store, doc: doc}
}

func (f *fixture) readArtifact(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(f.doc.StagedPath), name))
	if err != nil {
		t.Fatalf("read artifact %s: %v", name, err)
	}
	return string(data)
}

func installStubTool(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestExtractorReadsPlainTextSource(t *testing.T) {
	f := newFixture(t, "datasheet.txt", []byte("line one\r\nline two\rline three\n"))
	handler := extraction.New(f.cfg, f.store, logging.NewNop())

	if err := handler.Prepare(context.Background(), f.doc); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), f.doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := f.readArtifact(t, extraction.TextArtifact)
	if got != "line one\nline two\nline three\n" {
		t.Fatalf("unexpected artifact content %q", got)
	}
}

func TestExtractorPrepareRejectsUnsupportedFormat(t *testing.T) {
	f := newFixture(t, "drawing.dwg", []byte("binary-ish"))
	handler := extraction.New(f.cfg, f.store, logging.NewNop())

	err := handler.Prepare(context.Background(), f.doc)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractorPrepareRejectsMissingStagedFile(t *testing.T) {
	f := newFixture(t, "manual.txt", []byte("body"))
	f.doc.StagedPath = filepath.Join(t.TempDir(), "gone.txt")
	handler := extraction.New(f.cfg, f.store, logging.NewNop())

	err := handler.Prepare(context.Background(), f.doc)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractorPDFNeedsToolInstalled(t *testing.T) {
	f := newFixture(t, "board.pdf", []byte("%PDF-1.4 stub"))
	client := pdftotext.NewClient("definitely-not-a-real-binary-name")
	handler := extraction.NewWithClient(f.cfg, f.store, logging.NewNop(), client)

	err := handler.Execute(context.Background(), f.doc)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExtractorExtractsPDFWithTool(t *testing.T) {
	f := newFixture(t, "board.pdf", []byte("%PDF-1.4 stub"))
	installStubTool(t, "pdftotext", "#!/bin/sh\nlast=\nfor a; do last=$a; done\nprintf 'Part list\\r\\nR1 10k\\r\\n' > \"$last\"\n")
	handler := extraction.New(f.cfg, f.store, logging.NewNop())

	if err := handler.Execute(context.Background(), f.doc); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := f.readArtifact(t, extraction.TextArtifact)
	if got != "Part list\nR1 10k\n" {
		t.Fatalf("unexpected artifact content %q", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(f.doc.StagedPath), extraction.TextArtifact+".tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp extraction file to be removed, stat err %v", err)
	}
}

func TestExtractorToolFailureIsTransient(t *testing.T) {
	f := newFixture(t, "board.pdf", []byte("%PDF-1.4 stub"))
	installStubTool(t, "pdftotext", "#!/bin/sh\necho 'Syntax Error' >&2\nexit 1\n")
	handler := extraction.New(f.cfg, f.store, logging.NewNop())

	err := handler.Execute(context.Background(), f.doc)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("expected tool failure to classify retryable, got %v", err)
	}
}

func TestExtractorHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	missing := extraction.NewWithClient(cfg, store, logging.NewNop(), pdftotext.NewClient("definitely-not-a-real-binary-name"))
	health := missing.HealthCheck(context.Background())
	if health.Ready {
		t.Fatal("expected unhealthy without pdftotext on PATH")
	}
	if !strings.Contains(health.Detail, "not found") {
		t.Fatalf("unexpected health detail %q", health.Detail)
	}

	installStubTool(t, "pdftotext", "#!/bin/sh\nexit 0\n")
	ready := extraction.New(cfg, store, logging.NewNop())
	if health := ready.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy with stub tool, detail %q", health.Detail)
	}
}

func TestExtractorEnabledFollowsConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStageEnabled("extract", false))
	store := testsupport.MustOpenStore(t, cfg)
	handler := extraction.New(cfg, store, logging.NewNop())
	if handler.Enabled() {
		t.Fatal("expected extract stage disabled by config")
	}
}
