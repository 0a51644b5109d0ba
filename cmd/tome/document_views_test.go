package main

import (
	"testing"

	"tome/internal/api"
)

func TestFormatStatusLabel(t *testing.T) {
	cases := map[string]string{
		"pending":      "Pending",
		"processing":   "Processing",
		"failed":       "Failed",
		"needs_review": "Needs Review",
		"":             "",
	}
	for input, want := range cases {
		if got := formatStatusLabel(input); got != want {
			t.Fatalf("formatStatusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatHash(t *testing.T) {
	if got := formatHash(""); got != "-" {
		t.Fatalf("expected dash for empty hash, got %q", got)
	}
	if got := formatHash("abcdef0123456789abcdef"); got != "abcdef012345" {
		t.Fatalf("expected truncated hash, got %q", got)
	}
	if got := formatHash("short"); got != "short" {
		t.Fatalf("expected short hash unchanged, got %q", got)
	}
}

func TestFormatDisplayTime(t *testing.T) {
	if got := formatDisplayTime(""); got != "" {
		t.Fatalf("expected empty result for empty time, got %q", got)
	}
	if got := formatDisplayTime("2026-03-14T09:26:53Z"); got != "2026-03-14 09:26" {
		t.Fatalf("unexpected formatted time %q", got)
	}
	if got := formatDisplayTime("not-a-time"); got != "not-a-time" {
		t.Fatalf("expected unparseable value passed through, got %q", got)
	}
}

func TestBuildDocumentListRowsSortsNewestFirst(t *testing.T) {
	docs := []api.Document{
		{ID: 1, Title: "Older", Status: "completed", CreatedAt: "2026-01-01T00:00:00Z"},
		{ID: 2, Title: "Newer", Status: "pending", CreatedAt: "2026-02-01T00:00:00Z"},
	}
	rows := buildDocumentListRows(docs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Newer" {
		t.Fatalf("expected newest document first, got %q", rows[0][1])
	}
}

func TestBuildCatalogStatusRows(t *testing.T) {
	rows := buildCatalogStatusRows(map[string]int{"pending": 2, "failed": 1})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Failed" || rows[0][1] != "1" {
		t.Fatalf("unexpected first row %v", rows[0])
	}
	if rows[1][0] != "Pending" || rows[1][1] != "2" {
		t.Fatalf("unexpected second row %v", rows[1])
	}
}
