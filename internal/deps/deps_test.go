package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStubBinary(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "present")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestRequirementCheck(t *testing.T) {
	present := writeStubBinary(t)

	status := Requirement{Name: "Present", Command: present}.Check()
	if !status.Available {
		t.Fatalf("expected stub binary to resolve, got %#v", status)
	}
	if status.Detail != "" {
		t.Fatalf("unexpected detail for available binary: %s", status.Detail)
	}

	status = Requirement{Name: "Missing", Command: "clearly-not-present-binary"}.Check()
	if status.Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if status.Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
	if status.Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", status.Command)
	}
}

func TestRequirementCheckBlankCommand(t *testing.T) {
	status := Requirement{Name: "Unset", Command: "   "}.Check()
	if status.Available {
		t.Fatal("blank command should be unavailable")
	}
	if status.Detail != "command not configured" {
		t.Fatalf("unexpected detail %q", status.Detail)
	}
}

func TestCheckBinariesPreservesOrder(t *testing.T) {
	present := writeStubBinary(t)
	results := CheckBinaries([]Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "Present" || !results[0].Available {
		t.Fatalf("unexpected first result: %#v", results[0])
	}
	if results[1].Name != "Missing" || results[1].Available {
		t.Fatalf("unexpected second result: %#v", results[1])
	}
}

func TestPdftotextRequirement(t *testing.T) {
	req := Pdftotext("pdftotext")
	if req.Name != "pdftotext" || req.Optional {
		t.Fatalf("unexpected requirement: %#v", req)
	}
	if req.Description == "" {
		t.Fatal("expected a description for status output")
	}
}
