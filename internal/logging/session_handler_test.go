package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSessionIDHandlerStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	handler := newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "diag-20260314")

	slog.New(handler).Info("probe")

	if got := buf.String(); !strings.Contains(got, `"session_id":"diag-20260314"`) {
		t.Fatalf("session_id missing from output: %s", got)
	}
}

func TestSessionIDHandlerPreservesAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := newSessionIDHandler(slog.NewJSONHandler(&buf, nil), "diag-abc")

	slog.New(handler).With("stage", "extract").Info("probe")

	got := buf.String()
	if !strings.Contains(got, `"session_id":"diag-abc"`) {
		t.Errorf("session_id missing from output: %s", got)
	}
	if !strings.Contains(got, `"stage":"extract"`) {
		t.Errorf("logger attr missing from output: %s", got)
	}
}

func TestSessionIDHandlerNilBase(t *testing.T) {
	if _, ok := newSessionIDHandler(nil, "diag").(NoopHandler); !ok {
		t.Fatal("nil base should yield NoopHandler")
	}
}
