package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestNewFanoutHandlerAllNil(t *testing.T) {
	if h := newFanoutHandler(nil, nil); h != (NoopHandler{}) {
		t.Fatalf("all-nil handlers should collapse to NoopHandler, got %T", h)
	}
}

func TestNewFanoutHandlerUnwrapsSingle(t *testing.T) {
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := newFanoutHandler(nil, inner, nil); h != inner {
		t.Fatal("lone non-nil handler should be returned unwrapped")
	}
}

func TestFanoutHandlerEnabled(t *testing.T) {
	warn := slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	debug := slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug})

	h := newFanoutHandler(warn, debug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled while any sink accepts it")
	}

	quiet := newFanoutHandler(warn, slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	if quiet.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled when no sink accepts it")
	}
}

func TestFanoutHandlerDeliversToAllSinks(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	logger := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	))

	logger.Info("fanned out", slog.String("stage", "embed"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"stage"`)) {
			t.Errorf("sink %d missing record attributes: %s", i+1, buf.String())
		}
	}
}

func TestFanoutHandlerSkipsDisabledSinks(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	logger := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	))

	logger.Info("info only")

	if infoBuf.Len() == 0 {
		t.Error("info sink should receive info records")
	}
	if warnBuf.Len() != 0 {
		t.Error("warn sink should not receive info records")
	}
}

func TestFanoutHandlerDebugStaysOutOfInfoSink(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	logger := slog.New(newFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("verbose detail")

	if infoBuf.Len() != 0 {
		t.Error("info sink should not receive debug records")
	}
	if debugBuf.Len() == 0 {
		t.Error("debug sink should receive debug records")
	}
}

func TestFanoutHandlerWithAttrsAndGroup(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newFanoutHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("document_id", "42")}).WithGroup("catalog"))
	logger.Info("grouped", slog.String("field", "value"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		if !bytes.Contains(buf.Bytes(), []byte(`"document_id"`)) {
			t.Errorf("sink %d missing shared attr: %s", i+1, buf.String())
		}
		if !bytes.Contains(buf.Bytes(), []byte(`"catalog"`)) {
			t.Errorf("sink %d missing group: %s", i+1, buf.String())
		}
	}
}

func TestTeeLogger(t *testing.T) {
	var baseBuf, teeBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&baseBuf, nil))

	logger := TeeLogger(base, slog.NewJSONHandler(&teeBuf, nil))
	logger.Info("duplicated")

	if baseBuf.Len() == 0 {
		t.Error("base sink missing record")
	}
	if teeBuf.Len() == 0 {
		t.Error("tee sink missing record")
	}
}

func TestTeeLoggerNilBase(t *testing.T) {
	var teeBuf bytes.Buffer
	logger := TeeLogger(nil, slog.NewJSONHandler(&teeBuf, nil))

	logger.Info("no base")

	if teeBuf.Len() == 0 {
		t.Error("tee sink missing record")
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	logger := slog.New(TeeHandler(
		slog.NewJSONHandler(&buf1, nil),
		slog.NewJSONHandler(&buf2, nil),
	))

	logger.Info("teed")

	if buf1.Len() == 0 || buf2.Len() == 0 {
		t.Error("both sinks should receive the record")
	}
}
