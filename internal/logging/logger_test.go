package logging_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tome/internal/config"
	"tome/internal/logging"
	"tome/internal/services"
	"tome/internal/testsupport"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("debug message")
}

func TestNewFromConfigNilUsesDefaults(t *testing.T) {
	logger, err := logging.NewFromConfig(nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon online")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "tomed.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon online") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerFormatsDocumentSubject(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-subject.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("stage started",
		logging.Int64(logging.FieldDocumentID, 42),
		logging.String(logging.FieldStage, "extract"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "Document #42 (extract)") {
		t.Fatalf("expected document subject in header, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "daemon.jsonl")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{`"msg":"json message"`, `"level":"info"`, `"k":"v"`} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %s in JSON output, got %q", want, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "invalid",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Info("visible")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") {
		t.Fatalf("expected debug output suppressed at default level, got %q", content)
	}
	if !strings.Contains(string(content), "visible") {
		t.Fatalf("expected info output at default level, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDocumentID(ctx, 123)
	ctx = services.WithStage(ctx, "classify")
	ctx = services.WithAttempt(ctx, 2)
	ctx = services.WithRequestID(ctx, "req-xyz")

	logPath := filepath.Join(t.TempDir(), "context.jsonl")
	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{
		`"document_id":123`,
		`"stage":"classify"`,
		`"attempt":2`,
		`"correlation_id":"req-xyz.classify.2"`,
	} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %s in output, got %q", want, content)
		}
	}
}

func TestWithLevelOverrideRaisesFloor(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "override.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	quiet := logging.WithLevelOverride(logger, slog.LevelWarn)
	quiet.Info("quiet info")
	quiet.Warn("loud warn")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "quiet info") {
		t.Fatalf("expected info suppressed by override, got %q", content)
	}
	if !strings.Contains(string(content), "loud warn") {
		t.Fatalf("expected warn emitted through override, got %q", content)
	}
}

func TestCleanupOldLogsPrunesByAge(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "tomed-2020.log")
	freshPath := filepath.Join(dir, "tomed.log")
	keepPath := filepath.Join(dir, "events.jsonl")

	for _, path := range []string{oldPath, freshPath, keepPath} {
		if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	staleTime := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(oldPath, staleTime, staleTime); err != nil {
		t.Fatalf("age old log: %v", err)
	}
	if err := os.Chtimes(keepPath, staleTime, staleTime); err != nil {
		t.Fatalf("age excluded log: %v", err)
	}

	logging.CleanupOldLogs(logging.NewNop(), 7, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.log",
	}, logging.RetentionTarget{
		Dir:     dir,
		Pattern: "*.jsonl",
		Exclude: []string{keepPath},
	})

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err = %v", err)
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Fatalf("expected fresh log kept: %v", err)
	}
	if _, err := os.Stat(keepPath); err != nil {
		t.Fatalf("expected excluded file kept: %v", err)
	}
}

func TestCleanupOldLogsDisabledByZeroRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tomed-old.log")
	if err := os.WriteFile(path, []byte("line\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	staleTime := time.Now().AddDate(0, 0, -365)
	if err := os.Chtimes(path, staleTime, staleTime); err != nil {
		t.Fatalf("age log: %v", err)
	}

	logging.CleanupOldLogs(logging.NewNop(), 0, logging.RetentionTarget{Dir: dir, Pattern: "*.log"})

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file untouched when retention disabled: %v", err)
	}
}

func TestConfigDefaultsRoundTripThroughLogger(t *testing.T) {
	cfg := config.Default()
	if cfg.Logging.Level == "" || cfg.Logging.Format == "" {
		t.Fatalf("expected logging defaults, got %+v", cfg.Logging)
	}
	if _, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, OutputPaths: []string{"stdout"}}); err != nil {
		t.Fatalf("defaults should construct a logger: %v", err)
	}
}
