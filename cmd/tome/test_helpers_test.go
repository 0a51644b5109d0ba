package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/daemon"
	"tome/internal/ipc"
	"tome/internal/logging"
	"tome/internal/notifications"
	"tome/internal/stage"
	"tome/internal/testsupport"
	"tome/internal/workflow"
)

type noopStage struct{ name string }

func (s noopStage) Enabled() bool                                    { return true }
func (s noopStage) Prepare(context.Context, *catalog.Document) error { return nil }
func (s noopStage) Execute(context.Context, *catalog.Document) error { return nil }
func (s noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *catalog.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	configPath := filepath.Join(homeDir, ".config", "tome", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	logger := logging.NewNop()
	registry, err := stage.NewRegistry(
		stage.Registration{
			Definition: stage.Definition{Name: "extract", Idempotent: true, MaxAttempts: 3, RetryBackoff: 50 * time.Millisecond},
			Handler:    noopStage{name: "extract"},
		},
		stage.Registration{
			Definition: stage.Definition{Name: "classify", Requires: []string{"extract"}, Idempotent: true, MaxAttempts: 3, RetryBackoff: 50 * time.Millisecond},
			Handler:    noopStage{name: "classify"},
		},
	)
	if err != nil {
		t.Fatalf("stage.NewRegistry: %v", err)
	}
	mgr, err := workflow.NewManagerWithOptions(cfg, store, logger, registry, notifications.NewService(cfg))
	if err != nil {
		t.Fatalf("workflow.NewManagerWithOptions: %v", err)
	}

	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := filepath.Join(cfg.Paths.LogDir, "cli.sock")
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nstaging_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[workflow]\nworkers = %d\nqueue_poll_interval = %d\n",
		cfg.Paths.DataDir,
		cfg.Paths.StagingDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Workflow.Workers,
		cfg.Workflow.QueuePollInterval,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeSourceDocument(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4\ntest document body\n"), 0o644); err != nil {
		t.Fatalf("write source document: %v", err)
	}
	return path
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
