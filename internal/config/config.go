package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Workflow contains daemon timing, concurrency, and retry defaults.
type Workflow struct {
	Workers               int `toml:"workers"`
	QueuePollInterval     int `toml:"queue_poll_interval"`
	ErrorRetryInterval    int `toml:"error_retry_interval"`
	HeartbeatInterval     int `toml:"heartbeat_interval"`
	HeartbeatTimeout      int `toml:"heartbeat_timeout"`
	LockHeartbeatInterval int `toml:"lock_heartbeat_interval"`
	LockTimeout           int `toml:"lock_timeout"`
	MaxAttempts           int `toml:"max_attempts"`
	RetryBackoff          int `toml:"retry_backoff"`
	StageTimeout          int `toml:"stage_timeout"`
	DocumentTimeout       int `toml:"document_timeout"`
}

// StageSettings tunes a single pipeline stage. Zero values fall back to the
// [workflow] defaults; a nil Enabled means the stage's own default applies.
type StageSettings struct {
	Enabled      *bool `toml:"enabled"`
	MaxAttempts  int   `toml:"max_attempts"`
	RetryBackoff int   `toml:"retry_backoff"`
	StageTimeout int   `toml:"stage_timeout"`
}

// Stages contains per-stage tuning sections.
type Stages struct {
	Extract   StageSettings `toml:"extract"`
	Images    StageSettings `toml:"images"`
	Tables    StageSettings `toml:"tables"`
	Classify  StageSettings `toml:"classify"`
	PartsMeta StageSettings `toml:"partsmeta"`
	Embed     StageSettings `toml:"embed"`
	Index     StageSettings `toml:"index"`
}

// Embedding contains connection settings for the embedding endpoint used by
// the embed stage. The stage stays disabled until a base URL is configured.
type Embedding struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	ChunkChars int    `toml:"chunk_chars"`
	MaxChunks  int    `toml:"max_chunks"`
}

// Alerts contains configuration for the durable alert queue and its webhook
// dispatcher. An empty webhook URL leaves alerts queued locally.
type Alerts struct {
	WebhookURL       string `toml:"webhook_url"`
	RequestTimeout   int    `toml:"request_timeout"`
	DispatchInterval int    `toml:"dispatch_interval"`
	MaxAttempts      int    `toml:"max_attempts"`
	Completions      bool   `toml:"completions"`
	Failures         bool   `toml:"failures"`
}

// Logging contains configuration for log output. RetentionDays bounds how
// long rotated log files and event archives stay on disk; zero disables
// pruning.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Tome.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, and log directories plus API bind address
//   - Workflow: worker pool size, poll intervals, lock and retry defaults
//   - Stages: per-stage enable flags and retry/timeout overrides
//   - Embedding: OpenAI-compatible endpoint used by the embed stage
//   - Alerts: alert queue webhook dispatch settings
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Workflow  Workflow  `toml:"workflow"`
	Stages    Stages    `toml:"stages"`
	Embedding Embedding `toml:"embedding"`
	Alerts    Alerts    `toml:"alerts"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tome/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/tome/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tome.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the location of the catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, "catalog.db")
}

// SocketPath returns the location of the daemon control socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "tomed.sock")
}

// LockPath returns the location of the daemon instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "tomed.lock")
}

// PIDPath returns the location of the daemon pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "tomed.pid")
}

// PdftotextBinary returns the external PDF text extraction executable name.
func (c *Config) PdftotextBinary() string {
	return "pdftotext"
}

// EmbeddingConfigured reports whether the embed stage has an endpoint to call.
func (c *Config) EmbeddingConfigured() bool {
	return strings.TrimSpace(c.Embedding.BaseURL) != ""
}

// SettingsFor returns a pointer to the tuning section for a stage name, or
// nil for unknown names.
func (s *Stages) SettingsFor(name string) *StageSettings {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "extract":
		return &s.Extract
	case "images":
		return &s.Images
	case "tables":
		return &s.Tables
	case "classify":
		return &s.Classify
	case "partsmeta":
		return &s.PartsMeta
	case "embed":
		return &s.Embed
	case "index":
		return &s.Index
	default:
		return nil
	}
}

// StageSettingsFor returns the tuning section for a stage name, falling back
// to an empty settings block for unknown names.
func (c *Config) StageSettingsFor(name string) StageSettings {
	if settings := c.Stages.SettingsFor(name); settings != nil {
		return *settings
	}
	return StageSettings{}
}

// StageMaxAttempts resolves the attempt budget for a stage.
func (c *Config) StageMaxAttempts(name string) int {
	if s := c.StageSettingsFor(name); s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return c.Workflow.MaxAttempts
}

// StageRetryBackoff resolves the base retry backoff for a stage.
func (c *Config) StageRetryBackoff(name string) time.Duration {
	if s := c.StageSettingsFor(name); s.RetryBackoff > 0 {
		return time.Duration(s.RetryBackoff) * time.Second
	}
	return time.Duration(c.Workflow.RetryBackoff) * time.Second
}

// StageTimeout resolves the execution timeout for a stage.
func (c *Config) StageTimeout(name string) time.Duration {
	if s := c.StageSettingsFor(name); s.StageTimeout > 0 {
		return time.Duration(s.StageTimeout) * time.Second
	}
	return time.Duration(c.Workflow.StageTimeout) * time.Second
}

// DocumentTimeout bounds wall-clock processing of a whole document across
// all stages and retries, measured from its first lease. Zero disables the
// bound.
func (c *Config) DocumentTimeout() time.Duration {
	return time.Duration(c.Workflow.DocumentTimeout) * time.Second
}

// StageEnabled resolves the enable flag for a stage given its default.
func (c *Config) StageEnabled(name string, fallback bool) bool {
	if s := c.StageSettingsFor(name); s.Enabled != nil {
		return *s.Enabled
	}
	return fallback
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
