package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateAlerts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf(
			"workflow.heartbeat_timeout (%ds) must exceed workflow.heartbeat_interval (%ds)",
			c.Workflow.HeartbeatTimeout, c.Workflow.HeartbeatInterval,
		)
	}
	if c.Workflow.LockTimeout <= c.Workflow.LockHeartbeatInterval {
		return fmt.Errorf(
			"workflow.lock_timeout (%ds) must exceed workflow.lock_heartbeat_interval (%ds)",
			c.Workflow.LockTimeout, c.Workflow.LockHeartbeatInterval,
		)
	}
	if c.Workflow.DocumentTimeout < 0 {
		return errors.New("workflow.document_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateStages() error {
	sections := map[string]StageSettings{
		"extract":   c.Stages.Extract,
		"images":    c.Stages.Images,
		"tables":    c.Stages.Tables,
		"classify":  c.Stages.Classify,
		"partsmeta": c.Stages.PartsMeta,
		"embed":     c.Stages.Embed,
		"index":     c.Stages.Index,
	}
	for name, settings := range sections {
		if settings.MaxAttempts < 0 {
			return fmt.Errorf("stages.%s.max_attempts must not be negative", name)
		}
		if settings.RetryBackoff < 0 {
			return fmt.Errorf("stages.%s.retry_backoff must not be negative", name)
		}
		if settings.StageTimeout < 0 {
			return fmt.Errorf("stages.%s.stage_timeout must not be negative", name)
		}
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if c.Embedding.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Embedding.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("embedding.base_url %q is not a valid URL", c.Embedding.BaseURL)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model must be set when embedding.base_url is configured")
	}
	return nil
}

func (c *Config) validateAlerts() error {
	if c.Alerts.WebhookURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Alerts.WebhookURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("alerts.webhook_url %q is not a valid URL", c.Alerts.WebhookURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
