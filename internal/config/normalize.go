package config

import (
	"fmt"
	"strings"
)

// normalize expands user paths and fills in derived defaults after decode.
func (c *Config) normalize() error {
	pathFields := []struct {
		name  string
		value *string
	}{
		{"paths.data_dir", &c.Paths.DataDir},
		{"paths.staging_dir", &c.Paths.StagingDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("normalize %s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Embedding.BaseURL = strings.TrimSpace(c.Embedding.BaseURL)
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	c.Alerts.WebhookURL = strings.TrimSpace(c.Alerts.WebhookURL)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.LockHeartbeatInterval <= 0 {
		c.Workflow.LockHeartbeatInterval = defaultLockHeartbeatInterval
	}
	if c.Workflow.LockTimeout <= 0 {
		c.Workflow.LockTimeout = defaultLockTimeout
	}
	if c.Workflow.MaxAttempts <= 0 {
		c.Workflow.MaxAttempts = defaultMaxAttempts
	}
	if c.Workflow.RetryBackoff <= 0 {
		c.Workflow.RetryBackoff = defaultRetryBackoff
	}
	if c.Workflow.StageTimeout <= 0 {
		c.Workflow.StageTimeout = defaultStageTimeout
	}

	if c.Embedding.ChunkChars <= 0 {
		c.Embedding.ChunkChars = defaultEmbeddingChunkChars
	}
	if c.Embedding.MaxChunks <= 0 {
		c.Embedding.MaxChunks = defaultEmbeddingMaxChunks
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}

	if c.Alerts.RequestTimeout <= 0 {
		c.Alerts.RequestTimeout = defaultAlertRequestTimeout
	}
	if c.Alerts.DispatchInterval <= 0 {
		c.Alerts.DispatchInterval = defaultAlertDispatchInterval
	}
	if c.Alerts.MaxAttempts <= 0 {
		c.Alerts.MaxAttempts = defaultAlertMaxAttempts
	}

	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	return nil
}
