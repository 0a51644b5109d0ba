package preflight

import (
	"context"
	"strings"

	"tome/internal/config"
)

// CheckEmbeddingFromConfig evaluates embedding endpoint status from config
// and connectivity. A deliberately unconfigured endpoint passes, since the
// embed stage simply stays off.
func CheckEmbeddingFromConfig(cfg *config.Config) Result {
	const name = "Embedding endpoint"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.EmbeddingConfigured() {
		return Result{Name: name, Passed: true, Detail: "Not configured (embed stage disabled)"}
	}
	check := CheckEmbedding(context.Background(), cfg.Embedding.BaseURL, cfg.Embedding.APIKey)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckWebhookFromConfig evaluates alert webhook status from config. Alerts
// without a webhook stay queued locally, which is a valid setup.
func CheckWebhookFromConfig(cfg *config.Config) Result {
	const name = "Alert webhook"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Alerts.WebhookURL) == "" {
		return Result{Name: name, Passed: true, Detail: "Not configured (alerts queue locally)"}
	}
	return CheckWebhookURL(cfg.Alerts.WebhookURL)
}
