// Package alerts implements the durable alert queue. Publishing is a single
// outbox INSERT so the processing hot path never waits on delivery; a
// dispatcher drains the outbox toward the configured webhook on its own
// schedule.
package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/logging"
)

// Severity levels carried on alert rows.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event names carried on alert rows.
const (
	EventDocumentCompleted = "document_completed"
	EventDocumentFailed    = "document_failed"
	EventStageFailed       = "stage_failed"
	EventNeedsReview       = "needs_review"
)

// Alert is the publish-side view of an outbox row. DocumentID zero means the
// alert is not tied to a document.
type Alert struct {
	Severity      string
	Event         string
	DocumentID    int64
	CorrelationID string
	Title         string
	Body          string
}

type alertPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Publisher enqueues alerts into the catalog outbox.
type Publisher struct {
	store       *catalog.Store
	logger      *slog.Logger
	completions bool
	failures    bool
}

// NewPublisher builds a publisher honoring the [alerts] event toggles.
func NewPublisher(store *catalog.Store, logger *slog.Logger, cfg config.Alerts) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		store:       store,
		logger:      logger.With(logging.String("component", "alerts")),
		completions: cfg.Completions,
		failures:    cfg.Failures,
	}
}

// Publish enqueues the alert. It never blocks on delivery and never returns
// an error: when even the insert fails the alert degrades to a log line and
// processing continues.
func (p *Publisher) Publish(ctx context.Context, alert Alert) {
	if p == nil || !p.wants(alert.Event) {
		return
	}

	row := &catalog.Alert{
		ID:            uuid.NewString(),
		Severity:      defaultString(alert.Severity, SeverityInfo),
		Event:         alert.Event,
		CorrelationID: alert.CorrelationID,
		Payload:       encodePayload(alert.Title, alert.Body),
	}
	if alert.DocumentID > 0 {
		id := alert.DocumentID
		row.DocumentID = &id
	}

	if err := p.store.InsertAlert(ctx, row); err != nil {
		logging.ErrorWithContext(p.logger, "alert enqueue failed; degraded to log", "alert_enqueue_failed",
			logging.String(logging.FieldAlert, alert.Event),
			logging.Int64(logging.FieldDocumentID, alert.DocumentID),
			logging.String(logging.FieldCorrelationID, alert.CorrelationID),
			logging.String("severity", row.Severity),
			logging.String("alert_body", alert.Body),
			logging.Error(err),
			logging.String(logging.FieldImpact, "alert will not reach the webhook"),
		)
		return
	}

	p.logger.Debug("alert queued",
		logging.String(logging.FieldAlert, alert.Event),
		logging.Int64(logging.FieldDocumentID, alert.DocumentID),
		logging.String(logging.FieldCorrelationID, alert.CorrelationID),
	)
}

// DocumentCompleted announces a document that finished every stage.
func (p *Publisher) DocumentCompleted(ctx context.Context, doc *catalog.Document, correlationID string) {
	if doc == nil {
		return
	}
	p.Publish(ctx, Alert{
		Severity:      SeverityInfo,
		Event:         EventDocumentCompleted,
		DocumentID:    doc.ID,
		CorrelationID: correlationID,
		Title:         "Tome - Document Ready",
		Body:          "Processing complete: " + displayTitle(doc),
	})
}

// StageFailed announces a stage that failed for good (after retries, or
// immediately for permanent and fatal faults).
func (p *Publisher) StageFailed(ctx context.Context, doc *catalog.Document, stage, correlationID string, cause error) {
	if doc == nil {
		return
	}
	body := "Stage " + stage + " failed for " + displayTitle(doc)
	if cause != nil {
		body += ": " + strings.TrimSpace(cause.Error())
	}
	p.Publish(ctx, Alert{
		Severity:      SeverityCritical,
		Event:         EventStageFailed,
		DocumentID:    doc.ID,
		CorrelationID: correlationID,
		Title:         "Tome - Stage Failed",
		Body:          body,
	})
}

// DocumentFailed announces a document that can make no further progress.
func (p *Publisher) DocumentFailed(ctx context.Context, doc *catalog.Document, correlationID, reason string) {
	if doc == nil {
		return
	}
	body := "Processing failed: " + displayTitle(doc)
	if reason = strings.TrimSpace(reason); reason != "" {
		body += "\n" + reason
	}
	p.Publish(ctx, Alert{
		Severity:      SeverityCritical,
		Event:         EventDocumentFailed,
		DocumentID:    doc.ID,
		CorrelationID: correlationID,
		Title:         "Tome - Document Failed",
		Body:          body,
	})
}

// NeedsReview announces a document parked for manual attention.
func (p *Publisher) NeedsReview(ctx context.Context, doc *catalog.Document, correlationID, reason string) {
	if doc == nil {
		return
	}
	body := "Manual review required: " + displayTitle(doc)
	if reason = strings.TrimSpace(reason); reason != "" {
		body += "\n" + reason
	}
	p.Publish(ctx, Alert{
		Severity:      SeverityWarning,
		Event:         EventNeedsReview,
		DocumentID:    doc.ID,
		CorrelationID: correlationID,
		Title:         "Tome - Review Needed",
		Body:          body,
	})
}

func (p *Publisher) wants(event string) bool {
	switch event {
	case EventDocumentCompleted:
		return p.completions
	case EventDocumentFailed, EventStageFailed:
		return p.failures
	default:
		return true
	}
}

func encodePayload(title, body string) string {
	data, err := json.Marshal(alertPayload{Title: title, Body: body})
	if err != nil {
		return body
	}
	return string(data)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func displayTitle(doc *catalog.Document) string {
	if title := strings.TrimSpace(doc.Title); title != "" {
		return title
	}
	return doc.SourcePath
}
