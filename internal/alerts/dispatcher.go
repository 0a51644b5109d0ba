package alerts

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/logging"
	"tome/internal/notifications"
)

const (
	dispatchBatchSize = 50
	sentRetention     = 7 * 24 * time.Hour
)

// Dispatcher drains pending alert rows toward the configured webhook.
// Delivery failures stay inside the outbox (attempt counter plus parking at
// the cap) and never propagate to document processing.
type Dispatcher struct {
	store       *catalog.Store
	service     notifications.Service
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
}

// NewDispatcher builds a dispatcher using the [alerts] cadence settings.
func NewDispatcher(store *catalog.Store, service notifications.Service, logger *slog.Logger, cfg config.Alerts) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.DispatchInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		store:       store,
		service:     service,
		logger:      logger.With(logging.String("component", "alert-dispatcher")),
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run drains the outbox on an interval until the context ends. With no
// webhook configured the loop stays idle and rows remain queued for
// inspection.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("alert dispatch pass failed", logging.Error(err))
			}
		}
	}
}

// DispatchOnce delivers one batch of pending alerts and prunes old sent
// rows. Returns the number delivered. Only storage errors surface; delivery
// errors are recorded on the rows themselves.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	if d.service == nil || !d.service.Enabled() {
		return 0, nil
	}

	batch, err := d.store.PendingAlerts(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, alert := range batch {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := d.service.Send(ctx, formatMessage(alert)); err != nil {
			attempts := alert.Attempts + 1
			if markErr := d.store.MarkAlertAttempt(ctx, alert.ID, attempts, d.maxAttempts, err.Error()); markErr != nil {
				return delivered, markErr
			}
			logging.WarnWithContext(d.logger, "alert delivery failed", "alert_delivery_failed",
				logging.String(logging.FieldAlert, alert.Event),
				logging.String(logging.FieldCorrelationID, alert.CorrelationID),
				logging.Int("attempt", attempts),
				logging.Int("max_attempts", d.maxAttempts),
				logging.Error(err),
				logging.String(logging.FieldImpact, "webhook did not receive the alert"),
			)
			continue
		}
		if err := d.store.MarkAlertSent(ctx, alert.ID); err != nil {
			return delivered, err
		}
		delivered++
	}

	if _, err := d.store.PurgeSentAlerts(ctx, time.Now().UTC().Add(-sentRetention)); err != nil {
		return delivered, err
	}
	return delivered, nil
}

func formatMessage(alert *catalog.Alert) notifications.Message {
	title, body := decodePayload(alert.Payload)
	if title == "" {
		title = "Tome - " + titleizeEvent(alert.Event)
	}
	if body == "" {
		body = alert.Event
	}
	if alert.CorrelationID != "" {
		body += "\nCorrelation: " + alert.CorrelationID
	}

	msg := notifications.Message{
		Title: title,
		Body:  body,
		Tags:  []string{"tome", alert.Event},
	}
	if alert.Severity == SeverityCritical {
		msg.Priority = "high"
	}
	return msg
}

func decodePayload(payload string) (string, string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ""
	}
	var decoded alertPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "", payload
	}
	return decoded.Title, decoded.Body
}

func titleizeEvent(event string) string {
	words := strings.Split(event, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
