package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tome/internal/config"
)

const userAgent = "Tome/0.1.0"

// Message is a single webhook notification. Title, Tags, and Priority travel
// as ntfy-style headers; Body is the plain-text payload.
type Message struct {
	Title    string
	Body     string
	Tags     []string
	Priority string
}

// Service defines the delivery surface the alert dispatcher posts through.
type Service interface {
	Send(ctx context.Context, msg Message) error
	Test(ctx context.Context) error
	Enabled() bool
}

// NewService builds a webhook-backed service when a URL is configured and a
// noop otherwise. The dispatcher checks Enabled and leaves alerts queued when
// delivery is off.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Alerts.WebhookURL)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Alerts.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type webhookService struct {
	endpoint string
	client   *http.Client
}

func (w *webhookService) Enabled() bool { return true }

func (w *webhookService) Send(ctx context.Context, msg Message) error {
	return w.post(ctx, msg)
}

func (w *webhookService) Test(ctx context.Context) error {
	return w.post(ctx, Message{
		Title:    "Tome - Test",
		Body:     "Notification system test",
		Tags:     []string{"tome", "test"},
		Priority: "low",
	})
}

func (w *webhookService) post(ctx context.Context, msg Message) error {
	if w == nil || w.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	if msg.Priority != "" && msg.Priority != "default" {
		req.Header.Set("Priority", msg.Priority)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Enabled() bool                       { return false }
func (noopService) Send(context.Context, Message) error { return nil }
func (noopService) Test(context.Context) error          { return nil }
