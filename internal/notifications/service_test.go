package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tome/internal/config"
	"tome/internal/notifications"
)

func TestNewServiceReturnsNoopWhenWebhookMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Alerts.WebhookURL = ""

	svc := notifications.NewService(&cfg)
	if svc.Enabled() {
		t.Fatal("expected delivery disabled without a webhook URL")
	}
	if err := svc.Send(context.Background(), notifications.Message{Title: "ignored", Body: "ignored"}); err != nil {
		t.Fatalf("expected noop send to return nil, got %v", err)
	}
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("expected noop test to return nil, got %v", err)
	}
}

func TestWebhookServiceSendsHeadersAndBody(t *testing.T) {
	var captured struct {
		method   string
		title    string
		tags     string
		priority string
		body     string
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Alerts.WebhookURL = server.URL
	cfg.Alerts.RequestTimeout = 5

	svc := notifications.NewService(&cfg)
	if !svc.Enabled() {
		t.Fatal("expected webhook service to report enabled")
	}

	err := svc.Send(context.Background(), notifications.Message{
		Title:    "Tome - Document Failed",
		Body:     "extract failed for Pump Manual",
		Tags:     []string{"tome", "stage_failed"},
		Priority: "high",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if captured.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", captured.method)
	}
	if captured.title != "Tome - Document Failed" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.tags != "tome,stage_failed" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
	if captured.priority != "high" {
		t.Fatalf("unexpected priority %q", captured.priority)
	}
	if captured.body != "extract failed for Pump Manual" {
		t.Fatalf("unexpected body %q", captured.body)
	}
}

func TestWebhookServiceOmitsDefaultPriority(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Priority"); got != "" {
			t.Fatalf("expected no priority header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Alerts.WebhookURL = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Send(context.Background(), notifications.Message{Title: "t", Body: "b", Priority: "default"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
}

func TestWebhookServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Alerts.WebhookURL = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.Send(context.Background(), notifications.Message{Title: "t", Body: "b"})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestWebhookServiceTestMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Title"); got != "Tome - Test" {
			t.Fatalf("unexpected test title %q", got)
		}
		if got := r.Header.Get("Priority"); got != "low" {
			t.Fatalf("unexpected test priority %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Alerts.WebhookURL = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("Test returned error: %v", err)
	}
}
