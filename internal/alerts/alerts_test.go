package alerts_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tome/internal/alerts"
	"tome/internal/catalog"
	"tome/internal/notifications"
	"tome/internal/testsupport"
)

func TestPublishInsertsOutboxRow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	publisher := alerts.NewPublisher(store, nil, cfg.Alerts)
	publisher.DocumentCompleted(ctx, doc, "req-1.index.1")

	rows, err := store.ListAlerts(ctx, catalog.AlertPending, 10)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 queued alert, got %d", len(rows))
	}
	row := rows[0]
	if row.Event != alerts.EventDocumentCompleted {
		t.Fatalf("unexpected event %q", row.Event)
	}
	if row.Severity != alerts.SeverityInfo {
		t.Fatalf("unexpected severity %q", row.Severity)
	}
	if row.DocumentID == nil || *row.DocumentID != doc.ID {
		t.Fatalf("unexpected document id %v", row.DocumentID)
	}
	if row.CorrelationID != "req-1.index.1" {
		t.Fatalf("unexpected correlation id %q", row.CorrelationID)
	}
	if !strings.Contains(row.Payload, "Pump Manual") {
		t.Fatalf("expected payload to carry the title, got %q", row.Payload)
	}
}

func TestPublishHonorsEventToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	muted := cfg.Alerts
	muted.Completions = false
	muted.Failures = false

	publisher := alerts.NewPublisher(store, nil, muted)
	publisher.DocumentCompleted(ctx, doc, "req-1.index.1")
	publisher.StageFailed(ctx, doc, "extract", "req-1.extract.3", errors.New("pdftotext exploded"))
	publisher.DocumentFailed(ctx, doc, "req-1.extract.3", "extract failed")
	publisher.NeedsReview(ctx, doc, "req-1.classify.1", "low classification confidence")

	rows, err := store.ListAlerts(ctx, "", 10)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the review alert, got %d rows", len(rows))
	}
	if rows[0].Event != alerts.EventNeedsReview {
		t.Fatalf("unexpected surviving event %q", rows[0].Event)
	}
}

func TestPublishDegradesToLogOnStoreFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	publisher := alerts.NewPublisher(store, nil, cfg.Alerts)
	// Must not panic or block; the failure becomes a log line.
	publisher.DocumentCompleted(context.Background(), doc, "req-1.index.1")
}

func TestDispatchOnceDeliversPendingAlerts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	var mu sync.Mutex
	var titles []string
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg.Alerts.WebhookURL = server.URL
	publisher := alerts.NewPublisher(store, nil, cfg.Alerts)
	publisher.DocumentCompleted(ctx, doc, "req-1.index.1")
	publisher.StageFailed(ctx, doc, "extract", "req-2.extract.3", errors.New("pdftotext missing"))

	dispatcher := alerts.NewDispatcher(store, notifications.NewService(cfg), nil, cfg.Alerts)
	delivered, err := dispatcher.DispatchOnce(ctx)
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}

	sent, err := store.ListAlerts(ctx, catalog.AlertSent, 10)
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if len(sent) != 2 {
		t.Fatalf("expected 2 sent rows, got %d", len(sent))
	}
	pending, err := store.ListAlerts(ctx, catalog.AlertPending, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected outbox drained, %d rows remain", len(pending))
	}

	mu.Lock()
	defer mu.Unlock()
	joinedTitles := strings.Join(titles, "|")
	if !strings.Contains(joinedTitles, "Tome - Document Ready") || !strings.Contains(joinedTitles, "Tome - Stage Failed") {
		t.Fatalf("unexpected webhook titles %q", joinedTitles)
	}
	joinedBodies := strings.Join(bodies, "|")
	if !strings.Contains(joinedBodies, "Correlation: req-2.extract.3") {
		t.Fatalf("expected correlation line in webhook body, got %q", joinedBodies)
	}
}

func TestDispatchOnceParksAfterAttemptCap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken webhook", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg.Alerts.WebhookURL = server.URL
	cfg.Alerts.MaxAttempts = 2

	publisher := alerts.NewPublisher(store, nil, cfg.Alerts)
	publisher.DocumentFailed(ctx, doc, "req-1.extract.3", "extract failed")

	dispatcher := alerts.NewDispatcher(store, notifications.NewService(cfg), nil, cfg.Alerts)

	for pass := 1; pass <= 2; pass++ {
		delivered, err := dispatcher.DispatchOnce(ctx)
		if err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
		if delivered != 0 {
			t.Fatalf("pass %d: expected no deliveries, got %d", pass, delivered)
		}
	}

	failed, err := store.ListAlerts(ctx, catalog.AlertFailed, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected alert parked as failed, got %d rows", len(failed))
	}
	if failed[0].Attempts != 2 {
		t.Fatalf("expected 2 recorded attempts, got %d", failed[0].Attempts)
	}
	if !strings.Contains(failed[0].LastError, "broken webhook") {
		t.Fatalf("expected delivery error recorded, got %q", failed[0].LastError)
	}

	// Parked rows leave the pending queue for good.
	if delivered, err := dispatcher.DispatchOnce(ctx); err != nil || delivered != 0 {
		t.Fatalf("expected idle pass, delivered=%d err=%v", delivered, err)
	}
}

func TestDispatcherIdleWithoutWebhook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	doc := testsupport.NewDocument(t, store, "/inbox/pump_manual.pdf", "Pump Manual")

	publisher := alerts.NewPublisher(store, nil, cfg.Alerts)
	publisher.DocumentCompleted(ctx, doc, "req-1.index.1")

	dispatcher := alerts.NewDispatcher(store, notifications.NewService(cfg), nil, cfg.Alerts)
	delivered, err := dispatcher.DispatchOnce(ctx)
	if err != nil {
		t.Fatalf("DispatchOnce: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected idle dispatcher, delivered %d", delivered)
	}

	pending, err := store.ListAlerts(ctx, catalog.AlertPending, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected alert to stay queued, got %d rows", len(pending))
	}
}
