package workflow

import (
	"context"

	"tome/internal/catalog"
	"tome/internal/logging"
	"tome/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running      bool
	LastError    string
	LastDocument *catalog.Document
	QueueStats   map[catalog.Status]int
	StageHealth  map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastDocument := m.lastDocument
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}

	names := m.registry.Names()
	health := make(map[string]stage.Health, len(names))
	for _, name := range names {
		handler := m.registry.Handler(name)
		if handler == nil {
			continue
		}
		health[name] = handler.HealthCheck(ctx)
	}

	summary := StatusSummary{Running: running, QueueStats: stats, StageHealth: health}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastDocument != nil {
		copy := *lastDocument
		summary.LastDocument = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastDocument(doc *catalog.Document) {
	m.mu.Lock()
	if doc != nil {
		copy := *doc
		m.lastDocument = &copy
	} else {
		m.lastDocument = nil
	}
	m.mu.Unlock()
}
