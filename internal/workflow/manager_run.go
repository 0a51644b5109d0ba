package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"tome/internal/catalog"
	"tome/internal/logging"
	"tome/internal/observability"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.registry == nil || len(m.registry.Names()) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	pool, err := ants.NewPool(m.cfg.Workflow.Workers)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("create worker pool: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.pool = pool
	m.cancel = cancel
	m.running = true
	m.wg.Add(2)
	m.mu.Unlock()

	go m.runScheduler(runCtx)
	go m.runDispatcher(runCtx)
	return nil
}

// Stop terminates background processing, waits for in-flight documents to
// settle, and returns the ones still leased to the pending queue.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	if m.pool != nil {
		m.pool.Release()
		m.pool = nil
	}
	m.mu.Unlock()

	releaseCtx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRelease()
	released, err := m.store.ReleaseInFlight(releaseCtx)
	switch {
	case err != nil:
		m.logger.Warn("failed to release in-flight documents",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run tome sweep to repair the queue"),
		)
	case released > 0:
		m.logger.Info("released in-flight documents for restart", logging.Int64("count", released))
	}
}

func (m *Manager) runDispatcher(ctx context.Context) {
	defer m.wg.Done()
	m.dispatcher.Run(ctx)
}

func (m *Manager) runScheduler(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String("component", "workflow"))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.runMaintenance(ctx, logger)

		if m.poolFree() == 0 {
			m.waitForDocumentOrShutdown(ctx)
			continue
		}

		doc, err := m.store.LeaseNext(ctx, time.Now().UTC())
		if err != nil {
			m.handleLeaseError(ctx, logger, err)
			continue
		}
		if doc == nil {
			m.waitForDocumentOrShutdown(ctx)
			continue
		}
		m.dispatchDocument(ctx, logger, doc)
	}
}

// dispatchDocument hands a leased document to the worker pool. The pool has
// free capacity when this is called, so Submit does not block.
func (m *Manager) dispatchDocument(ctx context.Context, logger *slog.Logger, doc *catalog.Document) {
	m.wg.Add(1)
	err := m.pool.Submit(func() {
		defer m.wg.Done()
		m.runDocument(ctx, doc)
	})
	if err != nil {
		m.wg.Done()
		m.setLastError(err)
		logger.Error("failed to submit document to worker pool",
			logging.Error(err),
			logging.Int64(logging.FieldDocumentID, doc.ID),
			logging.String(logging.FieldEventType, "dispatch_failed"),
		)
		if parkErr := m.store.Park(ctx, doc.ID, nil); parkErr != nil {
			logger.Error("failed to return document to queue", logging.Error(parkErr),
				logging.Int64(logging.FieldDocumentID, doc.ID))
		}
	}
}

func (m *Manager) poolFree() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pool == nil {
		return 0
	}
	return m.pool.Free()
}

func (m *Manager) runMaintenance(ctx context.Context, logger *slog.Logger) {
	if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("reclaim stale documents failed; stuck documents may remain",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
	}
	if swept, err := m.locks.Sweep(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("advisory lock sweep failed", logging.Error(err))
		}
	} else {
		observability.RecordLockSweep(swept)
	}
	m.publishQueueDepth(ctx)
}

func (m *Manager) publishQueueDepth(ctx context.Context) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return
	}
	for _, status := range catalog.AllStatuses() {
		observability.SetQueueDepth(string(status), stats[status])
	}
}

func (m *Manager) handleLeaseError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to lease next document",
		logging.Error(err),
		logging.String(logging.FieldEventType, "lease_failed"),
		logging.String(logging.FieldErrorHint, "check catalog database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForDocumentOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
