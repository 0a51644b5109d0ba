// Package locks provides the advisory per-stage lock manager. Locks are rows
// in the catalog database, so mutual exclusion holds across every process
// that shares the catalog, and a crashed holder is recovered by sweeping
// expired rows rather than by any in-memory state.
package locks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"tome/internal/catalog"
	"tome/internal/logging"
)

// Manager wraps the catalog lock table with an owner identity and the TTL
// and heartbeat cadence from configuration.
type Manager struct {
	store    *catalog.Store
	logger   *slog.Logger
	owner    string
	ttl      time.Duration
	interval time.Duration
}

// NewManager builds a lock manager. ttl is how long a lock survives without
// a heartbeat; interval is the heartbeat cadence used by Keep.
func NewManager(store *catalog.Store, logger *slog.Logger, ttl, interval time.Duration) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if interval <= 0 || interval >= ttl {
		interval = ttl / 4
	}
	return &Manager{
		store:    store,
		logger:   logger.With(logging.String("component", "locks")),
		owner:    defaultOwner(),
		ttl:      ttl,
		interval: interval,
	}
}

// Owner returns this process's lock owner identity (host:pid:instance).
func (m *Manager) Owner() string {
	return m.owner
}

// TryAcquire claims the (document, stage) lock without blocking. False means
// another live owner holds it; the caller should skip, not wait.
func (m *Manager) TryAcquire(ctx context.Context, documentID int64, stage string) (bool, error) {
	acquired, err := m.store.TryAcquireLock(ctx, documentID, stage, m.owner, m.ttl)
	if err != nil {
		return false, err
	}
	if !acquired {
		m.logger.Debug("lock contended",
			logging.Int64(logging.FieldDocumentID, documentID),
			logging.String(logging.FieldStage, stage),
		)
	}
	return acquired, nil
}

// Release drops the lock if this manager still owns it. Safe to call after
// expiry; a lock taken over by another owner is left alone.
func (m *Manager) Release(ctx context.Context, documentID int64, stage string) error {
	if err := m.store.ReleaseLock(ctx, documentID, stage, m.owner); err != nil {
		return fmt.Errorf("release %s lock: %w", stage, err)
	}
	return nil
}

// Extend pushes the lock expiry forward by the TTL. False means the lock was
// lost, usually because the holder stalled past the timeout and a sweep or
// takeover intervened.
func (m *Manager) Extend(ctx context.Context, documentID int64, stage string) (bool, error) {
	return m.store.ExtendLock(ctx, documentID, stage, m.owner, m.ttl)
}

// Keep heartbeats the lock until the context ends. Run it in its own
// goroutine alongside stage execution; cancel the context once the stage
// finished and the lock is released.
func (m *Manager) Keep(ctx context.Context, wg *sync.WaitGroup, documentID int64, stage string) {
	defer wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	logger := m.logger.With(
		logging.Int64(logging.FieldDocumentID, documentID),
		logging.String(logging.FieldStage, stage),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := m.Extend(ctx, documentID, stage)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("lock heartbeat failed", logging.Error(err))
				continue
			}
			if !held {
				logger.Warn("lock lost during execution; another owner took over")
				return
			}
		}
	}
}

// Sweep removes expired locks and reopens the stage work they were guarding.
// Returns the number of locks cleared.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	expired, err := m.store.SweepExpiredLocks(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, lock := range expired {
		reopened, err := m.store.ReopenRunningStage(ctx, lock.DocumentID, lock.Stage)
		if err != nil {
			return len(expired), err
		}
		m.logger.Info("expired lock swept",
			logging.Int64(logging.FieldDocumentID, lock.DocumentID),
			logging.String(logging.FieldStage, lock.Stage),
			logging.String("owner", lock.Owner),
			logging.Bool("stage_reopened", reopened),
		)
	}
	return len(expired), nil
}

// Locks lists the advisory locks currently held, for status surfaces.
func (m *Manager) Locks(ctx context.Context) ([]catalog.Lock, error) {
	return m.store.ListLocks(ctx)
}

func defaultOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	instance := uuid.NewString()[:8]
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), instance)
}
