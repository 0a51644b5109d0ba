package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"tome/internal/alerts"
	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/idempotency"
	"tome/internal/locks"
	"tome/internal/notifications"
	"tome/internal/stage"
)

// Manager coordinates document processing across the stage pipeline.
type Manager struct {
	cfg      *config.Config
	store    *catalog.Store
	logger   *slog.Logger
	registry *stage.Registry

	checker    *idempotency.Checker
	locks      *locks.Manager
	alerts     *alerts.Publisher
	dispatcher *alerts.Dispatcher
	heartbeat  *HeartbeatMonitor

	pollInterval time.Duration
	docTimeout   time.Duration

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	pool         *ants.Pool
	lastErr      error
	lastDocument *catalog.Document
}

// NewManager constructs a manager over the default stage pipeline.
func NewManager(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Manager, error) {
	registry, err := DefaultStages(cfg, store, logger)
	if err != nil {
		return nil, err
	}
	return NewManagerWithOptions(cfg, store, logger, registry, notifications.NewService(cfg))
}

// NewManagerWithOptions constructs a manager with a caller-supplied stage
// registry and notification service. Tests use it to install fake handlers.
func NewManagerWithOptions(cfg *config.Config, store *catalog.Store, logger *slog.Logger, registry *stage.Registry, notifier notifications.Service) (*Manager, error) {
	lockManager := locks.NewManager(
		store,
		logger,
		time.Duration(cfg.Workflow.LockTimeout)*time.Second,
		time.Duration(cfg.Workflow.LockHeartbeatInterval)*time.Second,
	)
	publisher := alerts.NewPublisher(store, logger, cfg.Alerts)
	return &Manager{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		registry:   registry,
		checker:    idempotency.NewChecker(store, logger),
		locks:      lockManager,
		alerts:     publisher,
		dispatcher: alerts.NewDispatcher(store, notifier, logger, cfg.Alerts),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		docTimeout:   cfg.DocumentTimeout(),
	}, nil
}

// Registry exposes the stage registry backing this manager.
func (m *Manager) Registry() *stage.Registry {
	return m.registry
}

// Locks exposes the advisory lock manager for control-plane sweeps.
func (m *Manager) Locks() *locks.Manager {
	return m.locks
}

// Alerts exposes the alert publisher for control-plane use.
func (m *Manager) Alerts() *alerts.Publisher {
	return m.alerts
}
