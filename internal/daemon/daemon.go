package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tome/internal/api"
	"tome/internal/catalog"
	"tome/internal/config"
	"tome/internal/deps"
	"tome/internal/logging"
	"tome/internal/notifications"
	"tome/internal/preflight"
	"tome/internal/workflow"
)

// sentAlertRetention bounds how long delivered alerts survive a sweep.
const sentAlertRetention = 7 * 24 * time.Hour

// Daemon coordinates the background processing services and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	logStream  *logging.StreamHub
	logArchive *logging.EventArchive

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	CatalogPath  string
	LockFilePath string
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, "tomed.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// SetLogStream attaches the in-memory log event hub used by log tailing.
func (d *Daemon) SetLogStream(hub *logging.StreamHub) {
	d.logStream = hub
}

// LogStream returns the attached log event hub, if any.
func (d *Daemon) LogStream() *logging.StreamHub {
	if d == nil {
		return nil
	}
	return d.logStream
}

// SetLogArchive attaches the durable event archive backing historical reads.
func (d *Daemon) SetLogArchive(archive *logging.EventArchive) {
	d.logArchive = archive
}

// LogArchive returns the attached event archive, if any.
func (d *Daemon) LogArchive() *logging.EventArchive {
	if d == nil {
		return nil
	}
	return d.logArchive
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tome daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("tome daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the daemon will not restart"))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("tome daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit validates a source document and records it for processing. Duplicate
// submissions follow catalog state: queued documents are returned untouched,
// completed documents restage only when their content changed.
func (d *Daemon) Submit(ctx context.Context, sourcePath, title string) (api.SubmitDocumentResult, error) {
	if d.store == nil {
		return api.SubmitDocumentResult{}, errors.New("catalog store unavailable")
	}
	return api.SubmitDocument(ctx, api.SubmitDocumentRequest{
		Config:     d.cfg,
		Store:      d.store,
		Logger:     d.logger,
		SourcePath: sourcePath,
		Title:      title,
	})
}

// ListDocuments returns catalog entries filtered by optional statuses.
func (d *Daemon) ListDocuments(ctx context.Context, statuses []catalog.Status) ([]*catalog.Document, error) {
	if d.store == nil {
		return nil, errors.New("catalog store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetDocument returns a single catalog entry or nil when absent.
func (d *Daemon) GetDocument(ctx context.Context, id int64) (*catalog.Document, error) {
	if d.store == nil {
		return nil, errors.New("catalog store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// DescribeDocument returns the API view of a document with per-stage state
// and completion markers attached. Returns nil when the document is absent.
func (d *Daemon) DescribeDocument(ctx context.Context, id int64) (*api.Document, error) {
	if d.store == nil {
		return nil, errors.New("catalog store unavailable")
	}
	svc := api.NewDocumentService(d.store, d.StageOrder())
	return svc.Describe(ctx, id)
}

// StageOrder returns stage names in dependency order.
func (d *Daemon) StageOrder() []string {
	if d.workflow == nil {
		return nil
	}
	return d.workflow.Registry().Names()
}

// RetryFailed resets failed documents (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("catalog store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// RemoveDocuments deletes specific catalog entries and reports how many
// existed.
func (d *Daemon) RemoveDocuments(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("catalog store unavailable")
	}
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// ClearCatalog removes all documents.
func (d *Daemon) ClearCatalog(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("catalog store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed documents.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("catalog store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed documents.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("catalog store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// Sweep runs the catalog maintenance pass: reclaim stale heartbeats, expire
// advisory locks, remove orphaned staging workspaces, purge old sent alerts.
func (d *Daemon) Sweep(ctx context.Context) (api.SweepCatalogResult, error) {
	if d.store == nil {
		return api.SweepCatalogResult{}, errors.New("catalog store unavailable")
	}
	return api.SweepCatalog(ctx, api.SweepCatalogRequest{
		Config:         d.cfg,
		Store:          d.store,
		Logger:         d.logger,
		AlertRetention: sentAlertRetention,
	})
}

// Alerts lists alert outbox rows, newest first. An empty status lists all.
func (d *Daemon) Alerts(ctx context.Context, status string, limit int) ([]*catalog.Alert, error) {
	if d.store == nil {
		return nil, errors.New("catalog store unavailable")
	}
	trimmed := catalog.AlertStatus(strings.TrimSpace(status))
	switch trimmed {
	case "", catalog.AlertPending, catalog.AlertSent, catalog.AlertFailed:
	default:
		return nil, fmt.Errorf("unknown alert status %q", status)
	}
	return d.store.ListAlerts(ctx, trimmed, limit)
}

// Search runs a full-text query over indexed documents.
func (d *Daemon) Search(ctx context.Context, terms []string, limit int) ([]catalog.SearchHit, error) {
	if d.store == nil {
		return nil, errors.New("catalog store unavailable")
	}
	return d.store.Search(ctx, terms, limit)
}

// CatalogHealth returns aggregate catalog diagnostics.
func (d *Daemon) CatalogHealth(ctx context.Context) (catalog.HealthSummary, error) {
	if d.store == nil {
		return catalog.HealthSummary{}, errors.New("catalog store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (catalog.DatabaseHealth, error) {
	if d.store == nil {
		return catalog.DatabaseHealth{}, errors.New("catalog store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification posts a test alert through the configured webhook.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	notifier := notifications.NewService(d.cfg)
	if !notifier.Enabled() {
		return false, "alert webhook not configured", nil
	}
	if err := notifier.Test(ctx); err != nil {
		return false, "failed to send test alert", err
	}
	return true, "test alert sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		CatalogPath:  d.cfg.CatalogPath(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}
