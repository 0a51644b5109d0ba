package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tome/internal/catalog"
	"tome/internal/logging"
	"tome/internal/observability"
	"tome/internal/services"
	"tome/internal/stageexec"
)

// runDocument advances one leased document as far as the stage graph allows.
// Each pass dispatches every ready stage in parallel, then re-reads the
// catalog: stages write document facts column by column, so the next pass
// must observe them through a fresh row. The loop ends when the document
// completes, fails, parks for a retry window, or shutdown interrupts it
// (Stop's ReleaseInFlight returns interrupted documents to the queue).
func (m *Manager) runDocument(ctx context.Context, doc *catalog.Document) {
	runStart := time.Now().UTC()

	docCtx := services.WithDocumentID(ctx, doc.ID)
	if doc.RequestID != "" {
		docCtx = services.WithRequestID(docCtx, doc.RequestID)
	}
	logger := logging.WithContext(docCtx, m.logger)

	hbCtx, hbCancel := context.WithCancel(docCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, doc.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	if _, err := m.checker.Refresh(docCtx, doc); err != nil {
		m.releaseForRetry(docCtx, logger, doc, fmt.Errorf("refresh content hash: %w", err))
		return
	}

	logger.Info("document processing started",
		logging.String(logging.FieldEventType, "document_start"),
		logging.String("title", doc.Title),
		logging.String("source_file", strings.TrimSpace(doc.SourcePath)),
	)

	for {
		select {
		case <-docCtx.Done():
			return
		default:
		}

		fresh, err := m.store.GetByID(docCtx, doc.ID)
		if err != nil {
			m.releaseForRetry(docCtx, logger, doc, fmt.Errorf("reload document: %w", err))
			return
		}
		if fresh == nil {
			logger.Warn("document disappeared while processing")
			return
		}
		doc = fresh

		if m.documentExpired(doc) {
			m.expireDocument(docCtx, logger, doc, runStart)
			return
		}

		states, err := m.store.StageStates(docCtx, doc.ID)
		if err != nil {
			m.releaseForRetry(docCtx, logger, doc, fmt.Errorf("load stage states: %w", err))
			return
		}

		if m.registry.AllSatisfied(states) {
			m.completeDocument(docCtx, logger, doc, runStart)
			return
		}

		ready := m.registry.ReadyStages(time.Now().UTC(), states)
		if len(ready) == 0 {
			if m.registry.AllTerminal(states) {
				m.failDocument(docCtx, logger, doc, states, runStart)
				return
			}
			m.parkUntilDue(docCtx, logger, doc, states)
			return
		}

		outcomes, err := m.dispatchReady(docCtx, doc, ready, states)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.releaseForRetry(docCtx, logger, doc, err)
			return
		}
		m.blockDependents(docCtx, logger, doc, outcomes)
	}
}

// dispatchReady runs every ready stage concurrently under the shared
// envelope. Each stage receives its own copy of the document row.
func (m *Manager) dispatchReady(ctx context.Context, doc *catalog.Document, ready []string, states map[string]*catalog.StageState) ([]stageexec.Outcome, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	outcomes := make([]stageexec.Outcome, len(ready))

	for i, name := range ready {
		def, ok := m.registry.Definition(name)
		if !ok {
			continue
		}
		prior := 0
		if state := states[name]; state != nil {
			prior = state.Attempts
		}
		docCopy := *doc
		group.Go(func() error {
			outcome, err := stageexec.Run(groupCtx, stageexec.Options{
				Logger:        m.logger,
				Store:         m.store,
				Checker:       m.checker,
				Locks:         m.locks,
				Alerts:        m.alerts,
				Handler:       m.registry.Handler(def.Name),
				Definition:    def,
				Document:      &docCopy,
				PriorAttempts: prior,
			})
			outcomes[i] = outcome
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

// blockDependents settles the graph after terminal stage failures. A
// permanent failure blocks only the failed stage's transitive dependents;
// independent branches keep running. A fatal failure aborts the whole
// pipeline instead.
func (m *Manager) blockDependents(ctx context.Context, logger *slog.Logger, doc *catalog.Document, outcomes []stageexec.Outcome) {
	for _, outcome := range outcomes {
		switch outcome.Result {
		case catalog.ResultFatal:
			m.abortPipeline(ctx, logger, doc, outcome.Stage)
		case catalog.ResultPermanent:
			dependents := m.registry.Dependents(outcome.Stage)
			if len(dependents) == 0 {
				continue
			}
			reason := fmt.Sprintf("prerequisite stage %s failed", outcome.Stage)
			if err := m.store.MarkStagesBlocked(ctx, doc.ID, dependents, reason); err != nil {
				m.setLastError(err)
				logger.Error("failed to block dependent stages",
					logging.Error(err),
					logging.String(logging.FieldStage, outcome.Stage),
				)
				continue
			}
			logger.Info("dependent stages blocked",
				logging.String(logging.FieldStage, outcome.Stage),
				logging.Any("blocked", dependents),
			)
		}
	}
}

// abortPipeline cancels every stage of the document that has not reached a
// terminal outcome, parked retries included. A fatal fault means the runtime
// wiring cannot be trusted, so independent branches stop with the failed
// stage instead of executing against it.
func (m *Manager) abortPipeline(ctx context.Context, logger *slog.Logger, doc *catalog.Document, failed string) {
	states, err := m.store.StageStates(ctx, doc.ID)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to load stage states for pipeline abort",
			logging.Error(err),
			logging.String(logging.FieldStage, failed),
		)
		return
	}
	var cancelled []string
	for _, name := range m.registry.Names() {
		if name == failed {
			continue
		}
		if state := states[name]; state != nil && state.Result.Terminal() {
			continue
		}
		cancelled = append(cancelled, name)
	}
	if len(cancelled) == 0 {
		return
	}
	reason := fmt.Sprintf("pipeline aborted: stage %s failed fatally", failed)
	if err := m.store.MarkStagesBlocked(ctx, doc.ID, cancelled, reason); err != nil {
		m.setLastError(err)
		logger.Error("failed to cancel stages after fatal failure",
			logging.Error(err),
			logging.String(logging.FieldStage, failed),
		)
		return
	}
	logger.Info("pipeline aborted after fatal stage failure",
		logging.String(logging.FieldStage, failed),
		logging.Any("cancelled", cancelled),
	)
}

func (m *Manager) completeDocument(ctx context.Context, logger *slog.Logger, doc *catalog.Document, runStart time.Time) {
	now := time.Now().UTC()
	doc.Status = catalog.StatusCompleted
	doc.CompletedAt = &now
	doc.ErrorMessage = ""
	doc.LastHeartbeat = nil
	doc.NextAttemptAt = nil
	if err := m.store.Update(ctx, doc); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist document completion", logging.Error(err))
		return
	}

	duration := now.Sub(runStart)
	if doc.StartedAt != nil {
		duration = now.Sub(*doc.StartedAt)
	}
	logger.Info("document processing completed",
		logging.String(logging.FieldEventType, "document_complete"),
		logging.String("title", doc.Title),
		logging.String("doc_class", doc.DocClass),
		logging.Int("page_count", doc.PageCount),
		logging.Duration("document_duration", duration),
	)
	observability.RecordDocumentOutcome(string(catalog.StatusCompleted), duration)

	correlation := services.CorrelationID(ctx)
	m.alerts.DocumentCompleted(ctx, doc, correlation)
	if doc.NeedsReview {
		m.alerts.NeedsReview(ctx, doc, correlation, doc.ReviewReason)
	}
	m.setLastDocument(doc)
}

func (m *Manager) failDocument(ctx context.Context, logger *slog.Logger, doc *catalog.Document, states map[string]*catalog.StageState, runStart time.Time) {
	reason := failureReason(m.registry.Names(), states)
	doc.SetFailed(reason)
	if err := m.store.Update(ctx, doc); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist document failure", logging.Error(err))
		return
	}

	now := time.Now().UTC()
	duration := now.Sub(runStart)
	if doc.StartedAt != nil {
		duration = now.Sub(*doc.StartedAt)
	}
	logger.Error("document processing failed",
		logging.Alert("document_failure"),
		logging.String(logging.FieldEventType, "document_failure"),
		logging.String("title", doc.Title),
		logging.String("failure_reason", reason),
		logging.Duration("document_duration", duration),
		logging.String(logging.FieldErrorHint, "inspect with tome show, then tome retry after fixing the cause"),
	)
	observability.RecordDocumentOutcome(string(catalog.StatusFailed), duration)

	m.alerts.DocumentFailed(ctx, doc, services.CorrelationID(ctx), reason)
	m.setLastDocument(doc)
}

// documentExpired reports whether the document has exceeded the wall-clock
// processing budget, measured from its first lease. A zero budget disables
// the bound.
func (m *Manager) documentExpired(doc *catalog.Document) bool {
	if m.docTimeout <= 0 || doc.StartedAt == nil {
		return false
	}
	return time.Now().UTC().Sub(*doc.StartedAt) >= m.docTimeout
}

// expireDocument fails a document that ran past the processing budget. Stage
// states are left untouched so an operator retry resumes where it stopped.
func (m *Manager) expireDocument(ctx context.Context, logger *slog.Logger, doc *catalog.Document, runStart time.Time) {
	reason := fmt.Sprintf("document processing exceeded the %s budget", m.docTimeout)
	doc.SetFailed(reason)
	if err := m.store.Update(ctx, doc); err != nil {
		m.setLastError(err)
		logger.Error("failed to persist document timeout", logging.Error(err))
		return
	}

	now := time.Now().UTC()
	duration := now.Sub(runStart)
	if doc.StartedAt != nil {
		duration = now.Sub(*doc.StartedAt)
	}
	logger.Error("document processing timed out",
		logging.Alert("document_failure"),
		logging.String(logging.FieldEventType, "document_timeout"),
		logging.String("title", doc.Title),
		logging.Duration("document_duration", duration),
		logging.String(logging.FieldErrorHint, "raise workflow.document_timeout or retry after fixing the slow stage"),
	)
	observability.RecordDocumentOutcome(string(catalog.StatusFailed), duration)

	m.alerts.DocumentFailed(ctx, doc, services.CorrelationID(ctx), reason)
	m.setLastDocument(doc)
}

// parkUntilDue returns the document to the pending queue until its earliest
// scheduled stage retry. A nil wake-up time leaves it immediately leasable,
// which covers states that only a lock sweep can advance.
func (m *Manager) parkUntilDue(ctx context.Context, logger *slog.Logger, doc *catalog.Document, states map[string]*catalog.StageState) {
	var earliest *time.Time
	for _, state := range states {
		if state == nil || state.Result.Terminal() || state.NextAttemptAt == nil {
			continue
		}
		if earliest == nil || state.NextAttemptAt.Before(*earliest) {
			next := *state.NextAttemptAt
			earliest = &next
		}
	}
	if err := m.store.Park(ctx, doc.ID, earliest); err != nil {
		m.setLastError(err)
		logger.Error("failed to park document", logging.Error(err))
		return
	}
	if earliest != nil {
		logger.Debug("document parked until next stage retry",
			logging.String("next_attempt_at", earliest.Format(time.RFC3339)),
		)
	} else {
		logger.Debug("document parked")
	}
	m.setLastDocument(doc)
}

// releaseForRetry handles faults of the envelope itself, not of a stage:
// catalog reads, retry scheduling, lock bookkeeping. The document goes back
// to pending after the error retry interval.
func (m *Manager) releaseForRetry(ctx context.Context, logger *slog.Logger, doc *catalog.Document, cause error) {
	m.setLastError(cause)
	logger.Error("document processing interrupted",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "document_release"),
		logging.String(logging.FieldErrorHint, "check catalog database access"),
	)
	next := time.Now().UTC().Add(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second)
	if err := m.store.Park(context.WithoutCancel(ctx), doc.ID, &next); err != nil {
		logger.Error("failed to return document to queue", logging.Error(err))
	}
}

func failureReason(order []string, states map[string]*catalog.StageState) string {
	for _, name := range order {
		state := states[name]
		if state == nil {
			continue
		}
		if state.Result == catalog.ResultPermanent || state.Result == catalog.ResultFatal {
			message := strings.TrimSpace(state.LastError)
			if message == "" {
				message = string(state.Result)
			}
			return fmt.Sprintf("stage %s failed: %s", name, message)
		}
	}
	return "pipeline blocked before completion"
}
