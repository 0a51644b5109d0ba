// Package stageexec is the execution envelope every stage runs inside. It
// owns the cross-cutting sequence around one attempt: idempotency marker
// check, advisory lock, heartbeat, timeout, panic recovery, failure
// classification, retry scheduling, persistence, and alerting. Stage handlers
// never see any of it.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tome/internal/alerts"
	"tome/internal/catalog"
	"tome/internal/idempotency"
	"tome/internal/locks"
	"tome/internal/logging"
	"tome/internal/observability"
	"tome/internal/services"
	"tome/internal/stage"
)

// lockRetryDelay is how soon a contended attempt becomes due again. Lock
// contention is not a fault, so it never consumes the attempt budget.
const lockRetryDelay = 5 * time.Second

// Options wires the collaborators one envelope pass needs.
type Options struct {
	Logger     *slog.Logger
	Store      *catalog.Store
	Checker    *idempotency.Checker
	Locks      *locks.Manager
	Alerts     *alerts.Publisher
	Handler    stage.Handler
	Definition stage.Definition
	Document   *catalog.Document
	// PriorAttempts is the number of executions already recorded for this
	// stage; the running attempt is PriorAttempts+1.
	PriorAttempts int
}

// Outcome reports how the pass ended. Err carries the classified stage error
// for terminal failures and exhausted retries; scheduling errors surface
// through Run's error return instead.
type Outcome struct {
	Stage     string
	Result    catalog.StageResult
	Attempt   int
	Contended bool
	Err       error
}

// Run executes one stage attempt under the full envelope. The returned error
// reports envelope faults (persistence, lock bookkeeping); stage faults are
// classified and recorded in the outcome, not returned.
func Run(ctx context.Context, opts Options) (Outcome, error) {
	def := opts.Definition
	doc := opts.Document
	outcome := Outcome{Stage: def.Name}
	if opts.Handler == nil {
		return outcome, fmt.Errorf("stage handler unavailable: %s", def.Name)
	}
	if opts.Store == nil || doc == nil {
		return outcome, errors.New("store and document are required")
	}

	attempt := opts.PriorAttempts + 1
	outcome.Attempt = attempt

	stageCtx := services.WithStage(ctx, def.Name)
	stageCtx = services.WithDocumentID(stageCtx, doc.ID)
	stageCtx = services.WithAttempt(stageCtx, attempt)
	if doc.RequestID != "" {
		stageCtx = services.WithRequestID(stageCtx, doc.RequestID)
	}
	logger := logging.WithContext(stageCtx, opts.Logger)

	if !opts.Handler.Enabled() {
		if err := opts.Store.RecordStageSkipped(stageCtx, doc.ID, def.Name, "stage disabled"); err != nil {
			return outcome, fmt.Errorf("persist disabled skip: %w", err)
		}
		logger.Info("stage skipped",
			logging.String(logging.FieldEventType, "stage_skipped"),
			logging.String("reason", "stage disabled"),
		)
		observability.RecordStageExecution(def.Name, string(catalog.ResultSkipped), 0)
		outcome.Result = catalog.ResultSkipped
		return outcome, nil
	}

	if def.Idempotent && opts.Checker != nil && doc.ContentHash != "" {
		marker, err := opts.Checker.CompletedMarker(stageCtx, doc, def.Name)
		if err != nil {
			return outcome, fmt.Errorf("marker lookup: %w", err)
		}
		if marker != nil {
			if err := opts.Store.RecordStageSkipped(stageCtx, doc.ID, def.Name, "already complete for current content"); err != nil {
				return outcome, fmt.Errorf("persist marker skip: %w", err)
			}
			logger.Info("stage skipped",
				logging.String(logging.FieldEventType, "stage_skipped"),
				logging.String("reason", "already complete for current content"),
				logging.String("content_hash", marker.ContentHash),
			)
			observability.RecordStageExecution(def.Name, string(catalog.ResultSkipped), 0)
			outcome.Result = catalog.ResultSkipped
			return outcome, nil
		}
	}

	if opts.Locks != nil {
		acquired, err := opts.Locks.TryAcquire(stageCtx, doc.ID, def.Name)
		if err != nil {
			return outcome, fmt.Errorf("acquire stage lock: %w", err)
		}
		if !acquired {
			// Fail fast without touching the attempt budget; the stage
			// becomes due again shortly.
			next := time.Now().UTC().Add(lockRetryDelay)
			if err := opts.Store.ScheduleStageRetry(stageCtx, doc.ID, def.Name, opts.PriorAttempts, next, "advisory lock held by another worker"); err != nil {
				return outcome, fmt.Errorf("persist lock contention: %w", err)
			}
			logger.Debug("stage lock contended",
				logging.String(logging.FieldEventType, "stage_lock_held"),
			)
			observability.RecordStageExecution(def.Name, "lock_held", 0)
			outcome.Result = catalog.ResultRetryable
			outcome.Contended = true
			return outcome, nil
		}
		defer func() {
			if err := opts.Locks.Release(context.WithoutCancel(stageCtx), doc.ID, def.Name); err != nil {
				logger.Warn("stage lock release failed", logging.Error(err))
			}
		}()
	}

	if err := opts.Store.MarkStageRunning(stageCtx, doc.ID, def.Name, attempt); err != nil {
		return outcome, fmt.Errorf("persist running transition: %w", err)
	}

	start := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", strings.TrimSpace(doc.SourcePath)),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", def.MaxAttempts),
	)

	execErr := invoke(stageCtx, opts, logger)
	duration := time.Since(start)

	if execErr != nil && errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
		// Shutdown, not a stage fault. Reopen the stage so a restart resumes
		// it immediately; the released lock frees it for other owners.
		shutdownCtx := context.WithoutCancel(stageCtx)
		if _, err := opts.Store.ReopenRunningStage(shutdownCtx, doc.ID, def.Name); err != nil {
			logger.Warn("could not reopen stage during shutdown", logging.Error(err))
		}
		logger.Debug("stage interrupted by shutdown")
		outcome.Result = catalog.ResultPending
		outcome.Err = execErr
		return outcome, nil
	}

	if execErr != nil {
		return finishFailure(stageCtx, logger, opts, outcome, attempt, duration, execErr)
	}

	if def.Idempotent {
		artifactPath := strings.TrimSpace(doc.StagedPath)
		if err := opts.Store.RecordStageSuccess(stageCtx, doc.ID, def.Name, doc.ContentHash, artifactPath, attempt); err != nil {
			return outcome, fmt.Errorf("persist stage success: %w", err)
		}
	} else if err := opts.Store.RecordStageSuccessNoMarker(stageCtx, doc.ID, def.Name, attempt); err != nil {
		return outcome, fmt.Errorf("persist stage success: %w", err)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", duration),
	)
	observability.RecordStageExecution(def.Name, string(catalog.ResultSuccess), duration)
	outcome.Result = catalog.ResultSuccess
	return outcome, nil
}

// invoke runs Prepare and Execute under the stage timeout with the lock
// heartbeat running and panics converted to invariant faults.
func invoke(ctx context.Context, opts Options, logger *slog.Logger) (err error) {
	def := opts.Definition
	doc := opts.Document

	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrInvariant, def.Name, "execute",
				fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	execCtx := ctx
	var cancel context.CancelFunc
	if def.Timeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, def.Timeout)
		defer cancel()
	}

	var hbWG sync.WaitGroup
	if opts.Locks != nil {
		hbCtx, hbCancel := context.WithCancel(execCtx)
		hbWG.Add(1)
		go opts.Locks.Keep(hbCtx, &hbWG, doc.ID, def.Name)
		defer func() {
			hbCancel()
			hbWG.Wait()
		}()
	}

	if err := opts.Handler.Prepare(execCtx, doc); err != nil {
		return err
	}

	execErr := opts.Handler.Execute(execCtx, doc)
	if execErr != nil && errors.Is(execErr, context.DeadlineExceeded) && ctx.Err() == nil {
		execErr = services.Wrap(services.ErrTimeout, def.Name, "execute",
			fmt.Sprintf("Stage timed out after %s", def.Timeout), execErr)
	}
	return execErr
}

// finishFailure classifies the stage fault and records retry, exhaustion, or
// terminal failure. Alert publishing never blocks and never fails the
// envelope.
func finishFailure(ctx context.Context, logger *slog.Logger, opts Options, outcome Outcome, attempt int, duration time.Duration, stageErr error) (Outcome, error) {
	def := opts.Definition
	doc := opts.Document
	class := services.Classify(stageErr)
	result := services.FailureResult(stageErr)

	budget := def.MaxAttempts
	if budget <= 0 {
		budget = 1
	}
	if result == catalog.ResultRetryable && attempt >= budget {
		// Exhausted retries escalate to a terminal failure.
		result = catalog.ResultPermanent
	}

	message := strings.TrimSpace(stageErr.Error())

	if result == catalog.ResultRetryable {
		next := time.Now().UTC().Add(retryBackoff(def.RetryBackoff, attempt))
		if err := opts.Store.ScheduleStageRetry(ctx, doc.ID, def.Name, attempt, next, message); err != nil {
			return outcome, fmt.Errorf("schedule stage retry: %w", err)
		}
		logger.Warn("stage failed; retry scheduled",
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.String("error_class", string(class)),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", budget),
			logging.String("next_attempt_at", next.Format(time.RFC3339)),
			logging.Error(stageErr),
		)
		observability.RecordStageExecution(def.Name, string(catalog.ResultRetryable), duration)
		outcome.Result = catalog.ResultRetryable
		outcome.Err = stageErr
		return outcome, nil
	}

	if err := opts.Store.RecordStageFailure(ctx, doc.ID, def.Name, result, attempt, message); err != nil {
		return outcome, fmt.Errorf("record stage failure: %w", err)
	}
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Alert("stage_failure"),
		logging.String("error_class", string(class)),
		logging.String("result", string(result)),
		logging.Int("attempt", attempt),
		logging.Error(stageErr),
	)
	observability.RecordStageExecution(def.Name, string(result), duration)

	if opts.Alerts != nil {
		opts.Alerts.StageFailed(ctx, doc, def.Name, services.CorrelationID(ctx), stageErr)
	}

	outcome.Result = result
	outcome.Err = stageErr
	return outcome, nil
}

// retryBackoff doubles the base per prior attempt, capped at one hour.
func retryBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 30 * time.Second
	}
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= time.Hour {
			return time.Hour
		}
	}
	return backoff
}
