package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/constraint"
	"github.com/mfleming/demoroster/pkg/core/engine"
	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/db"
)

// RunOptions tunes one scheduling run.
type RunOptions struct {
	// Params carries the engine policy values. Callers normally pass
	// engine.DefaultParams() or the config-derived values from
	// ScheduleParams.
	Params engine.Params

	// DryRun executes the full run and reports the outcome without
	// committing anything.
	DryRun bool

	// Now and NewID are overridable so tests can pin the clock and the run
	// ID. Nil values fall back to the real clock and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

// SubmissionFailure records one assignment the calendar refused.
type SubmissionFailure struct {
	EventRef string
	Reason   string
}

// RunResult reports everything one scheduling run decided.
type RunResult struct {
	RunID  string
	Window model.DateRange
	DryRun bool

	Placed   []model.Assignment
	Bumped   []engine.BumpRecord
	Rejected []engine.Rejection

	// SubmissionFailures lists assignments that could not be pushed to the
	// calendar. Submission runs after commit, so these never fail the run.
	SubmissionFailures []SubmissionFailure
}

// RunSchedulerStore defines the database operations a scheduling run needs
type RunSchedulerStore interface {
	BeginRun(ctx context.Context, window model.DateRange) (db.RunTx, error)
	RecordFailedRun(ctx context.Context, run model.Run) error
	UpdateAssignmentSync(ctx context.Context, eventRef string, state model.SyncState) error
}

// txWaveSink stages each flushed engine wave on the run transaction.
type txWaveSink struct {
	ctx   context.Context
	tx    db.RunTx
	runID string
}

func (s *txWaveSink) FlushWave(wave int, placed []model.Assignment) error {
	return s.tx.StageWave(s.ctx, s.runID, wave, placed)
}

// RunScheduler executes one scheduling run over a window: it locks the
// window, loads a snapshot, runs the placement waves, and commits the
// resulting assignments, event conditions, and decision log atomically.
// With DryRun set the whole transaction is rolled back and only the report
// is returned.
func RunScheduler(
	ctx context.Context,
	store RunSchedulerStore,
	submitter AssignmentSubmitter,
	logger *zap.Logger,
	window model.DateRange,
	opts RunOptions,
) (*RunResult, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	newID := uuid.NewString
	if opts.NewID != nil {
		newID = opts.NewID
	}

	runID := newID()
	logger.Debug("Starting scheduling run",
		zap.String("run_id", runID),
		zap.String("window", window.Key()),
		zap.Bool("dry_run", opts.DryRun))

	// Step 1: Open the run transaction, taking the window lock
	tx, err := store.BeginRun(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to begin run %s: %w", runID, err)
	}

	run := model.Run{
		ID:        runID,
		Window:    window,
		Status:    model.RunRunning,
		StartedAt: now(),
	}

	// fail rolls the transaction back and records the failure in a separate
	// write so it outlives the rollback.
	fail := func(stage string, cause error) (*RunResult, error) {
		_ = tx.Rollback(ctx)
		finished := now()
		run.Status = model.RunFailed
		run.FinishedAt = &finished
		run.Error = cause.Error()
		if recErr := store.RecordFailedRun(ctx, run); recErr != nil {
			logger.Warn("Failed to record failed run",
				zap.String("run_id", runID),
				zap.Error(recErr))
		}
		return nil, fmt.Errorf("run %s failed to %s: %w", runID, stage, cause)
	}

	if err := tx.CreateRun(ctx, run); err != nil {
		return fail("create run record", err)
	}

	// Step 2: Load the window snapshot inside the transaction
	logger.Debug("Loading snapshot", zap.String("run_id", runID))
	snap, err := tx.Snapshot(ctx)
	if err != nil {
		return fail("load snapshot", err)
	}
	logger.Debug("Snapshot loaded",
		zap.Int("employees", len(snap.Employees)),
		zap.Int("events", len(snap.Events)),
		zap.Int("assignments", len(snap.Assignments)))

	// Step 3: Run the placement waves, staging each flushed wave
	rctx := constraint.NewRunContext(runID)
	eng := engine.New(snap, opts.Params, run.StartedAt, logger)
	outcome, err := eng.Run(rctx, &txWaveSink{ctx: ctx, tx: tx, runID: runID})
	if err != nil {
		return fail("execute placement waves", err)
	}

	// Step 4: Persist the decision log
	if err := tx.AppendRunLog(ctx, runID, outcome.Log); err != nil {
		return fail("append run log", err)
	}

	result := &RunResult{
		RunID:    runID,
		Window:   window,
		DryRun:   opts.DryRun,
		Placed:   outcome.Placed,
		Bumped:   outcome.Bumped,
		Rejected: outcome.Rejected,
	}

	if opts.DryRun {
		_ = tx.Rollback(ctx)
		logger.Info("Dry run complete, nothing committed",
			zap.String("run_id", runID),
			zap.Int("placed", len(outcome.Placed)),
			zap.Int("bumped", len(outcome.Bumped)),
			zap.Int("rejected", len(outcome.Rejected)))
		return result, nil
	}

	// Step 5: Finalize - drop displaced rows, promote pending rows, update
	// event conditions, close the run record
	if refs := rctx.DisplacedRefs(); len(refs) > 0 {
		logger.Debug("Deleting displaced assignments", zap.Strings("event_refs", refs))
		if err := tx.DeleteAssignments(ctx, refs); err != nil {
			return fail("delete displaced assignments", err)
		}
	}
	if err := tx.PromotePending(ctx, runID); err != nil {
		return fail("promote pending assignments", err)
	}

	placedRefs := make([]string, 0, len(outcome.Placed))
	for _, a := range outcome.Placed {
		placedRefs = append(placedRefs, a.EventRef)
	}
	if len(placedRefs) > 0 {
		if err := tx.UpdateEventConditions(ctx, model.ConditionScheduled, placedRefs); err != nil {
			return fail("mark events scheduled", err)
		}
	}
	rejectedRefs := make([]string, 0, len(outcome.Rejected))
	for _, rejection := range outcome.Rejected {
		rejectedRefs = append(rejectedRefs, rejection.EventRef)
	}
	if len(rejectedRefs) > 0 {
		if err := tx.UpdateEventConditions(ctx, model.ConditionRejected, rejectedRefs); err != nil {
			return fail("mark events rejected", err)
		}
	}

	finished := now()
	run.Status = model.RunCompleted
	run.FinishedAt = &finished
	run.PlacedCount = len(outcome.Placed)
	run.BumpedCount = len(outcome.Bumped)
	run.RejectedCount = len(outcome.Rejected)
	if err := tx.CompleteRun(ctx, run); err != nil {
		return fail("complete run record", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fail("commit", err)
	}

	logger.Info("Scheduling run committed",
		zap.String("run_id", runID),
		zap.Int("placed", run.PlacedCount),
		zap.Int("bumped", run.BumpedCount),
		zap.Int("rejected", run.RejectedCount))

	// Step 6: Submit committed assignments to the calendar
	result.SubmissionFailures = submitPlacements(ctx, store, submitter, logger, snap, outcome.Placed)

	return result, nil
}

// submitPlacements pushes committed assignments to the calendar and records
// each outcome on the assignment row. A nil submitter leaves every row in
// sync state "pending".
func submitPlacements(
	ctx context.Context,
	store RunSchedulerStore,
	submitter AssignmentSubmitter,
	logger *zap.Logger,
	snap *model.Snapshot,
	placed []model.Assignment,
) []SubmissionFailure {
	if submitter == nil {
		logger.Debug("No submitter configured, skipping calendar submission")
		return nil
	}

	var failures []SubmissionFailure
	for _, a := range placed {
		event, ok := snap.Event(a.EventRef)
		if !ok {
			continue
		}
		state := model.SyncSubmitted
		if err := submitter.Submit(ctx, event, a); err != nil {
			logger.Warn("Calendar submission failed",
				zap.String("event_ref", a.EventRef),
				zap.Error(err))
			state = model.SyncFailed
			failures = append(failures, SubmissionFailure{EventRef: a.EventRef, Reason: err.Error()})
		}
		if err := store.UpdateAssignmentSync(ctx, a.EventRef, state); err != nil {
			logger.Warn("Failed to record submission state",
				zap.String("event_ref", a.EventRef),
				zap.Error(err))
		}
	}
	return failures
}
