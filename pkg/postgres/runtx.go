package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// runTx wraps one pgx transaction holding the advisory lock for its window.
// The lock is transaction-scoped, so Commit and Rollback both release it.
type runTx struct {
	tx     pgx.Tx
	window model.DateRange
}

func (t *runTx) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	return loadSnapshot(ctx, t.tx, t.window)
}

func (t *runTx) CreateRun(ctx context.Context, run model.Run) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO scheduling_run (id, window_start, window_end, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.Window.Start, run.Window.End, string(run.Status), run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.ID, err)
	}

	return nil
}

func (t *runTx) StageWave(ctx context.Context, runID string, wave int, placed []model.Assignment) error {
	for _, a := range placed {
		_, err := t.tx.Exec(ctx, `
			INSERT INTO pending_assignment (run_id, wave, event_ref, employee_id, start_at, duration_minutes)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (run_id, event_ref) DO UPDATE SET
				wave = EXCLUDED.wave,
				employee_id = EXCLUDED.employee_id,
				start_at = EXCLUDED.start_at,
				duration_minutes = EXCLUDED.duration_minutes
		`, runID, wave, a.EventRef, a.EmployeeID, a.StartAt, int(a.Duration/time.Minute))
		if err != nil {
			return fmt.Errorf("failed to stage assignment for %s in wave %d: %w", a.EventRef, wave, err)
		}
	}

	return nil
}

func (t *runTx) AppendRunLog(ctx context.Context, runID string, entries []model.RunLogEntry) error {
	for _, entry := range entries {
		var startAt *time.Time
		if !entry.StartAt.IsZero() {
			at := entry.StartAt
			startAt = &at
		}
		_, err := t.tx.Exec(ctx, `
			INSERT INTO run_log (run_id, seq, action, event_ref, employee_id, start_at, detail)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, runID, entry.Seq, string(entry.Action), entry.EventRef, entry.EmployeeID, startAt, entry.Detail)
		if err != nil {
			return fmt.Errorf("failed to append run log entry %d: %w", entry.Seq, err)
		}
	}

	return nil
}

func (t *runTx) DeleteAssignments(ctx context.Context, eventRefs []string) error {
	if len(eventRefs) == 0 {
		return nil
	}

	_, err := t.tx.Exec(ctx, `
		DELETE FROM assignment WHERE event_ref = ANY($1)
	`, eventRefs)
	if err != nil {
		return fmt.Errorf("failed to delete displaced assignments: %w", err)
	}

	return nil
}

// PromotePending moves a run's staged rows into the committed assignment
// table, replacing any existing assignment for the same event, then clears
// the staging rows.
func (t *runTx) PromotePending(ctx context.Context, runID string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO assignment (event_ref, employee_id, start_at, duration_minutes, sync_state)
		SELECT event_ref, employee_id, start_at, duration_minutes, 'pending'
		FROM pending_assignment
		WHERE run_id = $1
		ON CONFLICT (event_ref) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			start_at = EXCLUDED.start_at,
			duration_minutes = EXCLUDED.duration_minutes,
			sync_state = EXCLUDED.sync_state
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to promote pending assignments: %w", err)
	}

	_, err = t.tx.Exec(ctx, `
		DELETE FROM pending_assignment WHERE run_id = $1
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to clear pending assignments: %w", err)
	}

	return nil
}

func (t *runTx) UpdateEventConditions(ctx context.Context, condition model.EventCondition, eventRefs []string) error {
	if len(eventRefs) == 0 {
		return nil
	}

	_, err := t.tx.Exec(ctx, `
		UPDATE event SET condition = $1 WHERE reference = ANY($2)
	`, string(condition), eventRefs)
	if err != nil {
		return fmt.Errorf("failed to update event conditions: %w", err)
	}

	return nil
}

func (t *runTx) CompleteRun(ctx context.Context, run model.Run) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE scheduling_run
		SET status = $2, finished_at = $3, placed_count = $4, bumped_count = $5,
		    rejected_count = $6, error = $7
		WHERE id = $1
	`, run.ID, string(run.Status), run.FinishedAt, run.PlacedCount, run.BumpedCount,
		run.RejectedCount, run.Error)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", run.ID, err)
	}

	return nil
}

func (t *runTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run transaction: %w", err)
	}

	return nil
}

// Rollback is safe to call after Commit so callers can defer it.
func (t *runTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back run transaction: %w", err)
	}

	return nil
}
