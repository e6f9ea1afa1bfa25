package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/db"
)

// GetRun fetches one scheduling run by ID. Returns db.ErrRunNotFound when
// no such run exists.
func (d *DB) GetRun(ctx context.Context, runID string) (model.Run, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, window_start, window_end, status, started_at, finished_at,
		       placed_count, bumped_count, rejected_count, error
		FROM scheduling_run
		WHERE id = $1
	`, runID)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Run{}, fmt.Errorf("run %s: %w", runID, db.ErrRunNotFound)
	}
	if err != nil {
		return model.Run{}, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	return run, nil
}

// ListRuns returns runs newest first. A limit of zero or below returns all
// runs.
func (d *DB) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	query := `
		SELECT id, window_start, window_end, status, started_at, finished_at,
		       placed_count, bumped_count, rejected_count, error
		FROM scheduling_run
		ORDER BY started_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(row rowScanner) (model.Run, error) {
	var run model.Run
	var windowStart, windowEnd time.Time
	var status string
	if err := row.Scan(
		&run.ID, &windowStart, &windowEnd, &status, &run.StartedAt, &run.FinishedAt,
		&run.PlacedCount, &run.BumpedCount, &run.RejectedCount, &run.Error,
	); err != nil {
		return model.Run{}, err
	}
	run.Window = model.NewDateRange(windowStart, windowEnd)
	run.Status = model.RunStatus(status)
	run.StartedAt = run.StartedAt.UTC()
	if run.FinishedAt != nil {
		finished := run.FinishedAt.UTC()
		run.FinishedAt = &finished
	}
	return run, nil
}

// GetRunLog returns the decision log of a run in sequence order.
func (d *DB) GetRunLog(ctx context.Context, runID string) ([]model.RunLogEntry, error) {
	if _, err := d.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, `
		SELECT seq, action, event_ref, employee_id, start_at, detail
		FROM run_log
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run log: %w", err)
	}
	defer rows.Close()

	var entries []model.RunLogEntry
	for rows.Next() {
		var entry model.RunLogEntry
		var action string
		var startAt *time.Time
		if err := rows.Scan(&entry.Seq, &action, &entry.EventRef, &entry.EmployeeID, &startAt, &entry.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan run log entry: %w", err)
		}
		entry.Action = model.RunAction(action)
		if startAt != nil {
			entry.StartAt = startAt.UTC()
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run log: %w", err)
	}

	return entries, nil
}

// RecordFailedRun writes a terminal run row outside the run transaction so
// the failure stays visible after rollback.
func (d *DB) RecordFailedRun(ctx context.Context, run model.Run) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO scheduling_run (id, window_start, window_end, status, started_at,
		                            finished_at, placed_count, bumped_count, rejected_count, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			placed_count = EXCLUDED.placed_count,
			bumped_count = EXCLUDED.bumped_count,
			rejected_count = EXCLUDED.rejected_count,
			error = EXCLUDED.error
	`, run.ID, run.Window.Start, run.Window.End, string(run.Status), run.StartedAt,
		run.FinishedAt, run.PlacedCount, run.BumpedCount, run.RejectedCount, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record failed run %s: %w", run.ID, err)
	}

	return nil
}
