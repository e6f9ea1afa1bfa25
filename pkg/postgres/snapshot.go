package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// LoadSnapshot reads the full data set for a window outside any run
// transaction.
func (d *DB) LoadSnapshot(ctx context.Context, window model.DateRange) (*model.Snapshot, error) {
	return loadSnapshot(ctx, d.pool, window)
}

// loadSnapshot assembles a snapshot from the given query surface. Every
// loader orders its rows so two loads of the same data produce identical
// snapshots.
func loadSnapshot(ctx context.Context, q queryer, window model.DateRange) (*model.Snapshot, error) {
	snap := &model.Snapshot{Window: window}

	var err error
	if snap.Employees, err = loadEmployees(ctx, q); err != nil {
		return nil, err
	}
	if snap.Events, err = loadEvents(ctx, q); err != nil {
		return nil, err
	}
	if snap.Assignments, err = loadAssignments(ctx, q, window); err != nil {
		return nil, err
	}
	if snap.Patterns, err = loadWeeklyPatterns(ctx, q); err != nil {
		return nil, err
	}
	if snap.DateOverrides, err = loadDateOverrides(ctx, q); err != nil {
		return nil, err
	}
	if snap.RangeOverrides, err = loadRangeOverrides(ctx, q); err != nil {
		return nil, err
	}
	if snap.TimeOff, err = loadTimeOff(ctx, q); err != nil {
		return nil, err
	}
	if snap.RotationAssignments, err = loadRotationAssignments(ctx, q); err != nil {
		return nil, err
	}
	if snap.RotationExceptions, err = loadRotationExceptions(ctx, q); err != nil {
		return nil, err
	}

	return snap, nil
}

func loadEmployees(ctx context.Context, q queryer) ([]model.Employee, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, tier, active, alcohol_certified, terminated_on
		FROM employee
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		var emp model.Employee
		var tier string
		if err := rows.Scan(&emp.ID, &emp.Name, &tier, &emp.Active, &emp.AlcoholCertified, &emp.TerminatedOn); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		emp.Tier = model.RoleTier(tier)
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}

	return employees, nil
}

func loadEvents(ctx context.Context, q queryer) ([]model.Event, error) {
	rows, err := q.Query(ctx, `
		SELECT reference, name, category, correlation, earliest_start, due_date,
		       duration_minutes, condition, parent_ref, teardown, suppress_auto,
		       requires_alcohol_cert
		FROM event
		ORDER BY reference
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// loadAssignments reads committed assignments starting near the window,
// padded a day on both sides so boundary conflicts stay visible. Category
// and correlation come from the event row.
func loadAssignments(ctx context.Context, q queryer, window model.DateRange) ([]model.Assignment, error) {
	rows, err := q.Query(ctx, `
		SELECT a.event_ref, a.employee_id, a.start_at, a.duration_minutes, a.sync_state,
		       e.category, e.correlation
		FROM assignment a
		JOIN event e ON e.reference = a.event_ref
		WHERE a.start_at >= $1 AND a.start_at < $2
		ORDER BY a.event_ref
	`, window.Start.AddDate(0, 0, -1), window.End.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var durationMinutes int
		var syncState, category string
		if err := rows.Scan(&a.EventRef, &a.EmployeeID, &a.StartAt, &durationMinutes, &syncState, &category, &a.Correlation); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.StartAt = a.StartAt.UTC()
		a.Duration = time.Duration(durationMinutes) * time.Minute
		a.SyncState = model.SyncState(syncState)
		a.Category = model.EventCategory(category)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	return assignments, nil
}

func loadWeeklyPatterns(ctx context.Context, q queryer) ([]model.WeeklyPattern, error) {
	rows, err := q.Query(ctx, `
		SELECT employee_id, days
		FROM weekly_pattern
		ORDER BY employee_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly patterns: %w", err)
	}
	defer rows.Close()

	var patterns []model.WeeklyPattern
	for rows.Next() {
		var p model.WeeklyPattern
		var days []bool
		if err := rows.Scan(&p.EmployeeID, &days); err != nil {
			return nil, fmt.Errorf("failed to scan weekly pattern: %w", err)
		}
		if len(days) != 7 {
			return nil, fmt.Errorf("weekly pattern for %s has %d day flags, want 7", p.EmployeeID, len(days))
		}
		copy(p.Days[:], days)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating weekly patterns: %w", err)
	}

	return patterns, nil
}

func loadDateOverrides(ctx context.Context, q queryer) ([]model.DateOverride, error) {
	rows, err := q.Query(ctx, `
		SELECT employee_id, date, available, reason
		FROM date_override
		ORDER BY employee_id, date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query date overrides: %w", err)
	}
	defer rows.Close()

	var overrides []model.DateOverride
	for rows.Next() {
		var o model.DateOverride
		if err := rows.Scan(&o.EmployeeID, &o.Date, &o.Available, &o.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan date override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating date overrides: %w", err)
	}

	return overrides, nil
}

func loadRangeOverrides(ctx context.Context, q queryer) ([]model.RangeOverride, error) {
	rows, err := q.Query(ctx, `
		SELECT employee_id, start_date, end_date, days
		FROM range_override
		ORDER BY employee_id, start_date, end_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query range overrides: %w", err)
	}
	defer rows.Close()

	var overrides []model.RangeOverride
	for rows.Next() {
		var o model.RangeOverride
		var days []*bool
		if err := rows.Scan(&o.EmployeeID, &o.Start, &o.End, &days); err != nil {
			return nil, fmt.Errorf("failed to scan range override: %w", err)
		}
		if len(days) != 7 {
			return nil, fmt.Errorf("range override for %s has %d day flags, want 7", o.EmployeeID, len(days))
		}
		copy(o.Days[:], days)
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating range overrides: %w", err)
	}

	return overrides, nil
}

func loadTimeOff(ctx context.Context, q queryer) ([]model.TimeOff, error) {
	rows, err := q.Query(ctx, `
		SELECT id, employee_id, start_date, end_date, approved, reason
		FROM time_off
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query time off: %w", err)
	}
	defer rows.Close()

	var timeOff []model.TimeOff
	for rows.Next() {
		var t model.TimeOff
		if err := rows.Scan(&t.ID, &t.EmployeeID, &t.Start, &t.End, &t.Approved, &t.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan time off: %w", err)
		}
		timeOff = append(timeOff, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time off: %w", err)
	}

	return timeOff, nil
}

func loadRotationAssignments(ctx context.Context, q queryer) ([]model.RotationAssignment, error) {
	rows, err := q.Query(ctx, `
		SELECT role, weekday, employee_id
		FROM rotation_assignment
		ORDER BY role, weekday
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.RotationAssignment
	for rows.Next() {
		var r model.RotationAssignment
		var role string
		var weekday int
		if err := rows.Scan(&role, &weekday, &r.EmployeeID); err != nil {
			return nil, fmt.Errorf("failed to scan rotation assignment: %w", err)
		}
		r.Role = model.RotationRole(role)
		r.Weekday = time.Weekday(weekday)
		assignments = append(assignments, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rotation assignments: %w", err)
	}

	return assignments, nil
}

func loadRotationExceptions(ctx context.Context, q queryer) ([]model.RotationException, error) {
	rows, err := q.Query(ctx, `
		SELECT role, date, employee_id
		FROM rotation_exception
		ORDER BY role, date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []model.RotationException
	for rows.Next() {
		var r model.RotationException
		var role string
		if err := rows.Scan(&role, &r.Date, &r.EmployeeID); err != nil {
			return nil, fmt.Errorf("failed to scan rotation exception: %w", err)
		}
		r.Role = model.RotationRole(role)
		exceptions = append(exceptions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rotation exceptions: %w", err)
	}

	return exceptions, nil
}
