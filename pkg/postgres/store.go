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

// rowScanner is satisfied by pgx.Row and pgx.Rows so single-row gets and
// list loaders can share scan code.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetEvent fetches one event by reference. Returns db.ErrEventNotFound when
// no such event exists.
func (d *DB) GetEvent(ctx context.Context, reference string) (model.Event, error) {
	return getEvent(ctx, d.pool, reference)
}

func getEvent(ctx context.Context, q queryer, reference string) (model.Event, error) {
	row := q.QueryRow(ctx, `
		SELECT reference, name, category, correlation, earliest_start, due_date,
		       duration_minutes, condition, parent_ref, teardown, suppress_auto,
		       requires_alcohol_cert
		FROM event
		WHERE reference = $1
	`, reference)

	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %s: %w", reference, db.ErrEventNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("failed to fetch event %s: %w", reference, err)
	}

	return ev, nil
}

func scanEvent(row rowScanner) (model.Event, error) {
	var ev model.Event
	var category, condition string
	var durationMinutes int
	if err := row.Scan(
		&ev.Reference, &ev.Name, &category, &ev.Correlation, &ev.EarliestStart,
		&ev.DueDate, &durationMinutes, &condition, &ev.ParentRef, &ev.Teardown,
		&ev.SuppressAuto, &ev.RequiresAlcoholCert,
	); err != nil {
		return model.Event{}, err
	}
	ev.Category = model.EventCategory(category)
	ev.Condition = model.EventCondition(condition)
	ev.Duration = time.Duration(durationMinutes) * time.Minute
	return ev, nil
}

// GetEmployee fetches one employee by ID. Returns db.ErrEmployeeNotFound
// when no such employee exists.
func (d *DB) GetEmployee(ctx context.Context, id string) (model.Employee, error) {
	row := d.pool.QueryRow(ctx, `
		SELECT id, name, tier, active, alcohol_certified, terminated_on
		FROM employee
		WHERE id = $1
	`, id)

	var emp model.Employee
	var tier string
	err := row.Scan(&emp.ID, &emp.Name, &tier, &emp.Active, &emp.AlcoholCertified, &emp.TerminatedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Employee{}, fmt.Errorf("employee %s: %w", id, db.ErrEmployeeNotFound)
	}
	if err != nil {
		return model.Employee{}, fmt.Errorf("failed to fetch employee %s: %w", id, err)
	}
	emp.Tier = model.RoleTier(tier)

	return emp, nil
}

// UpdateAssignmentSync records the calendar submission state of a committed
// assignment.
func (d *DB) UpdateAssignmentSync(ctx context.Context, eventRef string, state model.SyncState) error {
	ct, err := d.pool.Exec(ctx, `
		UPDATE assignment SET sync_state = $1 WHERE event_ref = $2
	`, string(state), eventRef)
	if err != nil {
		return fmt.Errorf("failed to update sync state for %s: %w", eventRef, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("no committed assignment for event %s: %w", eventRef, db.ErrEventNotFound)
	}

	return nil
}
