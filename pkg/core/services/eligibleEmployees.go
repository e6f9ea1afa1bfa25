package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/constraint"
	"github.com/mfleming/demoroster/pkg/core/model"
)

// EligibleEmployeesStore defines the database operations the eligibility
// query needs
type EligibleEmployeesStore interface {
	GetEvent(ctx context.Context, reference string) (model.Event, error)
	LoadSnapshot(ctx context.Context, window model.DateRange) (*model.Snapshot, error)
}

// EligibleEmployees returns every active employee who could staff the event
// at the proposed start time, ordered by name. Soft findings stay attached
// to each candidate so callers can surface them.
func EligibleEmployees(
	ctx context.Context,
	store EligibleEmployeesStore,
	logger *zap.Logger,
	eventRef string,
	startAt time.Time,
) ([]constraint.Candidate, error) {
	logger.Debug("Querying eligible employees",
		zap.String("event_ref", eventRef),
		zap.Time("start_at", startAt))

	event, err := store.GetEvent(ctx, eventRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s: %w", eventRef, err)
	}

	snap, err := store.LoadSnapshot(ctx, dayWindow(startAt))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	validator := constraint.NewValidator(snap)
	candidates := constraint.EligibleEmployees(validator, snap.Employees, event, startAt, nil)

	logger.Debug("Eligibility query finished",
		zap.String("event_ref", eventRef),
		zap.Int("eligible", len(candidates)))

	return candidates, nil
}
