package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/constraint"
	"github.com/mfleming/demoroster/pkg/core/model"
)

// ValidateCandidateStore defines the database operations manual validation needs
type ValidateCandidateStore interface {
	GetEvent(ctx context.Context, reference string) (model.Event, error)
	GetEmployee(ctx context.Context, id string) (model.Employee, error)
	LoadSnapshot(ctx context.Context, window model.DateRange) (*model.Snapshot, error)
}

// ValidateCandidate checks one employee against one event at a proposed start
// time and returns every constraint finding, hard and soft. Nothing is
// placed.
func ValidateCandidate(
	ctx context.Context,
	store ValidateCandidateStore,
	logger *zap.Logger,
	eventRef string,
	employeeID string,
	startAt time.Time,
) (*model.ValidationResult, error) {
	logger.Debug("Validating candidate placement",
		zap.String("event_ref", eventRef),
		zap.String("employee_id", employeeID),
		zap.Time("start_at", startAt))

	event, err := store.GetEvent(ctx, eventRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event %s: %w", eventRef, err)
	}

	employee, err := store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employee %s: %w", employeeID, err)
	}

	snap, err := store.LoadSnapshot(ctx, dayWindow(startAt))
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	validator := constraint.NewValidator(snap)
	result := validator.Validate(event, employee, startAt, nil)

	logger.Debug("Validation finished",
		zap.String("event_ref", eventRef),
		zap.String("employee_id", employeeID),
		zap.Int("violations", len(result.Violations)))

	return &result, nil
}

// dayWindow is the single-day window containing t.
func dayWindow(t time.Time) model.DateRange {
	day := model.Midnight(t)
	return model.NewDateRange(day, day.AddDate(0, 0, 1))
}
