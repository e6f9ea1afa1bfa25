package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// RunHistoryStore defines the database operations run inspection needs
type RunHistoryStore interface {
	GetRun(ctx context.Context, runID string) (model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	GetRunLog(ctx context.Context, runID string) ([]model.RunLogEntry, error)
}

// RunDetail pairs a run record with its decision log.
type RunDetail struct {
	Run model.Run
	Log []model.RunLogEntry
}

// ListRuns returns recent runs, newest first. A limit of zero or less
// returns everything.
func ListRuns(ctx context.Context, store RunHistoryStore, logger *zap.Logger, limit int) ([]model.Run, error) {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	logger.Debug("Listed runs", zap.Int("count", len(runs)))
	return runs, nil
}

// InspectRun returns one run together with its full decision log.
func InspectRun(ctx context.Context, store RunHistoryStore, logger *zap.Logger, runID string) (*RunDetail, error) {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}

	log, err := store.GetRunLog(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run log for %s: %w", runID, err)
	}

	logger.Debug("Inspected run",
		zap.String("run_id", runID),
		zap.Int("log_entries", len(log)))

	return &RunDetail{Run: run, Log: log}, nil
}
