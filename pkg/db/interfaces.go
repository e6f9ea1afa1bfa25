package db

import (
	"context"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Store defines the interface for all scheduling database operations.
// Both the in-memory memstore.Store and the postgres.DB implement it.
type Store interface {
	// BeginRun opens a scheduling transaction and takes the lock for the
	// given window. It returns ErrWindowLocked when another run already
	// holds a lock for an overlapping window.
	BeginRun(ctx context.Context, window model.DateRange) (RunTx, error)

	// LoadSnapshot reads the full data set for a window outside any run
	// transaction, for manual validation and eligibility queries.
	LoadSnapshot(ctx context.Context, window model.DateRange) (*model.Snapshot, error)

	GetEvent(ctx context.Context, reference string) (model.Event, error)
	GetEmployee(ctx context.Context, id string) (model.Employee, error)

	GetRun(ctx context.Context, runID string) (model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	GetRunLog(ctx context.Context, runID string) ([]model.RunLogEntry, error)

	// RecordFailedRun upserts a failed run record outside any transaction,
	// so the failure stays visible after the run's work is rolled back.
	RecordFailedRun(ctx context.Context, run model.Run) error

	// UpdateAssignmentSync records the calendar submission state of a
	// committed assignment.
	UpdateAssignmentSync(ctx context.Context, eventRef string, state model.SyncState) error
}

// RunTx is the transaction one scheduling run works inside. Staged waves and
// run records become visible to other readers only on Commit; Rollback
// discards everything including the run row itself.
type RunTx interface {
	// Snapshot reads the full data set for the run's window within the
	// transaction.
	Snapshot(ctx context.Context) (*model.Snapshot, error)

	CreateRun(ctx context.Context, run model.Run) error

	// StageWave stores one flushed wave of pending assignments for the run.
	StageWave(ctx context.Context, runID string, wave int, placed []model.Assignment) error

	AppendRunLog(ctx context.Context, runID string, entries []model.RunLogEntry) error

	// DeleteAssignments removes committed assignments whose events were
	// displaced during the run and not re-placed.
	DeleteAssignments(ctx context.Context, eventRefs []string) error

	// PromotePending converts the run's staged assignments into committed
	// ones, replacing any committed assignment for the same event.
	PromotePending(ctx context.Context, runID string) error

	// UpdateEventConditions sets the lifecycle condition on every listed
	// event.
	UpdateEventConditions(ctx context.Context, condition model.EventCondition, eventRefs []string) error

	// CompleteRun writes the run's final status and counters.
	CompleteRun(ctx context.Context, run model.Run) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
