package memstore

import (
	"context"
	"errors"

	"github.com/mfleming/demoroster/pkg/core/model"
)

var errTxClosed = errors.New("transaction is closed")

// runTx is a db.RunTx that stages every write in memory and applies the lot
// under the store lock on Commit. A transaction is used by one goroutine at
// a time, so the staged state itself needs no locking.
type runTx struct {
	store  *Store
	window model.DateRange
	done   bool

	run        *model.Run
	staged     []model.Assignment
	logs       map[string][]model.RunLogEntry
	deleted    []string
	conditions map[model.EventCondition][]string
	promote    bool
}

func (tx *runTx) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	if tx.done {
		return nil, errTxClosed
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.store.snapshotLocked(tx.window), nil
}

func (tx *runTx) CreateRun(ctx context.Context, run model.Run) error {
	if tx.done {
		return errTxClosed
	}
	tx.run = &run
	return nil
}

func (tx *runTx) StageWave(ctx context.Context, runID string, wave int, placed []model.Assignment) error {
	if tx.done {
		return errTxClosed
	}
	tx.staged = append(tx.staged, placed...)
	return nil
}

func (tx *runTx) AppendRunLog(ctx context.Context, runID string, entries []model.RunLogEntry) error {
	if tx.done {
		return errTxClosed
	}
	tx.logs[runID] = append(tx.logs[runID], entries...)
	return nil
}

func (tx *runTx) DeleteAssignments(ctx context.Context, eventRefs []string) error {
	if tx.done {
		return errTxClosed
	}
	tx.deleted = append(tx.deleted, eventRefs...)
	return nil
}

func (tx *runTx) PromotePending(ctx context.Context, runID string) error {
	if tx.done {
		return errTxClosed
	}
	tx.promote = true
	return nil
}

func (tx *runTx) UpdateEventConditions(ctx context.Context, condition model.EventCondition, eventRefs []string) error {
	if tx.done {
		return errTxClosed
	}
	tx.conditions[condition] = append(tx.conditions[condition], eventRefs...)
	return nil
}

func (tx *runTx) CompleteRun(ctx context.Context, run model.Run) error {
	if tx.done {
		return errTxClosed
	}
	tx.run = &run
	return nil
}

// Commit applies the staged writes atomically and releases the window lock.
func (tx *runTx) Commit(ctx context.Context) error {
	if tx.done {
		return errTxClosed
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()

	if tx.run != nil {
		tx.store.runs[tx.run.ID] = *tx.run
	}
	for runID, entries := range tx.logs {
		tx.store.runLogs[runID] = append(tx.store.runLogs[runID], entries...)
	}
	for _, ref := range tx.deleted {
		delete(tx.store.assignments, ref)
	}
	if tx.promote {
		for _, a := range tx.staged {
			a.SyncState = model.SyncPending
			tx.store.assignments[a.EventRef] = a
		}
	}
	for condition, refs := range tx.conditions {
		for _, ref := range refs {
			if ev, ok := tx.store.events[ref]; ok {
				ev.Condition = condition
				tx.store.events[ref] = ev
			}
		}
	}

	tx.store.releaseWindowLocked(tx.window)
	tx.done = true
	return nil
}

// Rollback discards the staged writes and releases the window lock. Rolling
// back a finished transaction is a no-op.
func (tx *runTx) Rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	tx.store.releaseWindowLocked(tx.window)
	tx.done = true
	return nil
}
