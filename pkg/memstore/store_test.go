package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/db"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testWindow() model.DateRange {
	return model.NewDateRange(date(2025, time.October, 6), date(2025, time.October, 11))
}

func seededStore() *Store {
	s := New()
	s.PutEmployee(model.Employee{ID: "e-1", Name: "Avery", Tier: model.TierLeadSpecialist, Active: true})
	s.PutEvent(model.Event{
		Reference:     "1001",
		Name:          "Demo 1001",
		Category:      model.CategoryOther,
		EarliestStart: date(2025, time.October, 6),
		DueDate:       date(2025, time.October, 11),
		Condition:     model.ConditionUnscheduled,
	})
	s.PutEvent(model.Event{
		Reference:     "0999",
		Name:          "Demo 0999",
		Category:      model.CategoryPrimary,
		EarliestStart: date(2025, time.October, 6),
		DueDate:       date(2025, time.October, 11),
		Condition:     model.ConditionScheduled,
	})
	s.PutAssignment(model.Assignment{
		EventRef:   "0999",
		EmployeeID: "e-1",
		StartAt:    time.Date(2025, time.October, 6, 10, 0, 0, 0, time.UTC),
		Duration:   6 * time.Hour,
		Category:   model.CategoryPrimary,
		SyncState:  model.SyncSubmitted,
	})
	return s
}

func TestBeginRun_LocksOverlappingWindows(t *testing.T) {
	ctx := context.Background()
	s := New()

	tx, err := s.BeginRun(ctx, testWindow())
	require.NoError(t, err)

	_, err = s.BeginRun(ctx, model.NewDateRange(date(2025, time.October, 9), date(2025, time.October, 14)))
	assert.ErrorIs(t, err, db.ErrWindowLocked, "overlapping window should be rejected")

	other, err := s.BeginRun(ctx, model.NewDateRange(date(2025, time.October, 13), date(2025, time.October, 18)))
	require.NoError(t, err, "disjoint window should not be blocked")
	require.NoError(t, other.Rollback(ctx))

	require.NoError(t, tx.Rollback(ctx))

	_, err = s.BeginRun(ctx, testWindow())
	assert.NoError(t, err, "rollback should release the window lock")
}

func TestRunTx_CommitAppliesStagedWork(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	tx, err := s.BeginRun(ctx, testWindow())
	require.NoError(t, err)

	started := time.Date(2025, time.September, 29, 8, 0, 0, 0, time.UTC)
	run := model.Run{ID: "run-1", Window: testWindow(), Status: model.RunRunning, StartedAt: started}
	require.NoError(t, tx.CreateRun(ctx, run))

	placed := model.Assignment{
		EventRef:   "1001",
		EmployeeID: "e-1",
		StartAt:    time.Date(2025, time.October, 7, 11, 0, 0, 0, time.UTC),
		Duration:   2 * time.Hour,
		Category:   model.CategoryOther,
	}
	require.NoError(t, tx.StageWave(ctx, "run-1", 5, []model.Assignment{placed}))
	require.NoError(t, tx.AppendRunLog(ctx, "run-1", []model.RunLogEntry{
		{Seq: 1, Action: model.ActionPlaced, EventRef: "1001", EmployeeID: "e-1", StartAt: placed.StartAt},
	}))
	require.NoError(t, tx.DeleteAssignments(ctx, []string{"0999"}))
	require.NoError(t, tx.PromotePending(ctx, "run-1"))
	require.NoError(t, tx.UpdateEventConditions(ctx, model.ConditionScheduled, []string{"1001"}))

	finished := started.Add(2 * time.Second)
	run.Status = model.RunCompleted
	run.FinishedAt = &finished
	run.PlacedCount = 1
	require.NoError(t, tx.CompleteRun(ctx, run))
	require.NoError(t, tx.Commit(ctx))

	snap, err := s.LoadSnapshot(ctx, testWindow())
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1, "displaced assignment should be gone, promoted one present")
	assert.Equal(t, "1001", snap.Assignments[0].EventRef)
	assert.Equal(t, model.SyncPending, snap.Assignments[0].SyncState, "promoted assignments start unsubmitted")

	ev, err := s.GetEvent(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, model.ConditionScheduled, ev.Condition)

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, got.Status)
	assert.Equal(t, 1, got.PlacedCount)

	log, err := s.GetRunLog(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, model.ActionPlaced, log[0].Action)
}

func TestRunTx_StagedWorkInvisibleBeforeCommit(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	tx, err := s.BeginRun(ctx, testWindow())
	require.NoError(t, err)
	require.NoError(t, tx.StageWave(ctx, "run-1", 2, []model.Assignment{{EventRef: "1001", EmployeeID: "e-1"}}))
	require.NoError(t, tx.PromotePending(ctx, "run-1"))

	snap, err := s.LoadSnapshot(ctx, testWindow())
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "0999", snap.Assignments[0].EventRef, "staged assignment must stay invisible until commit")

	require.NoError(t, tx.Rollback(ctx))
}

func TestRunTx_RollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	tx, err := s.BeginRun(ctx, testWindow())
	require.NoError(t, err)
	require.NoError(t, tx.CreateRun(ctx, model.Run{ID: "run-1", Window: testWindow(), Status: model.RunRunning}))
	require.NoError(t, tx.StageWave(ctx, "run-1", 2, []model.Assignment{{EventRef: "1001", EmployeeID: "e-1"}}))
	require.NoError(t, tx.DeleteAssignments(ctx, []string{"0999"}))
	require.NoError(t, tx.PromotePending(ctx, "run-1"))
	require.NoError(t, tx.UpdateEventConditions(ctx, model.ConditionScheduled, []string{"1001"}))
	require.NoError(t, tx.Rollback(ctx))

	snap, err := s.LoadSnapshot(ctx, testWindow())
	require.NoError(t, err)
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, "0999", snap.Assignments[0].EventRef)

	ev, err := s.GetEvent(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, model.ConditionUnscheduled, ev.Condition)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "rolled back run should leave no record")

	err = tx.Commit(ctx)
	assert.Error(t, err, "commit after rollback must fail")
}

func TestStore_RecordFailedRunSurvivesRollback(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	tx, err := s.BeginRun(ctx, testWindow())
	require.NoError(t, err)
	require.NoError(t, tx.CreateRun(ctx, model.Run{ID: "run-1", Window: testWindow(), Status: model.RunRunning}))
	require.NoError(t, tx.Rollback(ctx))

	failed := model.Run{ID: "run-1", Window: testWindow(), Status: model.RunFailed, Error: "store exploded"}
	require.NoError(t, s.RecordFailedRun(ctx, failed))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, got.Status)
	assert.Equal(t, "store exploded", got.Error)
}

func TestStore_NotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetEvent(ctx, "9999")
	assert.ErrorIs(t, err, db.ErrEventNotFound)

	_, err = s.GetEmployee(ctx, "e-none")
	assert.ErrorIs(t, err, db.ErrEmployeeNotFound)

	_, err = s.GetRun(ctx, "run-none")
	assert.ErrorIs(t, err, db.ErrRunNotFound)

	_, err = s.GetRunLog(ctx, "run-none")
	assert.ErrorIs(t, err, db.ErrRunNotFound)
}

func TestStore_ListRunsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, s.RecordFailedRun(ctx, model.Run{
			ID:        id,
			Status:    model.RunCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestStore_UpdateAssignmentSync(t *testing.T) {
	ctx := context.Background()
	s := seededStore()

	require.NoError(t, s.UpdateAssignmentSync(ctx, "0999", model.SyncFailed))

	snap, err := s.LoadSnapshot(ctx, testWindow())
	require.NoError(t, err)
	assert.Equal(t, model.SyncFailed, snap.Assignments[0].SyncState)

	err = s.UpdateAssignmentSync(ctx, "1001", model.SyncSubmitted)
	assert.ErrorIs(t, err, db.ErrEventNotFound, "event without a committed assignment")
}
