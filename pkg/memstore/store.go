package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/db"
)

// Store is an in-memory db.Store. It backs tests and local dry runs with the
// same semantics as the postgres backend: staged run work becomes visible
// only on Commit, and an open run transaction locks its window against
// overlapping runs.
type Store struct {
	mu sync.Mutex

	employees   map[string]model.Employee
	events      map[string]model.Event
	assignments map[string]model.Assignment // committed, keyed by event reference

	patterns            []model.WeeklyPattern
	dateOverrides       []model.DateOverride
	rangeOverrides      []model.RangeOverride
	timeOff             []model.TimeOff
	rotationAssignments []model.RotationAssignment
	rotationExceptions  []model.RotationException

	runs    map[string]model.Run
	runLogs map[string][]model.RunLogEntry

	openWindows []model.DateRange
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		employees:   make(map[string]model.Employee),
		events:      make(map[string]model.Event),
		assignments: make(map[string]model.Assignment),
		runs:        make(map[string]model.Run),
		runLogs:     make(map[string][]model.RunLogEntry),
	}
}

// PutEmployee inserts or replaces an employee record.
func (s *Store) PutEmployee(emp model.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
}

// PutEvent inserts or replaces an event record.
func (s *Store) PutEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.Reference] = ev
}

// PutAssignment inserts or replaces a committed assignment.
func (s *Store) PutAssignment(a model.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[a.EventRef] = a
}

// AddWeeklyPattern appends a weekly availability pattern.
func (s *Store) AddWeeklyPattern(p model.WeeklyPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, p)
}

// AddDateOverride appends a single-date availability override.
func (s *Store) AddDateOverride(o model.DateOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dateOverrides = append(s.dateOverrides, o)
}

// AddRangeOverride appends a date-range availability override.
func (s *Store) AddRangeOverride(o model.RangeOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rangeOverrides = append(s.rangeOverrides, o)
}

// AddTimeOff appends a time-off request.
func (s *Store) AddTimeOff(t model.TimeOff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeOff = append(s.timeOff, t)
}

// AddRotationAssignment appends a weekday rotation assignment.
func (s *Store) AddRotationAssignment(r model.RotationAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotationAssignments = append(s.rotationAssignments, r)
}

// AddRotationException appends a single-date rotation exception.
func (s *Store) AddRotationException(r model.RotationException) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotationExceptions = append(s.rotationExceptions, r)
}

// BeginRun opens a run transaction and locks the window. It returns
// db.ErrWindowLocked while another transaction holds an overlapping window.
func (s *Store) BeginRun(ctx context.Context, window model.DateRange) (db.RunTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, open := range s.openWindows {
		if open.Overlaps(window) {
			return nil, fmt.Errorf("window %s: %w", window.Key(), db.ErrWindowLocked)
		}
	}
	s.openWindows = append(s.openWindows, window)
	return &runTx{
		store:      s,
		window:     window,
		logs:       make(map[string][]model.RunLogEntry),
		conditions: make(map[model.EventCondition][]string),
	}, nil
}

// LoadSnapshot returns a copy of the current data set for the window.
func (s *Store) LoadSnapshot(ctx context.Context, window model.DateRange) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(window), nil
}

// snapshotLocked copies the store contents into a snapshot with stable
// ordering. Callers must hold s.mu.
func (s *Store) snapshotLocked(window model.DateRange) *model.Snapshot {
	snap := &model.Snapshot{Window: window}

	snap.Employees = make([]model.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		snap.Employees = append(snap.Employees, emp)
	}
	sort.Slice(snap.Employees, func(i, j int) bool { return snap.Employees[i].ID < snap.Employees[j].ID })

	snap.Events = make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		snap.Events = append(snap.Events, ev)
	}
	sort.Slice(snap.Events, func(i, j int) bool { return snap.Events[i].Reference < snap.Events[j].Reference })

	snap.Assignments = make([]model.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		snap.Assignments = append(snap.Assignments, a)
	}
	sort.Slice(snap.Assignments, func(i, j int) bool { return snap.Assignments[i].EventRef < snap.Assignments[j].EventRef })

	snap.Patterns = append([]model.WeeklyPattern(nil), s.patterns...)
	snap.DateOverrides = append([]model.DateOverride(nil), s.dateOverrides...)
	snap.RangeOverrides = append([]model.RangeOverride(nil), s.rangeOverrides...)
	snap.TimeOff = append([]model.TimeOff(nil), s.timeOff...)
	snap.RotationAssignments = append([]model.RotationAssignment(nil), s.rotationAssignments...)
	snap.RotationExceptions = append([]model.RotationException(nil), s.rotationExceptions...)

	return snap
}

// GetEvent returns the event with the given reference.
func (s *Store) GetEvent(ctx context.Context, reference string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[reference]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", reference, db.ErrEventNotFound)
	}
	return ev, nil
}

// GetEmployee returns the employee with the given ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.employees[id]
	if !ok {
		return model.Employee{}, fmt.Errorf("employee %s: %w", id, db.ErrEmployeeNotFound)
	}
	return emp, nil
}

// GetRun returns one run record.
func (s *Store) GetRun(ctx context.Context, runID string) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return model.Run{}, fmt.Errorf("run %s: %w", runID, db.ErrRunNotFound)
	}
	return run, nil
}

// ListRuns returns run records newest first. A limit of zero or less returns
// everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]model.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].StartedAt.After(runs[j].StartedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRunLog returns the decision log of one run in sequence order.
func (s *Store) GetRunLog(ctx context.Context, runID string) ([]model.RunLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; !ok {
		return nil, fmt.Errorf("run %s: %w", runID, db.ErrRunNotFound)
	}
	return append([]model.RunLogEntry(nil), s.runLogs[runID]...), nil
}

// RecordFailedRun upserts a failed run record outside any transaction.
func (s *Store) RecordFailedRun(ctx context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// UpdateAssignmentSync records the calendar submission state of a committed
// assignment.
func (s *Store) UpdateAssignmentSync(ctx context.Context, eventRef string, state model.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[eventRef]
	if !ok {
		return fmt.Errorf("no committed assignment for event %s: %w", eventRef, db.ErrEventNotFound)
	}
	a.SyncState = state
	s.assignments[eventRef] = a
	return nil
}

// releaseWindowLocked frees the lock held for a window. Callers must hold
// s.mu.
func (s *Store) releaseWindowLocked(window model.DateRange) {
	for i, open := range s.openWindows {
		if open.Start.Equal(window.Start) && open.End.Equal(window.End) {
			s.openWindows = append(s.openWindows[:i], s.openWindows[i+1:]...)
			return
		}
	}
}
