package model

import "time"

// RunStatus is the lifecycle state of a scheduling run.
type RunStatus string

const (
	RunRunning   RunStatus = "Running"
	RunCompleted RunStatus = "Completed"
	RunFailed    RunStatus = "Failed"
)

// Run records one execution of the scheduling engine over a date window.
type Run struct {
	ID            string
	Window        DateRange
	Status        RunStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
	PlacedCount   int
	BumpedCount   int
	RejectedCount int
	Error         string // Failure context, empty unless Status is Failed
}

// RunAction classifies one entry in a run's decision log.
type RunAction string

const (
	ActionPlaced    RunAction = "placed"
	ActionPaired    RunAction = "paired"
	ActionBumped    RunAction = "bumped"
	ActionRelocated RunAction = "relocated"
	ActionRejected  RunAction = "rejected"
)

// RunLogEntry is one decision recorded during a run. Entries are kept in
// decision order so the log replays the run.
type RunLogEntry struct {
	Seq        int
	Action     RunAction
	EventRef   string
	EmployeeID string    // Empty for rejections
	StartAt    time.Time // Zero for rejections
	Detail     string
}
