package db

import "errors"

// Sentinel errors shared by every Store implementation. Callers match them
// with errors.Is regardless of which backend produced them.
var (
	// ErrEventNotFound is returned when an event reference does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrEmployeeNotFound is returned when an employee ID does not exist.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrWindowLocked is returned by BeginRun when another run already holds
	// the lock for an overlapping scheduling window.
	ErrWindowLocked = errors.New("scheduling window is locked by another run")
)
