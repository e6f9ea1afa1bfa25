package engine

import "time"

const (
	// DefaultShortNoticeDays is the horizon, in days from today, inside which
	// an event skips empty-slot search and goes straight to bumping.
	DefaultShortNoticeDays = 3

	// DefaultMaxBumpsPerEvent caps how many times one event may be displaced
	// within a single run. The cap is what turns a runaway bump cascade into
	// a reported rejection.
	DefaultMaxBumpsPerEvent = 3

	// DefaultMinDaysToDueDate protects urgent work: a placement may only be
	// bumped while at least this many days remain before its due date.
	DefaultMinDaysToDueDate = 2
)

// Params tunes the placement policies of a run.
type Params struct {
	ShortNoticeDays  int
	MaxBumpsPerEvent int
	MinDaysToDueDate int

	// Blackouts are dates placement must skip, normalised to UTC midnight.
	Blackouts map[time.Time]bool
}

// DefaultParams returns the standard policy values.
func DefaultParams() Params {
	return Params{
		ShortNoticeDays:  DefaultShortNoticeDays,
		MaxBumpsPerEvent: DefaultMaxBumpsPerEvent,
		MinDaysToDueDate: DefaultMinDaysToDueDate,
	}
}
