package model

import "time"

// WeeklyPattern is an employee's base weekly availability, indexed by
// time.Weekday (Sunday first).
type WeeklyPattern struct {
	EmployeeID string
	Days       [7]bool
}

// DateOverride pins availability for one employee on one specific date. It
// beats the weekly pattern; an active range override covering that weekday
// beats it.
type DateOverride struct {
	EmployeeID string
	Date       time.Time // Date only
	Available  bool
	Reason     string
}

// RangeOverride replaces selected weekdays of the weekly pattern while the
// date range [Start, End] is active. Weekdays left nil fall through to the
// pattern underneath.
type RangeOverride struct {
	EmployeeID string
	Start      time.Time // Date only
	End        time.Time // Date only, inclusive
	Days       [7]*bool
}

// Covers reports whether the override is active on the given date.
func (o RangeOverride) Covers(date time.Time) bool {
	d := Midnight(date)
	return !d.Before(Midnight(o.Start)) && !d.After(Midnight(o.End))
}

// TimeOff is a leave request covering a date range, inclusive of both ends.
// Only approved leave blocks placement.
type TimeOff struct {
	ID         string
	EmployeeID string
	Start      time.Time // Date only
	End        time.Time // Date only, inclusive
	Approved   bool
	Reason     string
}

// Covers reports whether the leave includes the given date.
func (t TimeOff) Covers(date time.Time) bool {
	d := Midnight(date)
	return !d.Before(Midnight(t.Start)) && !d.After(Midnight(t.End))
}

// RotationRole names a recurring duty with a designated owner per weekday.
type RotationRole string

const (
	RotationJuicer      RotationRole = "Juicer"
	RotationPrimaryLead RotationRole = "PrimaryLead"
)

func (r RotationRole) IsValid() bool {
	return r == RotationJuicer || r == RotationPrimaryLead
}

// RotationAssignment names the default owner of a rotation role on one
// weekday.
type RotationAssignment struct {
	Role       RotationRole
	Weekday    time.Weekday
	EmployeeID string
}

// RotationException overrides the rotation owner on a specific date. An empty
// EmployeeID means the role is explicitly unstaffed that day.
type RotationException struct {
	Role       RotationRole
	Date       time.Time // Date only
	EmployeeID string
}
