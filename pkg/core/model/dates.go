package model

import "time"

// All scheduling arithmetic happens on UTC calendar days. Date-only values
// are stored as UTC midnights so equality and comparison stay exact.

// Midnight truncates t to the start of its UTC calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two instants fall on the same UTC calendar day.
func SameDate(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// DaysUntil returns the number of whole days from the day containing from
// until the day containing until. Negative when until is earlier.
func DaysUntil(from, until time.Time) int {
	return int(Midnight(until).Sub(Midnight(from)) / (24 * time.Hour))
}

// At combines a date with a clock time in UTC.
func At(date time.Time, hour, minute int) time.Time {
	return Midnight(date).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// DateRange is a half-open date window [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange builds a range from two instants, normalising both to UTC
// midnights.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: Midnight(start), End: Midnight(end)}
}

// Contains reports whether the given date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := Midnight(date)
	return !d.Before(Midnight(r.Start)) && d.Before(Midnight(r.End))
}

// Overlaps reports whether two ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return Midnight(r.Start).Before(Midnight(other.End)) && Midnight(other.Start).Before(Midnight(r.End))
}

// Key returns a stable textual key for the range, used to derive the advisory
// lock for a run window.
func (r DateRange) Key() string {
	return Midnight(r.Start).Format("2006-01-02") + "|" + Midnight(r.End).Format("2006-01-02")
}
