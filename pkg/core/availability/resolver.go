package availability

import (
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Resolver answers day-level availability questions for employees. Three
// layers of records apply, first match wins: range overrides that pin the
// date's weekday, single-date overrides, then the base weekly pattern. An
// employee with no pattern on file is unavailable until one is recorded.
type Resolver struct {
	patterns      map[string][7]bool
	dateOverrides map[string]bool
	ranges        map[string][]model.RangeOverride
}

// NewResolver indexes the given availability records for lookup.
func NewResolver(patterns []model.WeeklyPattern, dateOverrides []model.DateOverride, rangeOverrides []model.RangeOverride) *Resolver {
	r := &Resolver{
		patterns:      make(map[string][7]bool, len(patterns)),
		dateOverrides: make(map[string]bool, len(dateOverrides)),
		ranges:        make(map[string][]model.RangeOverride),
	}
	for _, p := range patterns {
		r.patterns[p.EmployeeID] = p.Days
	}
	for _, o := range dateOverrides {
		r.dateOverrides[overrideKey(o.EmployeeID, o.Date)] = o.Available
	}
	for _, o := range rangeOverrides {
		r.ranges[o.EmployeeID] = append(r.ranges[o.EmployeeID], o)
	}
	return r
}

// IsAvailable resolves whether the employee can be scheduled on the given
// date.
func (r *Resolver) IsAvailable(employeeID string, date time.Time) bool {
	date = model.Midnight(date)

	// Layer 1: a range override active on the date that pins this weekday.
	// When several ranges apply the most recently starting one wins.
	if available, ok := r.activeRangeDay(employeeID, date); ok {
		return available
	}

	// Layer 2: a pinned answer for this exact date
	if available, ok := r.dateOverrides[overrideKey(employeeID, date)]; ok {
		return available
	}

	// Layer 3: the base weekly pattern
	pattern, ok := r.patterns[employeeID]
	if !ok {
		return false
	}
	return pattern[date.Weekday()]
}

// activeRangeDay finds the winning range override entry for the date's
// weekday, if any range covers the date and pins that weekday.
func (r *Resolver) activeRangeDay(employeeID string, date time.Time) (bool, bool) {
	var winner *model.RangeOverride
	for i := range r.ranges[employeeID] {
		o := &r.ranges[employeeID][i]
		if !o.Covers(date) || o.Days[date.Weekday()] == nil {
			continue
		}
		if winner == nil || o.Start.After(winner.Start) {
			winner = o
		}
	}
	if winner == nil {
		return false, false
	}
	return *winner.Days[date.Weekday()], true
}

func overrideKey(employeeID string, date time.Time) string {
	return employeeID + "|" + model.Midnight(date).Format("2006-01-02")
}
