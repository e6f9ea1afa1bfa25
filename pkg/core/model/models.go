package model

import "time"

// EventCategory classifies a demo event. The category decides which placement
// wave handles the event, its default timing and which role tiers may staff it.
type EventCategory string

const (
	CategoryPrimary            EventCategory = "Primary"
	CategoryJuiceBar           EventCategory = "JuiceBar"
	CategorySupervisor         EventCategory = "Supervisor"
	CategoryKioskSetup         EventCategory = "KioskSetup"
	CategoryDigitalMaintenance EventCategory = "DigitalMaintenance"
	CategoryOther              EventCategory = "Other"
)

func (c EventCategory) IsValid() bool {
	switch c {
	case CategoryPrimary, CategoryJuiceBar, CategorySupervisor,
		CategoryKioskSetup, CategoryDigitalMaintenance, CategoryOther:
		return true
	}
	return false
}

// RoleTier is an employee's capability tier. Tiers are ordered: each tier
// covers everything the tiers below it can do.
type RoleTier string

const (
	TierBaseWorker       RoleTier = "BaseWorker"
	TierSpecialistJuicer RoleTier = "SpecialistJuicer"
	TierLeadSpecialist   RoleTier = "LeadSpecialist"
	TierClubSupervisor   RoleTier = "ClubSupervisor"
)

var tierRanks = map[RoleTier]int{
	TierBaseWorker:       1,
	TierSpecialistJuicer: 2,
	TierLeadSpecialist:   3,
	TierClubSupervisor:   4,
}

func (r RoleTier) IsValid() bool {
	_, ok := tierRanks[r]
	return ok
}

// Rank returns the ordering position of the tier, lowest first.
// Unknown tiers rank zero.
func (r RoleTier) Rank() int {
	return tierRanks[r]
}

// AtLeast reports whether the tier ranks at or above the other tier.
func (r RoleTier) AtLeast(other RoleTier) bool {
	return tierRanks[r] >= tierRanks[other]
}

// categoryTiers is the capability table: the minimum role tier that may staff
// each event category. Checks are lookups against this table rather than
// branching on category names.
var categoryTiers = map[EventCategory]RoleTier{
	CategoryPrimary:            TierBaseWorker,
	CategoryJuiceBar:           TierSpecialistJuicer,
	CategorySupervisor:         TierLeadSpecialist,
	CategoryKioskSetup:         TierLeadSpecialist,
	CategoryDigitalMaintenance: TierLeadSpecialist,
	CategoryOther:              TierLeadSpecialist,
}

// CategoryAllows reports whether employees of the given tier may staff events
// of the given category.
func CategoryAllows(category EventCategory, tier RoleTier) bool {
	minTier, ok := categoryTiers[category]
	if !ok {
		return false
	}
	return tier.AtLeast(minTier)
}

// Employee is a demo-staff member at the location.
type Employee struct {
	ID               string
	Name             string
	Tier             RoleTier
	Active           bool
	AlcoholCertified bool
	TerminatedOn     *time.Time // Date only, nil while still employed
}

// EmployableOn reports whether the employee can hold an assignment on the
// given date. The termination date itself is the first day off the roster.
func (e Employee) EmployableOn(date time.Time) bool {
	if !e.Active {
		return false
	}
	if e.TerminatedOn != nil && !Midnight(date).Before(Midnight(*e.TerminatedOn)) {
		return false
	}
	return true
}

// EventCondition is the lifecycle state of an event's placement.
type EventCondition string

const (
	ConditionUnscheduled EventCondition = "Unscheduled"
	ConditionScheduled   EventCondition = "Scheduled"
	ConditionRejected    EventCondition = "Rejected"
)

func (c EventCondition) IsValid() bool {
	return c == ConditionUnscheduled || c == ConditionScheduled || c == ConditionRejected
}

// Event is a single dated piece of demo work to place.
type Event struct {
	Reference           string // External reference, unique
	Name                string // Display name following the floor-schedule convention
	Category            EventCategory
	Correlation         string    // Pairing number shared with a counterpart event, empty when unpaired
	EarliestStart       time.Time // Date only, first day the event may run
	DueDate             time.Time // Date only, exclusive upper bound
	Duration            time.Duration
	Condition           EventCondition
	ParentRef           string // Reference of the event this one was split from, empty otherwise
	Teardown            bool   // DigitalMaintenance only: evening teardown step
	SuppressAuto        bool   // Excluded from automatic placement
	RequiresAlcoholCert bool
}

// Default durations applied when an event carries none of its own.
const (
	defaultDemoDuration        = 6 * time.Hour
	defaultSupervisorDuration  = 30 * time.Minute
	defaultKioskDuration       = time.Hour
	defaultMaintenanceDuration = time.Hour
	defaultTeardownDuration    = 15 * time.Minute
	defaultOtherDuration       = 2 * time.Hour
)

// DefaultDuration returns the standard duration for a category. Teardown
// steps of DigitalMaintenance events run much shorter than setup steps.
func DefaultDuration(category EventCategory, teardown bool) time.Duration {
	switch category {
	case CategoryPrimary, CategoryJuiceBar:
		return defaultDemoDuration
	case CategorySupervisor:
		return defaultSupervisorDuration
	case CategoryKioskSetup:
		return defaultKioskDuration
	case CategoryDigitalMaintenance:
		if teardown {
			return defaultTeardownDuration
		}
		return defaultMaintenanceDuration
	default:
		return defaultOtherDuration
	}
}

// EffectiveDuration returns the event's own duration, or the category default
// when none is set.
func (e Event) EffectiveDuration() time.Duration {
	if e.Duration > 0 {
		return e.Duration
	}
	return DefaultDuration(e.Category, e.Teardown)
}

// SyncState tracks submission of a committed assignment to the external
// calendar.
type SyncState string

const (
	SyncPending   SyncState = "pending"
	SyncSubmitted SyncState = "submitted"
	SyncFailed    SyncState = "failed"
)

// Assignment places one event with one employee at a concrete start time.
// Category and Correlation are carried from the event so conflict checks do
// not need a second lookup.
type Assignment struct {
	EventRef    string
	EmployeeID  string
	StartAt     time.Time
	Duration    time.Duration
	Category    EventCategory
	Correlation string
	SyncState   SyncState
}

// EndAt returns the exclusive end of the assignment window.
func (a Assignment) EndAt() time.Time {
	return a.StartAt.Add(a.Duration)
}

// Overlaps reports whether two assignment windows intersect. Windows are
// half-open, so back-to-back assignments do not overlap.
func (a Assignment) Overlaps(other Assignment) bool {
	return a.StartAt.Before(other.EndAt()) && other.StartAt.Before(a.EndAt())
}
