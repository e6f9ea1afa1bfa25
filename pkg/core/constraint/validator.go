package constraint

import (
	"fmt"
	"time"

	"github.com/mfleming/demoroster/pkg/core/availability"
	"github.com/mfleming/demoroster/pkg/core/model"
)

// Validator evaluates every placement constraint for a candidate assignment.
// Constraints never short-circuit: a result always carries the complete list
// of findings so callers can tell a bumpable conflict from a dead end.
type Validator struct {
	avail     *availability.Resolver
	timeOff   map[string][]model.TimeOff
	committed map[string][]model.Assignment
}

// NewValidator indexes a snapshot for constraint checks.
func NewValidator(snap *model.Snapshot) *Validator {
	v := &Validator{
		avail:     availability.NewResolver(snap.Patterns, snap.DateOverrides, snap.RangeOverrides),
		timeOff:   make(map[string][]model.TimeOff),
		committed: make(map[string][]model.Assignment),
	}
	for _, leave := range snap.TimeOff {
		v.timeOff[leave.EmployeeID] = append(v.timeOff[leave.EmployeeID], leave)
	}
	for _, a := range snap.Assignments {
		v.committed[a.EmployeeID] = append(v.committed[a.EmployeeID], a)
	}
	return v
}

// Validate checks a candidate placement of the event with the employee at the
// given start time against all seven constraints.
func (v *Validator) Validate(event model.Event, employee model.Employee, startAt time.Time, rctx *RunContext) model.ValidationResult {
	date := model.Midnight(startAt)
	proposed := model.Assignment{
		EventRef:    event.Reference,
		EmployeeID:  employee.ID,
		StartAt:     startAt,
		Duration:    event.EffectiveDuration(),
		Category:    event.Category,
		Correlation: event.Correlation,
	}
	existing := v.employeeAssignments(employee.ID, event.Reference, rctx)

	violations := make([]model.Violation, 0)
	add := func(kind model.ConstraintKind, severity model.Severity, detail string) {
		violations = append(violations, model.Violation{Kind: kind, Severity: severity, Detail: detail})
	}

	// TimeOff
	for _, leave := range v.timeOff[employee.ID] {
		if leave.Approved && leave.Covers(date) {
			add(model.ConstraintTimeOff, model.SeverityHard,
				fmt.Sprintf("approved leave %s to %s", leave.Start.Format("2006-01-02"), leave.End.Format("2006-01-02")))
		}
	}

	// Availability
	if !v.avail.IsAvailable(employee.ID, date) {
		add(model.ConstraintAvailability, model.SeveritySoft,
			fmt.Sprintf("not available on %s %s", date.Weekday(), date.Format("2006-01-02")))
	}

	// Role
	if !model.CategoryAllows(event.Category, employee.Tier) {
		add(model.ConstraintRole, model.SeverityHard,
			fmt.Sprintf("tier %s cannot staff %s events", employee.Tier, event.Category))
	}
	if event.RequiresAlcoholCert && !employee.AlcoholCertified {
		add(model.ConstraintRole, model.SeverityHard, "event requires alcohol service certification")
	}
	if !employee.EmployableOn(date) {
		add(model.ConstraintRole, model.SeverityHard,
			fmt.Sprintf("not on the active roster on %s", date.Format("2006-01-02")))
	}

	// DailyLimit: one full demo shift per employee per day. Paired events
	// sharing a correlation are one unit of work and exempt each other.
	if proposed.Category == model.CategoryPrimary || proposed.Category == model.CategoryJuiceBar {
		for _, a := range existing {
			if a.Category != model.CategoryPrimary || !model.SameDate(a.StartAt, startAt) || sameCorrelation(a, proposed) {
				continue
			}
			add(model.ConstraintDailyLimit, model.SeverityHard,
				fmt.Sprintf("already holds Primary event %s on %s", a.EventRef, date.Format("2006-01-02")))
		}
	}

	// Overlap
	for _, a := range existing {
		if sameCorrelation(a, proposed) || !a.Overlaps(proposed) {
			continue
		}
		add(model.ConstraintOverlap, model.SeverityHard,
			fmt.Sprintf("overlaps event %s (%s to %s)", a.EventRef, a.StartAt.Format("15:04"), a.EndAt().Format("15:04")))
	}

	// DueDate
	if date.Before(model.Midnight(event.EarliestStart)) {
		add(model.ConstraintDueDate, model.SeverityHard,
			fmt.Sprintf("%s is before the earliest start %s", date.Format("2006-01-02"), event.EarliestStart.Format("2006-01-02")))
	} else if !date.Before(model.Midnight(event.DueDate)) {
		add(model.ConstraintDueDate, model.SeverityHard,
			fmt.Sprintf("%s is not before the due date %s", date.Format("2006-01-02"), event.DueDate.Format("2006-01-02")))
	}

	// SupervisorOnRegular: supervisors covering full demo shifts is worth
	// flagging but never blocks.
	if employee.Tier == model.TierClubSupervisor &&
		(event.Category == model.CategoryPrimary || event.Category == model.CategoryJuiceBar) {
		add(model.ConstraintSupervisorOnRegular, model.SeveritySoft, "club supervisor placed on regular demo work")
	}

	return model.ValidationResult{Violations: violations}
}

// ConflictingAssignments returns the existing assignments that trip the
// daily-limit or overlap constraints for a candidate placement. The conflict
// resolver uses this to pick bump victims.
func (v *Validator) ConflictingAssignments(event model.Event, employee model.Employee, startAt time.Time, rctx *RunContext) []model.Assignment {
	proposed := model.Assignment{
		EventRef:    event.Reference,
		EmployeeID:  employee.ID,
		StartAt:     startAt,
		Duration:    event.EffectiveDuration(),
		Category:    event.Category,
		Correlation: event.Correlation,
	}

	conflicts := make([]model.Assignment, 0)
	for _, a := range v.employeeAssignments(employee.ID, event.Reference, rctx) {
		if sameCorrelation(a, proposed) {
			continue
		}
		dailyLimit := (proposed.Category == model.CategoryPrimary || proposed.Category == model.CategoryJuiceBar) &&
			a.Category == model.CategoryPrimary && model.SameDate(a.StartAt, startAt)
		if dailyLimit || a.Overlaps(proposed) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts
}

// Available reports day-level availability for an employee, resolved through
// range overrides, date overrides and the weekly pattern.
func (v *Validator) Available(employeeID string, date time.Time) bool {
	return v.avail.IsAvailable(employeeID, date)
}

// employeeAssignments merges the employee's committed assignments with the
// run's pending ones. Committed rows the run displaced or replaced are
// skipped, as is any placement of the event under validation itself.
func (v *Validator) employeeAssignments(employeeID, excludeRef string, rctx *RunContext) []model.Assignment {
	out := make([]model.Assignment, 0, len(v.committed[employeeID]))
	for _, a := range v.committed[employeeID] {
		if a.EventRef == excludeRef || rctx.Displaced(a.EventRef) {
			continue
		}
		if _, replaced := rctx.PendingEvent(a.EventRef); replaced {
			continue
		}
		out = append(out, a)
	}
	for _, a := range rctx.PendingFor(employeeID) {
		if a.EventRef == excludeRef {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sameCorrelation(a, b model.Assignment) bool {
	return a.Correlation != "" && a.Correlation == b.Correlation
}
