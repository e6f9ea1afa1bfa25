package model

// ConstraintKind identifies one of the placement constraints.
type ConstraintKind string

const (
	ConstraintTimeOff             ConstraintKind = "TimeOff"
	ConstraintAvailability        ConstraintKind = "Availability"
	ConstraintRole                ConstraintKind = "Role"
	ConstraintDailyLimit          ConstraintKind = "DailyLimit"
	ConstraintOverlap             ConstraintKind = "Overlap"
	ConstraintDueDate             ConstraintKind = "DueDate"
	ConstraintSupervisorOnRegular ConstraintKind = "SupervisorOnRegular"
)

// Severity splits constraint findings into blocking and advisory.
type Severity string

const (
	SeverityHard Severity = "HARD"
	SeveritySoft Severity = "SOFT"
)

// Violation is a single constraint finding for a candidate placement.
type Violation struct {
	Kind     ConstraintKind
	Severity Severity
	Detail   string
}

// ValidationResult collects every constraint finding for a candidate
// placement. All constraints are always evaluated, so callers see the full
// picture rather than the first failure.
type ValidationResult struct {
	Violations []Violation
}

// OK reports whether the placement has no hard violations.
func (r ValidationResult) OK() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityHard {
			return false
		}
	}
	return true
}

// Hard returns only the hard violations.
func (r ValidationResult) Hard() []Violation {
	hard := make([]Violation, 0)
	for _, v := range r.Violations {
		if v.Severity == SeverityHard {
			hard = append(hard, v)
		}
	}
	return hard
}

// Has reports whether a violation of the given kind is present at any
// severity.
func (r ValidationResult) Has(kind ConstraintKind) bool {
	for _, v := range r.Violations {
		if v.Kind == kind {
			return true
		}
	}
	return false
}
