package constraint

import (
	"sort"
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Candidate pairs an employee with their validation result for a proposed
// placement.
type Candidate struct {
	Employee model.Employee
	Result   model.ValidationResult
}

// EligibleEmployees validates every active employee against the proposed
// placement and returns those with no hard violations. Soft findings are kept
// on each candidate so callers can surface them. Results are ordered by
// employee name, then ID.
func EligibleEmployees(v *Validator, employees []model.Employee, event model.Event, startAt time.Time, rctx *RunContext) []Candidate {
	eligible := make([]Candidate, 0)
	for _, emp := range employees {
		if !emp.Active {
			continue
		}
		result := v.Validate(event, emp, startAt, rctx)
		if result.OK() {
			eligible = append(eligible, Candidate{Employee: emp, Result: result})
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Employee.Name != eligible[j].Employee.Name {
			return eligible[i].Employee.Name < eligible[j].Employee.Name
		}
		return eligible[i].Employee.ID < eligible[j].Employee.ID
	})
	return eligible
}
