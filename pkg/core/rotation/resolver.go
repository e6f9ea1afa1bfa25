package rotation

import (
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Resolver answers who owns a rotation role on a given date. A dated
// exception wins over the weekday assignment; an exception with an empty
// employee ID leaves the role unstaffed that day.
type Resolver struct {
	byWeekday  map[model.RotationRole]map[time.Weekday]string
	exceptions map[string]string
}

// NewResolver indexes the rotation records for lookup.
func NewResolver(assignments []model.RotationAssignment, exceptions []model.RotationException) *Resolver {
	r := &Resolver{
		byWeekday:  make(map[model.RotationRole]map[time.Weekday]string),
		exceptions: make(map[string]string, len(exceptions)),
	}
	for _, a := range assignments {
		if r.byWeekday[a.Role] == nil {
			r.byWeekday[a.Role] = make(map[time.Weekday]string)
		}
		r.byWeekday[a.Role][a.Weekday] = a.EmployeeID
	}
	for _, e := range exceptions {
		r.exceptions[exceptionKey(e.Role, e.Date)] = e.EmployeeID
	}
	return r
}

// OwnerOn returns the employee owning the role on the given date. The second
// return is false when nobody owns the role that day.
func (r *Resolver) OwnerOn(role model.RotationRole, date time.Time) (string, bool) {
	if owner, ok := r.exceptions[exceptionKey(role, date)]; ok {
		return owner, owner != ""
	}
	owner, ok := r.byWeekday[role][model.Midnight(date).Weekday()]
	if !ok || owner == "" {
		return "", false
	}
	return owner, true
}

func exceptionKey(role model.RotationRole, date time.Time) string {
	return string(role) + "|" + model.Midnight(date).Format("2006-01-02")
}
