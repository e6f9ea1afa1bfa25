package model

// Snapshot is the complete, consistent data set a scheduling run works from.
// It is loaded once inside the run's transaction and never mutated by the
// engine; run-scoped decisions live alongside it instead.
type Snapshot struct {
	Window              DateRange
	Employees           []Employee
	Events              []Event
	Assignments         []Assignment
	Patterns            []WeeklyPattern
	DateOverrides       []DateOverride
	RangeOverrides      []RangeOverride
	TimeOff             []TimeOff
	RotationAssignments []RotationAssignment
	RotationExceptions  []RotationException
}

// Event returns the event with the given reference.
func (s *Snapshot) Event(ref string) (Event, bool) {
	for _, ev := range s.Events {
		if ev.Reference == ref {
			return ev, true
		}
	}
	return Event{}, false
}

// Employee returns the employee with the given ID.
func (s *Snapshot) Employee(id string) (Employee, bool) {
	for _, emp := range s.Employees {
		if emp.ID == id {
			return emp, true
		}
	}
	return Employee{}, false
}
