package constraint

import (
	"sort"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// RunContext carries the working state of one scheduling run: placements not
// yet committed, committed assignments the run has displaced, and per-event
// bump counters. The validator consults it so pending work conflicts exactly
// like committed work. A nil RunContext behaves as an empty one, which is what
// manual validation outside a run uses.
type RunContext struct {
	RunID      string
	pending    map[string]model.Assignment
	displaced  map[string]bool
	bumpCounts map[string]int
}

// NewRunContext returns an empty context for the given run.
func NewRunContext(runID string) *RunContext {
	return &RunContext{
		RunID:      runID,
		pending:    make(map[string]model.Assignment),
		displaced:  make(map[string]bool),
		bumpCounts: make(map[string]int),
	}
}

// Place records a pending assignment for the run. Placing an event again
// replaces its previous pending assignment.
func (c *RunContext) Place(a model.Assignment) {
	c.pending[a.EventRef] = a
}

// Unplace removes and returns the pending assignment for an event.
func (c *RunContext) Unplace(eventRef string) (model.Assignment, bool) {
	a, ok := c.pending[eventRef]
	if ok {
		delete(c.pending, eventRef)
	}
	return a, ok
}

// PendingEvent returns the pending assignment for an event, if any.
func (c *RunContext) PendingEvent(eventRef string) (model.Assignment, bool) {
	if c == nil {
		return model.Assignment{}, false
	}
	a, ok := c.pending[eventRef]
	return a, ok
}

// Pending returns every pending assignment ordered by event reference.
func (c *RunContext) Pending() []model.Assignment {
	if c == nil {
		return nil
	}
	refs := make([]string, 0, len(c.pending))
	for ref := range c.pending {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	out := make([]model.Assignment, 0, len(refs))
	for _, ref := range refs {
		out = append(out, c.pending[ref])
	}
	return out
}

// PendingFor returns the pending assignments held by one employee, ordered by
// event reference.
func (c *RunContext) PendingFor(employeeID string) []model.Assignment {
	if c == nil {
		return nil
	}
	out := make([]model.Assignment, 0)
	for _, a := range c.Pending() {
		if a.EmployeeID == employeeID {
			out = append(out, a)
		}
	}
	return out
}

// Displace marks a committed assignment as removed by this run. The event it
// belonged to no longer occupies its old slot.
func (c *RunContext) Displace(eventRef string) {
	c.displaced[eventRef] = true
}

// Undisplace reverses Displace, restoring the committed assignment to its
// slot. Used when a preemption attempt is abandoned.
func (c *RunContext) Undisplace(eventRef string) {
	delete(c.displaced, eventRef)
}

// Displaced reports whether the run removed the committed assignment for the
// given event.
func (c *RunContext) Displaced(eventRef string) bool {
	if c == nil {
		return false
	}
	return c.displaced[eventRef]
}

// DisplacedRefs returns the references of committed assignments removed by
// this run whose events hold no replacement pending assignment. These rows
// must be deleted when the run commits.
func (c *RunContext) DisplacedRefs() []string {
	if c == nil {
		return nil
	}
	refs := make([]string, 0, len(c.displaced))
	for ref := range c.displaced {
		if _, replaced := c.pending[ref]; !replaced {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}

// RecordBump increments the bump counter for an event.
func (c *RunContext) RecordBump(eventRef string) {
	c.bumpCounts[eventRef]++
}

// Bumps returns how many times this run has bumped the event.
func (c *RunContext) Bumps(eventRef string) int {
	if c == nil {
		return 0
	}
	return c.bumpCounts[eventRef]
}
