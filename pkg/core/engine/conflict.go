package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// victimMember is one assignment inside a displacement group, joined with its
// event so the engine can relocate or requeue it.
type victimMember struct {
	assignment model.Assignment
	event      model.Event
	pending    bool // placed by this run rather than committed earlier
}

// victimGroup is the unit of displacement. A correlated Primary/Supervisor
// pair moves together so the pairing holds; everything else moves alone.
// Members are ordered lead first: lowest wave, Primary before its paired
// Supervisor, then reference, so a pair is always anchored on its Primary.
type victimGroup struct {
	key     string
	members []victimMember
}

func (g victimGroup) lead() victimMember {
	return g.members[0]
}

func (g victimGroup) wave() int {
	return waveOf(g.lead().assignment.Category)
}

func (g victimGroup) refs() []string {
	refs := make([]string, 0, len(g.members))
	for _, m := range g.members {
		refs = append(refs, m.assignment.EventRef)
	}
	return refs
}

// tryBump attempts to seat ev on emp at startAt, displacing conflicting
// placements where the preemption rules allow. The no-conflict case places
// directly, which is what short-notice mode leans on.
func (e *Engine) tryBump(ev model.Event, emp model.Employee, startAt time.Time, log *attemptLog) (model.Assignment, bool) {
	result := e.validator.Validate(ev, emp, startAt, e.rctx)
	if placeable(result) {
		return e.place(ev, emp, startAt, model.ActionPlaced, "placed without preemption"), true
	}
	log.note(result)
	if !bumpableFailure(result) {
		return model.Assignment{}, false
	}

	conflicts := e.validator.ConflictingAssignments(ev, emp, startAt, e.rctx)
	if len(conflicts) == 0 {
		return model.Assignment{}, false
	}
	groups, ok := e.victimGroups(ev, conflicts, log)
	if !ok {
		return model.Assignment{}, false
	}

	lifted := e.liftGroups(groups)
	check := e.validator.Validate(ev, emp, startAt, e.rctx)
	if !placeable(check) {
		// Something beyond the lifted conflicts still blocks the seat.
		e.restoreGroups(lifted)
		log.note(check)
		return model.Assignment{}, false
	}

	var refs []string
	for _, g := range groups {
		refs = append(refs, g.refs()...)
	}
	placed := e.place(ev, emp, startAt, model.ActionPlaced,
		fmt.Sprintf("placed after bumping %s", strings.Join(refs, ", ")))
	for _, g := range groups {
		e.disposeVictims(ev, g)
	}
	return placed, true
}

// bumpableFailure reports whether preemption can cure the validation: every
// hard finding must be a conflict (Overlap or DailyLimit), and the employee
// must actually be available that day.
func bumpableFailure(result model.ValidationResult) bool {
	if result.Has(model.ConstraintAvailability) {
		return false
	}
	hard := result.Hard()
	if len(hard) == 0 {
		return false
	}
	for _, v := range hard {
		if v.Kind != model.ConstraintOverlap && v.Kind != model.ConstraintDailyLimit {
			return false
		}
	}
	return true
}

// victimGroups assembles the conflicting assignments into displacement units
// and verifies every member may be bumped. A false return means preemption is
// off the table for this seat.
func (e *Engine) victimGroups(ev model.Event, conflicts []model.Assignment, log *attemptLog) ([]victimGroup, bool) {
	keyOf := func(a model.Assignment) string {
		if a.Correlation != "" {
			return "corr:" + a.Correlation
		}
		return "ref:" + a.EventRef
	}

	grouped := make(map[string][]model.Assignment)
	var keys []string
	for _, a := range conflicts {
		k := keyOf(a)
		if _, seen := grouped[k]; !seen {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], a)
	}

	// A correlated mate moves with its group even when it does not itself
	// conflict: a Primary never leaves its paired Supervisor behind.
	e.eachLiveAssignment(func(a model.Assignment) {
		if a.Correlation == "" {
			return
		}
		members, seen := grouped[keyOf(a)]
		if !seen {
			return
		}
		for _, m := range members {
			if m.EventRef == a.EventRef {
				return
			}
		}
		grouped[keyOf(a)] = append(grouped[keyOf(a)], a)
	})

	incoming := waveOf(ev.Category)
	groups := make([]victimGroup, 0, len(keys))
	for _, k := range keys {
		g := victimGroup{key: k}
		for _, a := range grouped[k] {
			held, found := e.snap.Event(a.EventRef)
			if !found {
				log.noteText(fmt.Sprintf("cannot bump %s: event not in run scope", a.EventRef))
				return nil, false
			}
			_, pending := e.rctx.PendingEvent(a.EventRef)
			g.members = append(g.members, victimMember{assignment: a, event: held, pending: pending})
		}
		sort.Slice(g.members, func(i, j int) bool {
			wi := waveOf(g.members[i].assignment.Category)
			wj := waveOf(g.members[j].assignment.Category)
			if wi != wj {
				return wi < wj
			}
			pi := g.members[i].assignment.Category == model.CategoryPrimary
			pj := g.members[j].assignment.Category == model.CategoryPrimary
			if pi != pj {
				return pi
			}
			return g.members[i].assignment.EventRef < g.members[j].assignment.EventRef
		})
		if g.wave() < incoming {
			log.noteText(fmt.Sprintf("cannot bump %s: holds a higher placement priority", g.lead().assignment.EventRef))
			return nil, false
		}
		if ev.Category == model.CategoryJuiceBar && g.lead().assignment.Category != model.CategoryPrimary {
			log.noteText(fmt.Sprintf("cannot bump %s: juice bars may only displace Primary placements", g.lead().assignment.EventRef))
			return nil, false
		}
		for _, m := range g.members {
			if reason := e.bumpEligibility(m); reason != "" {
				log.noteText(reason)
				return nil, false
			}
		}
		groups = append(groups, g)
	}

	// Dispose lowest priority first: highest wave, then latest due date, so
	// the most urgent work keeps its spot longest.
	sort.Slice(groups, func(i, j int) bool {
		if wi, wj := groups[i].wave(), groups[j].wave(); wi != wj {
			return wi > wj
		}
		di := model.Midnight(groups[i].lead().event.DueDate)
		dj := model.Midnight(groups[j].lead().event.DueDate)
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return groups[i].key < groups[j].key
	})
	return groups, true
}

// bumpEligibility explains why a member may not be displaced, or returns "".
func (e *Engine) bumpEligibility(m victimMember) string {
	ref := m.assignment.EventRef
	if days := model.DaysUntil(e.today, model.Midnight(m.event.DueDate)); days < e.params.MinDaysToDueDate {
		return fmt.Sprintf("cannot bump %s: due in %d day(s)", ref, days)
	}
	if e.rctx.Bumps(ref) >= e.params.MaxBumpsPerEvent {
		return fmt.Sprintf("cannot bump %s: bump limit reached", ref)
	}
	return ""
}

// liftGroups takes every member out of its slot and returns them in lift
// order for a possible restore.
func (e *Engine) liftGroups(groups []victimGroup) []victimMember {
	var lifted []victimMember
	for _, g := range groups {
		for _, m := range g.members {
			if m.pending {
				e.rctx.Unplace(m.assignment.EventRef)
			} else {
				e.rctx.Displace(m.assignment.EventRef)
			}
			lifted = append(lifted, m)
		}
	}
	return lifted
}

// restoreGroups puts lifted members back where they were.
func (e *Engine) restoreGroups(lifted []victimMember) {
	for _, m := range lifted {
		if m.pending {
			e.rctx.Place(m.assignment)
		} else {
			e.rctx.Undisplace(m.assignment.EventRef)
		}
	}
}

// disposeVictims finds a displaced group its new home: a forward move to an
// earlier weekday for the same employees when one validates, otherwise back
// to the wave queue for another full placement attempt.
func (e *Engine) disposeVictims(cause model.Event, g victimGroup) {
	if e.forwardMove(cause, g) {
		return
	}
	for _, m := range g.members {
		e.rctx.RecordBump(m.assignment.EventRef)
		e.outcome.Bumped = append(e.outcome.Bumped, BumpRecord{
			EventRef:    m.assignment.EventRef,
			EmployeeID:  m.assignment.EmployeeID,
			DisplacedBy: cause.Reference,
			From:        m.assignment.StartAt,
		})
		e.outcome.log(model.ActionBumped, m.assignment.EventRef, m.assignment.EmployeeID,
			m.assignment.StartAt, fmt.Sprintf("displaced by %s, queued for replacement", cause.Reference))
		e.logger.Debug("assignment bumped back to queue",
			zap.String("event", m.assignment.EventRef),
			zap.String("displacedBy", cause.Reference),
		)
		e.requeue(m.event)
	}
}

// forwardMove relocates the group to an earlier weekday with the same
// employees. Every member must validate cleanly on the new date.
func (e *Engine) forwardMove(cause model.Event, g victimGroup) bool {
	lead := g.lead()
	currentDate := model.Midnight(lead.assignment.StartAt)
	lower := model.Midnight(lead.event.EarliestStart)
	if e.today.After(lower) {
		lower = e.today
	}
	for _, date := range e.dates {
		if date.Before(lower) {
			continue
		}
		if !date.Before(currentDate) {
			break
		}
		moves, ok := e.groupMoveAt(g, date)
		if !ok {
			continue
		}
		for i, m := range g.members {
			to := moves[i]
			e.rctx.RecordBump(m.assignment.EventRef)
			e.outcome.Bumped = append(e.outcome.Bumped, BumpRecord{
				EventRef:    m.assignment.EventRef,
				EmployeeID:  m.assignment.EmployeeID,
				DisplacedBy: cause.Reference,
				From:        m.assignment.StartAt,
				To:          &to,
			})
			emp, _ := e.snap.Employee(m.assignment.EmployeeID)
			e.place(m.event, emp, to, model.ActionRelocated,
				fmt.Sprintf("displaced by %s, moved from %s", cause.Reference,
					m.assignment.StartAt.Format("2006-01-02 15:04")))
		}
		return true
	}
	return false
}

// groupMoveAt checks whether every member of the group fits the date and
// returns their new start times. Correlated members exempt each other from
// the conflict checks, so members validate independently.
func (e *Engine) groupMoveAt(g victimGroup, date time.Time) ([]time.Time, bool) {
	moves := make([]time.Time, 0, len(g.members))
	for _, m := range g.members {
		emp, found := e.snap.Employee(m.assignment.EmployeeID)
		if !found || !emp.Active {
			return nil, false
		}
		seated := false
		for _, startAt := range e.startTimesFor(m.event, date) {
			if placeable(e.validator.Validate(m.event, emp, startAt, e.rctx)) {
				moves = append(moves, startAt)
				seated = true
				break
			}
		}
		if !seated {
			return nil, false
		}
	}
	return moves, true
}
