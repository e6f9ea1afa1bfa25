package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// candidateFn produces the ordered employees to try for one date.
type candidateFn func(date time.Time) []model.Employee

// primaryTierOrder is the wave 2 sub-pass order. ClubSupervisor-tier
// employees are left out: they may hold a Primary when a human insists, but
// the engine does not volunteer them for regular floor work.
var primaryTierOrder = []model.RoleTier{
	model.TierLeadSpecialist,
	model.TierSpecialistJuicer,
	model.TierBaseWorker,
}

// runJuiceBarWave drains wave 1. Juice bars go to the date's rotation juicer
// when possible, then fall back through the juice-capable tiers. The only
// sanctioned cross-category preemption lives here: a juice bar may displace a
// Primary placement held by the employee it needs.
func (e *Engine) runJuiceBarWave() {
	for {
		ev, ok := e.popQueue(1)
		if !ok {
			return
		}
		e.placeJuiceBar(ev)
	}
}

func (e *Engine) placeJuiceBar(ev model.Event) {
	dates := e.datesFor(ev)
	log := newAttemptLog()
	if len(dates) == 0 {
		log.noteText("no candidate weekday inside the placement window")
		e.reject(ev, log.reasons())
		return
	}

	if !e.shortNotice(dates) {
		if _, ok := e.scanClean(ev, dates, e.juiceCandidates, log); ok {
			return
		}
	}

	for _, date := range dates {
		startAt := juiceBarStart.on(date)
		for _, emp := range e.juiceBumpCandidates(date) {
			if _, ok := e.tryBump(ev, emp, startAt, log); ok {
				return
			}
		}
	}
	e.reject(ev, log.reasons())
}

// juiceCandidates orders one date's juice-bar candidates: the rotation owner,
// then juicers, then the lead tiers.
func (e *Engine) juiceCandidates(date time.Time) []model.Employee {
	return e.rotationFirst(model.RotationJuicer, date,
		model.TierSpecialistJuicer, model.TierLeadSpecialist, model.TierClubSupervisor)
}

// juiceBumpCandidates orders the preemption pass for one date: employees with
// no Primary that day first (they can only take a clean seat), then Primary
// holders with the latest-due Primary first, keeping the most urgent
// placements untouched.
func (e *Engine) juiceBumpCandidates(date time.Time) []model.Employee {
	type holder struct {
		emp model.Employee
		due time.Time
		ref string
	}
	var free []model.Employee
	var holders []holder
	for _, emp := range e.juiceCandidates(date) {
		a, ok := e.primaryOn(emp.ID, date)
		if !ok {
			free = append(free, emp)
			continue
		}
		due := model.Midnight(a.StartAt)
		if held, found := e.snap.Event(a.EventRef); found {
			due = model.Midnight(held.DueDate)
		}
		holders = append(holders, holder{emp: emp, due: due, ref: a.EventRef})
	}
	sort.SliceStable(holders, func(i, j int) bool {
		if !holders[i].due.Equal(holders[j].due) {
			return holders[i].due.After(holders[j].due)
		}
		return holders[i].ref < holders[j].ref
	})
	out := free
	for _, h := range holders {
		out = append(out, h.emp)
	}
	return out
}

// primaryOn returns the employee's live Primary assignment on the date.
func (e *Engine) primaryOn(employeeID string, date time.Time) (model.Assignment, bool) {
	var found model.Assignment
	ok := false
	e.eachLiveAssignment(func(a model.Assignment) {
		if ok || a.EmployeeID != employeeID || a.Category != model.CategoryPrimary {
			return
		}
		if model.SameDate(a.StartAt, date) {
			found, ok = a, true
		}
	})
	return found, ok
}

// runPrimaryWave drains wave 2. Primary events go through three clean tier
// passes and then a preemption pass; each placed Primary immediately pulls
// its same-correlation Supervisor event in at the fixed paired time.
// Supervisor events whose Primary is not part of this run are handled once no
// Primary work remains.
func (e *Engine) runPrimaryWave() {
	for {
		e.splitPairQueue()
		primaries := e.queues[2]
		e.queues[2] = nil

		if len(primaries) == 0 {
			if len(e.pairQueue) == 0 {
				return
			}
			sup := e.pairQueue[0]
			e.pairQueue = e.pairQueue[1:]
			e.placeSupervisorEvent(sup)
			continue
		}

		sortEvents(primaries)
		logs := make(map[string]*attemptLog, len(primaries))
		alog := func(ev model.Event) *attemptLog {
			if logs[ev.Reference] == nil {
				logs[ev.Reference] = newAttemptLog()
			}
			return logs[ev.Reference]
		}

		remaining := primaries
		for _, tier := range primaryTierOrder {
			var next []model.Event
			for _, ev := range remaining {
				dates := e.datesFor(ev)
				if len(dates) == 0 || e.shortNotice(dates) {
					next = append(next, ev)
					continue
				}
				if e.tryCleanPrimary(ev, dates, tier, alog(ev)) {
					continue
				}
				next = append(next, ev)
			}
			remaining = next
		}

		for _, ev := range remaining {
			dates := e.datesFor(ev)
			if len(dates) == 0 {
				alog(ev).noteText("no candidate weekday inside the placement window")
				e.reject(ev, alog(ev).reasons())
				continue
			}
			if e.tryBumpPrimary(ev, dates, alog(ev)) {
				continue
			}
			e.reject(ev, alog(ev).reasons())
		}
	}
}

// splitPairQueue moves Supervisor events out of the wave 2 queue into the
// pairing queue, where placed Primaries pick them up by correlation.
func (e *Engine) splitPairQueue() {
	var primaries []model.Event
	for _, ev := range e.queues[2] {
		if ev.Category == model.CategorySupervisor {
			e.pairQueue = append(e.pairQueue, ev)
			continue
		}
		primaries = append(primaries, ev)
	}
	e.queues[2] = primaries
	sortEvents(e.pairQueue)
}

// tryCleanPrimary scans one tier for an open Primary seat. Juicer-tier
// employees rostered for the juice-bar rotation that day are passed over so
// they stay free for juice work.
func (e *Engine) tryCleanPrimary(ev model.Event, dates []time.Time, tier model.RoleTier, log *attemptLog) bool {
	for _, date := range dates {
		for _, startAt := range e.startTimesFor(ev, date) {
			for _, emp := range e.candidatesOfTier(tier) {
				if tier == model.TierSpecialistJuicer && e.isJuicerOwner(emp.ID, date) {
					continue
				}
				result := e.validator.Validate(ev, emp, startAt, e.rctx)
				if placeable(result) {
					placed := e.place(ev, emp, startAt, model.ActionPlaced,
						fmt.Sprintf("clean placement, %s tier", tier))
					e.attemptPairing(ev, placed)
					return true
				}
				log.note(result)
			}
		}
	}
	return false
}

// tryBumpPrimary walks the tier ladder again, this time displacing whatever
// the preemption rules allow.
func (e *Engine) tryBumpPrimary(ev model.Event, dates []time.Time, log *attemptLog) bool {
	for _, tier := range primaryTierOrder {
		for _, date := range dates {
			for _, startAt := range e.startTimesFor(ev, date) {
				for _, emp := range e.candidatesOfTier(tier) {
					if tier == model.TierSpecialistJuicer && e.isJuicerOwner(emp.ID, date) {
						continue
					}
					if placed, ok := e.tryBump(ev, emp, startAt, log); ok {
						e.attemptPairing(ev, placed)
						return true
					}
				}
			}
		}
	}
	return false
}

// attemptPairing pulls the placed Primary's same-correlation Supervisor event
// out of the pairing queue and places it at the fixed paired time.
func (e *Engine) attemptPairing(primary model.Event, placed model.Assignment) {
	if primary.Correlation == "" {
		return
	}
	for i, sup := range e.pairQueue {
		if sup.Correlation != primary.Correlation {
			continue
		}
		e.pairQueue = append(e.pairQueue[:i], e.pairQueue[i+1:]...)
		e.placePairedSupervisor(sup, placed)
		return
	}
}

// placePairedSupervisor seats sup at the paired midday time on its Primary's
// date: the Primary's own employee first, then the substitution ladder.
func (e *Engine) placePairedSupervisor(sup model.Event, anchor model.Assignment) {
	date := model.Midnight(anchor.StartAt)
	startAt := supervisorStart.on(date)
	log := newAttemptLog()
	for _, emp := range e.pairCandidates(anchor, date) {
		result := e.validator.Validate(sup, emp, startAt, e.rctx)
		if placeable(result) {
			detail := fmt.Sprintf("paired with %s", anchor.EventRef)
			if emp.ID != anchor.EmployeeID {
				detail += " (substitute)"
			}
			e.place(sup, emp, startAt, model.ActionPaired, detail)
			return
		}
		log.note(result)
	}
	log.noteText(fmt.Sprintf("pairing failed: no eligible employee at the paired time on %s",
		date.Format("2006-01-02")))
	e.reject(sup, log.reasons())
}

// pairCandidates orders substitutes for a paired Supervisor placement: the
// Primary's employee, the date's PrimaryLead rotation owner, then the
// supervisory tiers.
func (e *Engine) pairCandidates(anchor model.Assignment, date time.Time) []model.Employee {
	var out []model.Employee
	seen := make(map[string]bool)
	add := func(emp model.Employee) {
		if seen[emp.ID] {
			return
		}
		seen[emp.ID] = true
		out = append(out, emp)
	}
	if emp, found := e.snap.Employee(anchor.EmployeeID); found && emp.Active {
		add(emp)
	}
	if ownerID, ok := e.rotation.OwnerOn(model.RotationPrimaryLead, date); ok {
		if emp, found := e.snap.Employee(ownerID); found && emp.Active {
			add(emp)
		}
	}
	for _, emp := range e.tieredCandidates(model.TierClubSupervisor, model.TierLeadSpecialist) {
		add(emp)
	}
	return out
}

// placeSupervisorEvent handles a Supervisor event whose Primary was not
// placed by this run: it pairs against an already committed Primary when one
// exists, otherwise the event stands alone.
func (e *Engine) placeSupervisorEvent(sup model.Event) {
	if sup.Correlation != "" {
		if anchor, ok := e.findPlacedPrimary(sup.Correlation); ok {
			e.placePairedSupervisor(sup, anchor)
			return
		}
		e.reject(sup, []string{
			fmt.Sprintf("pairing failed: no placed Primary event with correlation %s", sup.Correlation),
		})
		return
	}
	e.placeStandaloneSupervisor(sup)
}

// findPlacedPrimary returns the live Primary assignment carrying the
// correlation, preferring this run's own placements.
func (e *Engine) findPlacedPrimary(correlation string) (model.Assignment, bool) {
	for _, a := range e.rctx.Pending() {
		if a.Category == model.CategoryPrimary && a.Correlation == correlation {
			return a, true
		}
	}
	var found model.Assignment
	ok := false
	e.eachLiveAssignment(func(a model.Assignment) {
		if ok || a.Category != model.CategoryPrimary || a.Correlation != correlation {
			return
		}
		found, ok = a, true
	})
	return found, ok
}

func (e *Engine) placeStandaloneSupervisor(sup model.Event) {
	dates := e.datesFor(sup)
	log := newAttemptLog()
	if len(dates) == 0 {
		log.noteText("no candidate weekday inside the placement window")
		e.reject(sup, log.reasons())
		return
	}
	candidates := func(time.Time) []model.Employee {
		return e.tieredCandidates(model.TierClubSupervisor, model.TierLeadSpecialist)
	}
	if !e.shortNotice(dates) {
		if _, ok := e.scanClean(sup, dates, candidates, log); ok {
			return
		}
	}
	if _, ok := e.scanBump(sup, dates, candidates, log); ok {
		return
	}
	e.reject(sup, log.reasons())
}

// runStandardWave drains one of the post-Primary waves with its candidate
// policy.
func (e *Engine) runStandardWave(wave int) {
	for {
		ev, ok := e.popQueue(wave)
		if !ok {
			return
		}
		e.placeStandard(ev)
	}
}

func (e *Engine) placeStandard(ev model.Event) {
	dates := e.datesFor(ev)
	log := newAttemptLog()
	if len(dates) == 0 {
		log.noteText("no candidate weekday inside the placement window")
		e.reject(ev, log.reasons())
		return
	}
	candidates := e.waveCandidates(ev.Category)
	if !e.shortNotice(dates) {
		if _, ok := e.scanClean(ev, dates, candidates, log); ok {
			return
		}
	}
	if _, ok := e.scanBump(ev, dates, candidates, log); ok {
		return
	}
	e.reject(ev, log.reasons())
}

// waveCandidates returns the candidate policy for the post-Primary
// categories: who is tried, in what order, per date.
func (e *Engine) waveCandidates(category model.EventCategory) candidateFn {
	switch category {
	case model.CategoryKioskSetup:
		return func(date time.Time) []model.Employee {
			return e.rotationFirst(model.RotationPrimaryLead, date,
				model.TierLeadSpecialist, model.TierClubSupervisor)
		}
	case model.CategoryDigitalMaintenance:
		return func(time.Time) []model.Employee {
			return e.tieredCandidates(model.TierLeadSpecialist, model.TierClubSupervisor)
		}
	default:
		return func(time.Time) []model.Employee {
			return e.tieredCandidates(model.TierClubSupervisor, model.TierLeadSpecialist)
		}
	}
}

// scanClean walks dates, start times and candidates looking for a seat that
// validates with nothing in the way.
func (e *Engine) scanClean(ev model.Event, dates []time.Time, candidates candidateFn, log *attemptLog) (model.Assignment, bool) {
	for _, date := range dates {
		for _, startAt := range e.startTimesFor(ev, date) {
			for _, emp := range candidates(date) {
				result := e.validator.Validate(ev, emp, startAt, e.rctx)
				if placeable(result) {
					return e.place(ev, emp, startAt, model.ActionPlaced, "clean placement"), true
				}
				log.note(result)
			}
		}
	}
	return model.Assignment{}, false
}

// scanBump repeats the walk with preemption allowed.
func (e *Engine) scanBump(ev model.Event, dates []time.Time, candidates candidateFn, log *attemptLog) (model.Assignment, bool) {
	for _, date := range dates {
		for _, startAt := range e.startTimesFor(ev, date) {
			for _, emp := range candidates(date) {
				if placed, ok := e.tryBump(ev, emp, startAt, log); ok {
					return placed, true
				}
			}
		}
	}
	return model.Assignment{}, false
}
