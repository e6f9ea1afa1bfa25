package engine

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Standard floor times. Demo categories run at fixed starts; Primary and
// DigitalMaintenance setups rotate through their slot lists so simultaneous
// events stagger, and teardowns stack in 15-minute steps after close.
type clockTime struct {
	hour, minute int
}

var (
	juiceBarStart     = clockTime{9, 30}
	primaryStarts     = []clockTime{{10, 0}, {10, 15}, {10, 30}, {10, 45}}
	supervisorStart   = clockTime{13, 0}
	kioskStart        = clockTime{9, 0}
	maintenanceStarts = []clockTime{{8, 0}, {8, 15}, {8, 30}, {8, 45}}
	teardownStart     = clockTime{17, 30}
	otherStarts       = []clockTime{{11, 0}, {14, 0}}
)

const teardownStep = 15 * time.Minute

func (c clockTime) on(date time.Time) time.Time {
	return model.At(date, c.hour, c.minute)
}

// weekdayDates lists the working days inside the half-open window in
// ascending order. Weekends are never offered, and blackout dates are
// skipped.
func weekdayDates(window model.DateRange, blackouts map[time.Time]bool) []time.Time {
	start := model.Midnight(window.Start)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   start,
		Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
	})
	if err != nil {
		// The options are static, so this cannot happen
		return nil
	}

	// Between treats both bounds as inclusive; the window end is exclusive
	last := model.Midnight(window.End).Add(-24 * time.Hour)
	dates := make([]time.Time, 0)
	for _, d := range rule.Between(start, last, true) {
		d = model.Midnight(d)
		if blackouts[d] {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// startTimesFor returns the candidate start times for an event on a date, in
// preference order. Most categories have exactly one; Other has a fallback.
func (e *Engine) startTimesFor(ev model.Event, date time.Time) []time.Time {
	switch ev.Category {
	case model.CategoryJuiceBar:
		return []time.Time{juiceBarStart.on(date)}
	case model.CategoryPrimary:
		slot := primaryStarts[e.countOn(date, model.CategoryPrimary)%len(primaryStarts)]
		return []time.Time{slot.on(date)}
	case model.CategorySupervisor:
		return []time.Time{supervisorStart.on(date)}
	case model.CategoryKioskSetup:
		return []time.Time{kioskStart.on(date)}
	case model.CategoryDigitalMaintenance:
		if ev.Teardown {
			n := e.countTeardownsOn(date)
			return []time.Time{teardownStart.on(date).Add(time.Duration(n) * teardownStep)}
		}
		slot := maintenanceStarts[e.countSetupsOn(date)%len(maintenanceStarts)]
		return []time.Time{slot.on(date)}
	default:
		times := make([]time.Time, 0, len(otherStarts))
		for _, c := range otherStarts {
			times = append(times, c.on(date))
		}
		return times
	}
}

// countOn counts live assignments of a category on a date, committed and
// pending, skipping rows this run has displaced or replaced.
func (e *Engine) countOn(date time.Time, category model.EventCategory) int {
	n := 0
	e.eachLiveAssignment(func(a model.Assignment) {
		if a.Category == category && model.SameDate(a.StartAt, date) {
			n++
		}
	})
	return n
}

// Teardown steps start after close, setups in the morning; the clock alone
// tells them apart.
func (e *Engine) countTeardownsOn(date time.Time) int {
	n := 0
	e.eachLiveAssignment(func(a model.Assignment) {
		if a.Category == model.CategoryDigitalMaintenance && model.SameDate(a.StartAt, date) && a.StartAt.Hour() >= teardownStart.hour {
			n++
		}
	})
	return n
}

func (e *Engine) countSetupsOn(date time.Time) int {
	n := 0
	e.eachLiveAssignment(func(a model.Assignment) {
		if a.Category == model.CategoryDigitalMaintenance && model.SameDate(a.StartAt, date) && a.StartAt.Hour() < teardownStart.hour {
			n++
		}
	})
	return n
}

// eachLiveAssignment visits every assignment that currently occupies a slot:
// committed rows the run has not displaced or replaced, then this run's
// pending placements in reference order.
func (e *Engine) eachLiveAssignment(visit func(model.Assignment)) {
	for _, a := range e.snap.Assignments {
		if e.rctx.Displaced(a.EventRef) {
			continue
		}
		if _, replaced := e.rctx.PendingEvent(a.EventRef); replaced {
			continue
		}
		visit(a)
	}
	for _, a := range e.rctx.Pending() {
		visit(a)
	}
}
