package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/constraint"
	"github.com/mfleming/demoroster/pkg/core/model"
	"github.com/mfleming/demoroster/pkg/core/rotation"
)

// WaveSink receives each wave's placements once the wave has settled. The
// service layer uses it to persist pending assignments wave by wave; tests use
// it to observe wave boundaries.
type WaveSink interface {
	FlushWave(wave int, placed []model.Assignment) error
}

// Engine places the unscheduled events of one snapshot across five priority
// waves. It is pure: all reads come from the snapshot, all writes go to the
// run context, and two runs over the same snapshot produce identical output.
type Engine struct {
	snap      *model.Snapshot
	validator *constraint.Validator
	rotation  *rotation.Resolver
	params    Params
	today     time.Time
	logger    *zap.Logger

	dates  []time.Time // weekdays inside the window, blackouts removed
	byTier map[model.RoleTier][]model.Employee

	rctx       *constraint.RunContext
	outcome    *Outcome
	queues     [6][]model.Event // indexed by wave number, 0 unused
	pairQueue  []model.Event    // Supervisor events waiting for their Primary
	wavePlaced []string         // event refs placed during the current wave
}

// New prepares an engine over the snapshot. now pins "today" for the whole
// run so short-notice and due-date arithmetic is reproducible.
func New(snap *model.Snapshot, params Params, now time.Time, logger *zap.Logger) *Engine {
	byTier := make(map[model.RoleTier][]model.Employee)
	for _, emp := range snap.Employees {
		if !emp.Active {
			continue
		}
		byTier[emp.Tier] = append(byTier[emp.Tier], emp)
	}
	for _, emps := range byTier {
		sort.Slice(emps, func(i, j int) bool { return emps[i].ID < emps[j].ID })
	}

	return &Engine{
		snap:      snap,
		validator: constraint.NewValidator(snap),
		rotation:  rotation.NewResolver(snap.RotationAssignments, snap.RotationExceptions),
		params:    params,
		today:     model.Midnight(now),
		logger:    logger,
		dates:     weekdayDates(snap.Window, params.Blackouts),
		byTier:    byTier,
	}
}

// Run executes the five waves, flushing each wave's placements through sink,
// and returns the outcome. rctx must be fresh; it ends up holding the final
// pending set the caller promotes on commit.
func (e *Engine) Run(rctx *constraint.RunContext, sink WaveSink) (*Outcome, error) {
	e.rctx = rctx
	e.outcome = &Outcome{}
	e.buildQueues()

	e.logger.Info("scheduling run loaded",
		zap.String("window", e.snap.Window.Key()),
		zap.Int("queuedEvents", e.queuedCount()),
		zap.Int("activeEmployees", e.activeCount()),
	)

	for wave := 1; wave <= 5; wave++ {
		e.wavePlaced = nil
		e.logger.Debug("starting wave", zap.Int("wave", wave), zap.Int("queued", len(e.queues[wave])))
		switch wave {
		case 1:
			e.runJuiceBarWave()
		case 2:
			e.runPrimaryWave()
		default:
			e.runStandardWave(wave)
		}
		if err := e.flushWave(wave, sink); err != nil {
			return nil, fmt.Errorf("failed to flush wave %d: %w", wave, err)
		}
	}

	e.outcome.Placed = e.rctx.Pending()
	e.logger.Info("scheduling run finished",
		zap.Int("placed", len(e.outcome.Placed)),
		zap.Int("bumped", len(e.outcome.Bumped)),
		zap.Int("rejected", len(e.outcome.Rejected)),
	)
	return e.outcome, nil
}

// buildQueues sorts the snapshot's placeable events into their wave queues.
// An event is placeable when it is not already scheduled, not suppressed, has
// no live committed assignment and its date bounds intersect the window.
func (e *Engine) buildQueues() {
	committed := make(map[string]bool, len(e.snap.Assignments))
	for _, a := range e.snap.Assignments {
		committed[a.EventRef] = true
	}

	var queued []model.Event
	for _, ev := range e.snap.Events {
		if ev.Condition == model.ConditionScheduled || ev.SuppressAuto {
			continue
		}
		if committed[ev.Reference] {
			continue
		}
		if !model.Midnight(ev.EarliestStart).Before(e.snap.Window.End) {
			continue
		}
		if !model.Midnight(ev.DueDate).After(e.snap.Window.Start) {
			continue
		}
		queued = append(queued, ev)
	}
	sortEvents(queued)
	for _, ev := range queued {
		e.queues[waveOf(ev.Category)] = append(e.queues[waveOf(ev.Category)], ev)
	}
}

// waveOf maps a category to its placement wave.
func waveOf(category model.EventCategory) int {
	switch category {
	case model.CategoryJuiceBar:
		return 1
	case model.CategoryPrimary, model.CategorySupervisor:
		return 2
	case model.CategoryKioskSetup:
		return 3
	case model.CategoryDigitalMaintenance:
		return 4
	default:
		return 5
	}
}

// sortEvents orders events most urgent first: due date ascending, reference
// as the stable tiebreak.
func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		di, dj := model.Midnight(events[i].DueDate), model.Midnight(events[j].DueDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return events[i].Reference < events[j].Reference
	})
}

// popQueue removes and returns the most urgent queued event for the wave.
func (e *Engine) popQueue(wave int) (model.Event, bool) {
	q := e.queues[wave]
	if len(q) == 0 {
		return model.Event{}, false
	}
	sortEvents(q)
	e.queues[wave] = q[1:]
	return q[0], true
}

// requeue sends a displaced event back to its wave's queue for another full
// placement attempt.
func (e *Engine) requeue(ev model.Event) {
	e.queues[waveOf(ev.Category)] = append(e.queues[waveOf(ev.Category)], ev)
}

// datesFor returns the candidate dates for an event: window weekdays from
// max(earliestStart, today) up to but excluding the due date.
func (e *Engine) datesFor(ev model.Event) []time.Time {
	lower := model.Midnight(ev.EarliestStart)
	if e.today.After(lower) {
		lower = e.today
	}
	due := model.Midnight(ev.DueDate)
	var out []time.Time
	for _, d := range e.dates {
		if d.Before(lower) {
			continue
		}
		if !d.Before(due) {
			break
		}
		out = append(out, d)
	}
	return out
}

// shortNotice reports whether the event's first candidate date is close
// enough to today that empty-slot search is not worth the time.
func (e *Engine) shortNotice(dates []time.Time) bool {
	if len(dates) == 0 {
		return false
	}
	return model.DaysUntil(e.today, dates[0]) <= e.params.ShortNoticeDays
}

// placeable reports whether a validation allows automatic placement. The
// Availability finding is soft, but the engine never places someone on a day
// they are marked unavailable; only a human override can.
func placeable(result model.ValidationResult) bool {
	return result.OK() && !result.Has(model.ConstraintAvailability)
}

// place records a pending assignment for the event and logs the decision.
func (e *Engine) place(ev model.Event, emp model.Employee, startAt time.Time, action model.RunAction, detail string) model.Assignment {
	a := model.Assignment{
		EventRef:    ev.Reference,
		EmployeeID:  emp.ID,
		StartAt:     startAt,
		Duration:    ev.EffectiveDuration(),
		Category:    ev.Category,
		Correlation: ev.Correlation,
		SyncState:   model.SyncPending,
	}
	e.rctx.Place(a)
	e.wavePlaced = append(e.wavePlaced, ev.Reference)
	e.outcome.log(action, ev.Reference, emp.ID, startAt, detail)
	e.logger.Debug("event placed",
		zap.String("event", ev.Reference),
		zap.String("employee", emp.ID),
		zap.Time("startAt", startAt),
		zap.String("detail", detail),
	)
	return a
}

// reject records that no placement was found for the event.
func (e *Engine) reject(ev model.Event, reasons []string) {
	if len(reasons) == 0 {
		reasons = []string{"no eligible employees"}
	}
	e.outcome.Rejected = append(e.outcome.Rejected, Rejection{EventRef: ev.Reference, Reasons: reasons})
	e.outcome.log(model.ActionRejected, ev.Reference, "", time.Time{}, strings.Join(reasons, "; "))
	e.logger.Warn("event rejected",
		zap.String("event", ev.Reference),
		zap.Strings("reasons", reasons),
	)
}

// flushWave hands the wave's surviving placements to the sink. Within-wave
// preemption may have unplaced some of them again; only what is still pending
// goes out. Later waves never displace earlier waves, so a flushed batch is
// final.
func (e *Engine) flushWave(wave int, sink WaveSink) error {
	if sink == nil {
		return nil
	}
	seen := make(map[string]bool, len(e.wavePlaced))
	batch := make([]model.Assignment, 0, len(e.wavePlaced))
	for _, ref := range e.wavePlaced {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		if a, ok := e.rctx.PendingEvent(ref); ok {
			batch = append(batch, a)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	e.logger.Debug("flushing wave", zap.Int("wave", wave), zap.Int("placed", len(batch)))
	return sink.FlushWave(wave, batch)
}

// candidatesOfTier returns the active employees of one tier, least-loaded
// first so work spreads evenly, employee ID as the stable tiebreak.
func (e *Engine) candidatesOfTier(tier model.RoleTier) []model.Employee {
	base := e.byTier[tier]
	out := make([]model.Employee, len(base))
	copy(out, base)
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := e.load(out[i].ID), e.load(out[j].ID)
		if li != lj {
			return li < lj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// tieredCandidates concatenates candidatesOfTier in the given tier order.
func (e *Engine) tieredCandidates(tiers ...model.RoleTier) []model.Employee {
	var out []model.Employee
	for _, tier := range tiers {
		out = append(out, e.candidatesOfTier(tier)...)
	}
	return out
}

// rotationFirst puts the date's rotation owner ahead of the tier ladder.
func (e *Engine) rotationFirst(role model.RotationRole, date time.Time, tiers ...model.RoleTier) []model.Employee {
	var out []model.Employee
	seen := make(map[string]bool)
	if ownerID, ok := e.rotation.OwnerOn(role, date); ok {
		if emp, found := e.snap.Employee(ownerID); found && emp.Active {
			out = append(out, emp)
			seen[emp.ID] = true
		}
	}
	for _, emp := range e.tieredCandidates(tiers...) {
		if seen[emp.ID] {
			continue
		}
		out = append(out, emp)
	}
	return out
}

// load counts the live assignments held by an employee inside the window.
func (e *Engine) load(employeeID string) int {
	n := 0
	e.eachLiveAssignment(func(a model.Assignment) {
		if a.EmployeeID == employeeID {
			n++
		}
	})
	return n
}

// isJuicerOwner reports whether the employee holds the juicer rotation on the
// date. Wave 2 keeps those employees free for that day's juice bars.
func (e *Engine) isJuicerOwner(employeeID string, date time.Time) bool {
	owner, ok := e.rotation.OwnerOn(model.RotationJuicer, date)
	return ok && owner == employeeID
}

func (e *Engine) queuedCount() int {
	n := 0
	for _, q := range e.queues {
		n += len(q)
	}
	return n
}

func (e *Engine) activeCount() int {
	n := 0
	for _, emps := range e.byTier {
		n += len(emps)
	}
	return n
}
