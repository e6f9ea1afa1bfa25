package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfleming/demoroster/pkg/core/constraint"
	"github.com/mfleming/demoroster/pkg/core/model"
)

var weekdaysOnly = [7]bool{false, true, true, true, true, true, false}

// planningDay is far enough ahead of the test window that nothing counts as
// short notice.
var planningDay = date(2025, time.September, 29)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// testWeek runs Monday 2025-10-06 through Friday 2025-10-10.
func testWeek() model.DateRange {
	return model.NewDateRange(date(2025, time.October, 6), date(2025, time.October, 11))
}

// mondayOnly is the single working day Monday 2025-10-06.
func mondayOnly() model.DateRange {
	return model.NewDateRange(date(2025, time.October, 6), date(2025, time.October, 7))
}

func testEmployee(id string, tier model.RoleTier) model.Employee {
	return model.Employee{ID: id, Name: id, Tier: tier, Active: true}
}

func testEvent(ref string, category model.EventCategory, earliest, due time.Time) model.Event {
	return model.Event{
		Reference:     ref,
		Name:          ref,
		Category:      category,
		EarliestStart: earliest,
		DueDate:       due,
		Condition:     model.ConditionUnscheduled,
	}
}

// availableAllWeek gives every employee in the snapshot the standard Monday
// to Friday pattern.
func availableAllWeek(snap *model.Snapshot) {
	for _, emp := range snap.Employees {
		snap.Patterns = append(snap.Patterns, model.WeeklyPattern{EmployeeID: emp.ID, Days: weekdaysOnly})
	}
}

func runEngine(t *testing.T, snap *model.Snapshot, params Params, now time.Time) (*Outcome, *constraint.RunContext) {
	t.Helper()
	eng := New(snap, params, now, zap.NewNop())
	rctx := constraint.NewRunContext("run-test")
	outcome, err := eng.Run(rctx, nil)
	require.NoError(t, err)
	return outcome, rctx
}

func findPlaced(t *testing.T, outcome *Outcome, ref string) model.Assignment {
	t.Helper()
	for _, a := range outcome.Placed {
		if a.EventRef == ref {
			return a
		}
	}
	t.Fatalf("no placement for event %s, placed: %+v, rejected: %+v", ref, outcome.Placed, outcome.Rejected)
	return model.Assignment{}
}

func rejectionFor(outcome *Outcome, ref string) (Rejection, bool) {
	for _, r := range outcome.Rejected {
		if r.EventRef == ref {
			return r, true
		}
	}
	return Rejection{}, false
}

func logEntry(outcome *Outcome, action model.RunAction, ref string) (model.RunLogEntry, bool) {
	for _, entry := range outcome.Log {
		if entry.Action == action && entry.EventRef == ref {
			return entry, true
		}
	}
	return model.RunLogEntry{}, false
}

// captureSink records wave flushes for inspection.
type captureSink struct {
	waves   []int
	batches map[int][]model.Assignment
}

func newCaptureSink() *captureSink {
	return &captureSink{batches: make(map[int][]model.Assignment)}
}

func (s *captureSink) FlushWave(wave int, placed []model.Assignment) error {
	s.waves = append(s.waves, wave)
	batch := make([]model.Assignment, len(placed))
	copy(batch, placed)
	s.batches[wave] = batch
	return nil
}

func TestEngineRun_PlacesPrimaryWithPairedSupervisor(t *testing.T) {
	primary := testEvent("0100", model.CategoryPrimary, date(2025, time.October, 8), date(2025, time.October, 10))
	primary.Correlation = "606001"
	supervisor := testEvent("0101", model.CategorySupervisor, date(2025, time.October, 8), date(2025, time.October, 10))
	supervisor.Correlation = "606001"

	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events:    []model.Event{primary, supervisor},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0100")
	assert.Equal(t, "e-lead", placed.EmployeeID)
	assert.Equal(t, model.At(date(2025, time.October, 8), 10, 0), placed.StartAt, "first rotating slot on the first eligible day")

	paired := findPlaced(t, outcome, "0101")
	assert.Equal(t, "e-lead", paired.EmployeeID, "paired Supervisor event should follow the Primary's employee")
	assert.Equal(t, model.At(date(2025, time.October, 8), 13, 0), paired.StartAt)

	entry, ok := logEntry(outcome, model.ActionPaired, "0101")
	assert.True(t, ok, "pairing should be logged")
	assert.Contains(t, entry.Detail, "paired with 0100")
	assert.Empty(t, outcome.Rejected)
	assert.Empty(t, outcome.Bumped)
}

func TestEngineRun_PrimaryTierFallback(t *testing.T) {
	snap := &model.Snapshot{
		Window: mondayOnly(),
		Employees: []model.Employee{
			testEmployee("e-base", model.TierBaseWorker),
			testEmployee("e-lead", model.TierLeadSpecialist),
		},
		Events: []model.Event{
			testEvent("0100", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
			testEvent("0200", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	first := findPlaced(t, outcome, "0100")
	assert.Equal(t, "e-lead", first.EmployeeID, "lead tier is tried before base tier")
	assert.Equal(t, model.At(date(2025, time.October, 6), 10, 0), first.StartAt)

	second := findPlaced(t, outcome, "0200")
	assert.Equal(t, "e-base", second.EmployeeID, "daily limit pushes the second Primary down the tier ladder")
	assert.Equal(t, model.At(date(2025, time.October, 6), 10, 15), second.StartAt, "second placement takes the next rotating slot")
}

func TestEngineRun_PrimarySlotsRotate(t *testing.T) {
	snap := &model.Snapshot{
		Window: mondayOnly(),
		Employees: []model.Employee{
			testEmployee("e1", model.TierLeadSpecialist),
			testEmployee("e2", model.TierLeadSpecialist),
			testEmployee("e3", model.TierLeadSpecialist),
			testEmployee("e4", model.TierLeadSpecialist),
		},
		Events: []model.Event{
			testEvent("0100", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
			testEvent("0200", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
			testEvent("0300", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
			testEvent("0400", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	require.Len(t, outcome.Placed, 4)
	monday := date(2025, time.October, 6)
	starts := make(map[time.Time]bool)
	for _, a := range outcome.Placed {
		starts[a.StartAt] = true
	}
	assert.True(t, starts[model.At(monday, 10, 0)])
	assert.True(t, starts[model.At(monday, 10, 15)])
	assert.True(t, starts[model.At(monday, 10, 30)])
	assert.True(t, starts[model.At(monday, 10, 45)], "four simultaneous Primary events should stagger across all four slots")
}

func TestEngineRun_JuiceBarPrefersRotationJuicer(t *testing.T) {
	snap := &model.Snapshot{
		Window: testWeek(),
		Employees: []model.Employee{
			testEmployee("e-juice-a", model.TierSpecialistJuicer),
			testEmployee("e-juice-b", model.TierSpecialistJuicer),
		},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 11)),
		},
		RotationAssignments: []model.RotationAssignment{
			{Role: model.RotationJuicer, Weekday: time.Monday, EmployeeID: "e-juice-b"},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0100")
	assert.Equal(t, "e-juice-b", placed.EmployeeID, "the rotation owner is tried before other juicers")
	assert.Equal(t, model.At(date(2025, time.October, 6), 9, 30), placed.StartAt)
}

func TestEngineRun_PrimaryPassesOverRosteredJuicer(t *testing.T) {
	snap := &model.Snapshot{
		Window: mondayOnly(),
		Employees: []model.Employee{
			testEmployee("e-juice", model.TierSpecialistJuicer),
			testEmployee("e-base", model.TierBaseWorker),
		},
		Events: []model.Event{
			testEvent("0100", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
		RotationAssignments: []model.RotationAssignment{
			{Role: model.RotationJuicer, Weekday: time.Monday, EmployeeID: "e-juice"},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0100")
	assert.Equal(t, "e-base", placed.EmployeeID, "the day's rostered juicer stays free for juice work")
}

func TestEngineRun_KioskPrefersPrimaryLeadRotation(t *testing.T) {
	snap := &model.Snapshot{
		Window: testWeek(),
		Employees: []model.Employee{
			testEmployee("e-lead1", model.TierLeadSpecialist),
			testEmployee("e-lead2", model.TierLeadSpecialist),
		},
		Events: []model.Event{
			testEvent("0400", model.CategoryKioskSetup, date(2025, time.October, 6), date(2025, time.October, 11)),
		},
		RotationAssignments: []model.RotationAssignment{
			{Role: model.RotationPrimaryLead, Weekday: time.Monday, EmployeeID: "e-lead2"},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0400")
	assert.Equal(t, "e-lead2", placed.EmployeeID)
	assert.Equal(t, model.At(date(2025, time.October, 6), 9, 0), placed.StartAt)
}

func TestEngineRun_DigitalTeardownStacksAfterClose(t *testing.T) {
	teardown := testEvent("0600", model.CategoryDigitalMaintenance, date(2025, time.October, 6), date(2025, time.October, 7))
	teardown.Teardown = true

	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events:    []model.Event{teardown},
		Assignments: []model.Assignment{
			{
				EventRef:   "0599",
				EmployeeID: "e-other",
				StartAt:    model.At(date(2025, time.October, 6), 17, 30),
				Duration:   15 * time.Minute,
				Category:   model.CategoryDigitalMaintenance,
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0600")
	assert.Equal(t, model.At(date(2025, time.October, 6), 17, 45), placed.StartAt, "a second teardown takes the next 15 minute step")
}

func TestEngineRun_DigitalSetupRotatesMorningSlots(t *testing.T) {
	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events: []model.Event{
			testEvent("0600", model.CategoryDigitalMaintenance, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
		Assignments: []model.Assignment{
			{
				EventRef:   "0598",
				EmployeeID: "e-other",
				StartAt:    model.At(date(2025, time.October, 6), 8, 0),
				Duration:   time.Hour,
				Category:   model.CategoryDigitalMaintenance,
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0600")
	assert.Equal(t, model.At(date(2025, time.October, 6), 8, 15), placed.StartAt)
}

func TestEngineRun_OtherFallsBackToAfternoon(t *testing.T) {
	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-sup", model.TierClubSupervisor)},
		Events: []model.Event{
			testEvent("0700", model.CategoryOther, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
		Assignments: []model.Assignment{
			{
				EventRef:   "0699",
				EmployeeID: "e-sup",
				StartAt:    model.At(date(2025, time.October, 6), 11, 0),
				Duration:   2 * time.Hour,
				Category:   model.CategoryOther,
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0700")
	assert.Equal(t, "e-sup", placed.EmployeeID)
	assert.Equal(t, model.At(date(2025, time.October, 6), 14, 0), placed.StartAt, "the morning slot is taken, so the afternoon fallback applies")
}

func TestEngineRun_StandaloneSupervisorPairsWithCommittedPrimary(t *testing.T) {
	supervisor := testEvent("0801", model.CategorySupervisor, date(2025, time.October, 6), date(2025, time.October, 11))
	supervisor.Correlation = "909001"
	committedPrimary := testEvent("0800", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 11))
	committedPrimary.Correlation = "909001"
	committedPrimary.Condition = model.ConditionScheduled

	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events:    []model.Event{supervisor, committedPrimary},
		Assignments: []model.Assignment{
			{
				EventRef:    "0800",
				EmployeeID:  "e-lead",
				StartAt:     model.At(date(2025, time.October, 8), 10, 0),
				Duration:    6 * time.Hour,
				Category:    model.CategoryPrimary,
				Correlation: "909001",
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placed := findPlaced(t, outcome, "0801")
	assert.Equal(t, "e-lead", placed.EmployeeID)
	assert.Equal(t, model.At(date(2025, time.October, 8), 13, 0), placed.StartAt,
		"the Supervisor check-in lands inside its own Primary's shift")
}

func TestEngineRun_SupervisorWithoutPrimaryRejected(t *testing.T) {
	supervisor := testEvent("0801", model.CategorySupervisor, date(2025, time.October, 6), date(2025, time.October, 11))
	supervisor.Correlation = "808001"

	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events:    []model.Event{supervisor},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	rejection, ok := rejectionFor(outcome, "0801")
	require.True(t, ok)
	assert.Contains(t, rejection.Reasons, "pairing failed: no placed Primary event with correlation 808001")
}

func TestEngineRun_PairedSupervisorSubstitute(t *testing.T) {
	wednesday := date(2025, time.October, 8)
	primary := testEvent("0700", model.CategoryPrimary, wednesday, date(2025, time.October, 9))
	primary.Correlation = "707001"
	supervisor := testEvent("0701", model.CategorySupervisor, wednesday, date(2025, time.October, 9))
	supervisor.Correlation = "707001"

	snap := &model.Snapshot{
		Window: model.NewDateRange(wednesday, date(2025, time.October, 9)),
		Employees: []model.Employee{
			testEmployee("e-base", model.TierBaseWorker),
			testEmployee("e-lead", model.TierLeadSpecialist),
		},
		Events: []model.Event{primary, supervisor},
		Assignments: []model.Assignment{
			// Blocks the lead for the Primary shift but not for 13:00.
			{
				EventRef:   "0699",
				EmployeeID: "e-lead",
				StartAt:    model.At(wednesday, 11, 0),
				Duration:   2 * time.Hour,
				Category:   model.CategoryOther,
			},
		},
		RotationAssignments: []model.RotationAssignment{
			{Role: model.RotationPrimaryLead, Weekday: time.Wednesday, EmployeeID: "e-lead"},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	placedPrimary := findPlaced(t, outcome, "0700")
	assert.Equal(t, "e-base", placedPrimary.EmployeeID)

	paired := findPlaced(t, outcome, "0701")
	assert.Equal(t, "e-lead", paired.EmployeeID, "base workers cannot hold Supervisor events, so the rotation lead steps in")

	entry, ok := logEntry(outcome, model.ActionPaired, "0701")
	require.True(t, ok)
	assert.Contains(t, entry.Detail, "(substitute)")
}

func TestEngineRun_ShortNoticeSkipsCleanScan(t *testing.T) {
	snap := &model.Snapshot{
		Window:    model.NewDateRange(date(2025, time.October, 6), date(2025, time.October, 8)),
		Employees: []model.Employee{testEmployee("e-lead", model.TierLeadSpecialist)},
		Events: []model.Event{
			testEvent("0100", model.CategoryPrimary, date(2025, time.October, 6), date(2025, time.October, 8)),
		},
	}
	availableAllWeek(snap)

	// "Now" is the Monday the event could first run.
	outcome, _ := runEngine(t, snap, DefaultParams(), date(2025, time.October, 6))

	placed := findPlaced(t, outcome, "0100")
	assert.Equal(t, "e-lead", placed.EmployeeID)

	entry, ok := logEntry(outcome, model.ActionPlaced, "0100")
	require.True(t, ok)
	assert.Equal(t, "placed without preemption", entry.Detail, "short notice events go straight to the preemption pass")
}

func TestEngineRun_BlackoutDatesSkipped(t *testing.T) {
	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-juice", model.TierSpecialistJuicer)},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 8)),
		},
	}
	availableAllWeek(snap)

	params := DefaultParams()
	params.Blackouts = map[time.Time]bool{date(2025, time.October, 6): true}

	outcome, _ := runEngine(t, snap, params, planningDay)

	placed := findPlaced(t, outcome, "0100")
	assert.Equal(t, model.At(date(2025, time.October, 7), 9, 30), placed.StartAt, "Monday is blacked out, Tuesday is the first open day")
}

func TestEngineRun_SkipsScheduledSuppressedAndCommitted(t *testing.T) {
	scheduled := testEvent("0100", model.CategoryOther, date(2025, time.October, 6), date(2025, time.October, 11))
	scheduled.Condition = model.ConditionScheduled
	suppressed := testEvent("0200", model.CategoryOther, date(2025, time.October, 6), date(2025, time.October, 11))
	suppressed.SuppressAuto = true
	committed := testEvent("0300", model.CategoryOther, date(2025, time.October, 6), date(2025, time.October, 11))

	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-sup", model.TierClubSupervisor)},
		Events:    []model.Event{scheduled, suppressed, committed},
		Assignments: []model.Assignment{
			{
				EventRef:   "0300",
				EmployeeID: "e-sup",
				StartAt:    model.At(date(2025, time.October, 6), 11, 0),
				Duration:   2 * time.Hour,
				Category:   model.CategoryOther,
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	assert.Empty(t, outcome.Placed)
	assert.Empty(t, outcome.Rejected)
	assert.Empty(t, outcome.Bumped)
}

func TestEngineRun_OutOfWindowEventsIgnored(t *testing.T) {
	past := testEvent("0100", model.CategoryOther, date(2025, time.September, 1), date(2025, time.September, 5))
	future := testEvent("0200", model.CategoryOther, date(2025, time.November, 3), date(2025, time.November, 7))

	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-sup", model.TierClubSupervisor)},
		Events:    []model.Event{past, future},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	assert.Empty(t, outcome.Placed)
	assert.Empty(t, outcome.Rejected)
}

func TestEngineRun_RejectionListsConstraintKinds(t *testing.T) {
	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-juice", model.TierSpecialistJuicer)},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
		TimeOff: []model.TimeOff{
			{
				ID:         "to-1",
				EmployeeID: "e-juice",
				Start:      date(2025, time.October, 6),
				End:        date(2025, time.October, 10),
				Approved:   true,
			},
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	rejection, ok := rejectionFor(outcome, "0100")
	require.True(t, ok)
	assert.Contains(t, rejection.Reasons, string(model.ConstraintTimeOff))
}

func TestEngineRun_RejectionWithNoCandidates(t *testing.T) {
	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-base", model.TierBaseWorker)},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
	}
	availableAllWeek(snap)

	outcome, _ := runEngine(t, snap, DefaultParams(), planningDay)

	rejection, ok := rejectionFor(outcome, "0100")
	require.True(t, ok)
	assert.Equal(t, []string{"no eligible employees"}, rejection.Reasons, "base workers cannot staff juice bars")
}

func TestEngineRun_RejectionWhenEveryDateBlackedOut(t *testing.T) {
	snap := &model.Snapshot{
		Window:    mondayOnly(),
		Employees: []model.Employee{testEmployee("e-juice", model.TierSpecialistJuicer)},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 7)),
		},
	}
	availableAllWeek(snap)

	params := DefaultParams()
	params.Blackouts = map[time.Time]bool{date(2025, time.October, 6): true}

	outcome, _ := runEngine(t, snap, params, planningDay)

	rejection, ok := rejectionFor(outcome, "0100")
	require.True(t, ok)
	assert.Equal(t, []string{"no candidate weekday inside the placement window"}, rejection.Reasons)
}

func TestEngineRun_WaveFlushOrder(t *testing.T) {
	primary := testEvent("0200", model.CategoryPrimary, date(2025, time.October, 8), date(2025, time.October, 10))
	primary.Correlation = "606001"
	supervisor := testEvent("0201", model.CategorySupervisor, date(2025, time.October, 8), date(2025, time.October, 10))
	supervisor.Correlation = "606001"

	snap := &model.Snapshot{
		Window: testWeek(),
		Employees: []model.Employee{
			testEmployee("e-juice", model.TierSpecialistJuicer),
			testEmployee("e-lead1", model.TierLeadSpecialist),
			testEmployee("e-lead2", model.TierLeadSpecialist),
			testEmployee("e-sup", model.TierClubSupervisor),
		},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 11)),
			primary,
			supervisor,
			testEvent("0400", model.CategoryKioskSetup, date(2025, time.October, 6), date(2025, time.October, 11)),
			testEvent("0600", model.CategoryDigitalMaintenance, date(2025, time.October, 6), date(2025, time.October, 11)),
			testEvent("0700", model.CategoryOther, date(2025, time.October, 6), date(2025, time.October, 11)),
		},
	}
	availableAllWeek(snap)

	eng := New(snap, DefaultParams(), planningDay, zap.NewNop())
	sink := newCaptureSink()
	outcome, err := eng.Run(constraint.NewRunContext("run-test"), sink)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, sink.waves, "every wave placed something and flushed in order")

	refsIn := func(wave int) []string {
		refs := make([]string, 0)
		for _, a := range sink.batches[wave] {
			refs = append(refs, a.EventRef)
		}
		return refs
	}
	assert.Equal(t, []string{"0100"}, refsIn(1))
	assert.ElementsMatch(t, []string{"0200", "0201"}, refsIn(2), "the paired Supervisor flushes with its Primary's wave")
	assert.Equal(t, []string{"0400"}, refsIn(3))
	assert.Equal(t, []string{"0600"}, refsIn(4))
	assert.Equal(t, []string{"0700"}, refsIn(5))

	flushed := 0
	for _, batch := range sink.batches {
		flushed += len(batch)
	}
	assert.Equal(t, len(outcome.Placed), flushed, "every placement flushes exactly once")
}

type failingSink struct{ err error }

func (s failingSink) FlushWave(int, []model.Assignment) error { return s.err }

func TestEngineRun_FlushErrorFailsRun(t *testing.T) {
	snap := &model.Snapshot{
		Window:    testWeek(),
		Employees: []model.Employee{testEmployee("e-juice", model.TierSpecialistJuicer)},
		Events: []model.Event{
			testEvent("0100", model.CategoryJuiceBar, date(2025, time.October, 6), date(2025, time.October, 11)),
		},
	}
	availableAllWeek(snap)

	eng := New(snap, DefaultParams(), planningDay, zap.NewNop())
	_, err := eng.Run(constraint.NewRunContext("run-test"), failingSink{err: assert.AnError})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to flush wave 1")
}

// busySnapshot mixes committed work, a pairing, a sanctioned juice-bar bump
// and every wave category on one crowded week.
func busySnapshot() *model.Snapshot {
	monday := date(2025, time.October, 6)

	juice := testEvent("0101", model.CategoryJuiceBar, monday, date(2025, time.October, 7))
	primary2 := testEvent("0201", model.CategoryPrimary, monday, date(2025, time.October, 11))
	primary3 := testEvent("0301", model.CategoryPrimary, date(2025, time.October, 8), date(2025, time.October, 10))
	primary3.Correlation = "606001"
	supervisor3 := testEvent("0302", model.CategorySupervisor, date(2025, time.October, 8), date(2025, time.October, 10))
	supervisor3.Correlation = "606001"
	kiosk := testEvent("0401", model.CategoryKioskSetup, monday, date(2025, time.October, 11))
	digital := testEvent("0601", model.CategoryDigitalMaintenance, monday, date(2025, time.October, 11))
	teardown := testEvent("0602", model.CategoryDigitalMaintenance, monday, date(2025, time.October, 11))
	teardown.Teardown = true
	other := testEvent("0701", model.CategoryOther, monday, date(2025, time.October, 11))

	committedPrimary := testEvent("0500", model.CategoryPrimary, monday, date(2025, time.October, 11))
	committedPrimary.Condition = model.ConditionScheduled
	committedKiosk := testEvent("0510", model.CategoryKioskSetup, monday, date(2025, time.October, 11))
	committedKiosk.Condition = model.ConditionScheduled
	committedOtherLead := testEvent("0511", model.CategoryOther, monday, date(2025, time.October, 11))
	committedOtherLead.Condition = model.ConditionScheduled
	committedOtherSup := testEvent("0512", model.CategoryOther, monday, date(2025, time.October, 11))
	committedOtherSup.Condition = model.ConditionScheduled

	snap := &model.Snapshot{
		Window: testWeek(),
		Employees: []model.Employee{
			testEmployee("e-juice", model.TierSpecialistJuicer),
			testEmployee("e-lead1", model.TierLeadSpecialist),
			testEmployee("e-lead2", model.TierLeadSpecialist),
			testEmployee("e-base", model.TierBaseWorker),
			testEmployee("e-sup", model.TierClubSupervisor),
		},
		Events: []model.Event{
			juice, primary2, primary3, supervisor3, kiosk, digital, teardown, other,
			committedPrimary, committedKiosk, committedOtherLead, committedOtherSup,
		},
		Assignments: []model.Assignment{
			{EventRef: "0500", EmployeeID: "e-juice", StartAt: model.At(monday, 10, 0), Duration: 6 * time.Hour, Category: model.CategoryPrimary},
			{EventRef: "0510", EmployeeID: "e-lead1", StartAt: model.At(monday, 9, 0), Duration: time.Hour, Category: model.CategoryKioskSetup},
			{EventRef: "0511", EmployeeID: "e-lead2", StartAt: model.At(monday, 11, 0), Duration: 2 * time.Hour, Category: model.CategoryOther},
			{EventRef: "0512", EmployeeID: "e-sup", StartAt: model.At(monday, 14, 0), Duration: 2 * time.Hour, Category: model.CategoryOther},
		},
		RotationAssignments: []model.RotationAssignment{
			{Role: model.RotationJuicer, Weekday: time.Monday, EmployeeID: "e-juice"},
			{Role: model.RotationPrimaryLead, Weekday: time.Monday, EmployeeID: "e-lead1"},
		},
	}
	availableAllWeek(snap)
	return snap
}

func TestEngineRun_Deterministic(t *testing.T) {
	first, firstCtx := runEngine(t, busySnapshot(), DefaultParams(), planningDay)
	second, secondCtx := runEngine(t, busySnapshot(), DefaultParams(), planningDay)

	assert.Equal(t, first.Placed, second.Placed)
	assert.Equal(t, first.Bumped, second.Bumped)
	assert.Equal(t, first.Rejected, second.Rejected)
	assert.Equal(t, first.Log, second.Log, "the decision log replays identically")
	assert.Equal(t, firstCtx.Pending(), secondCtx.Pending())
}

func TestEngineRun_InvariantsHold(t *testing.T) {
	snap := busySnapshot()
	outcome, rctx := runEngine(t, snap, DefaultParams(), planningDay)

	// The sanctioned juice-bar preemption happened and was logged.
	assert.NotEmpty(t, outcome.Bumped, "the juice bar must displace the committed Primary")
	_, bumpLogged := logEntry(outcome, model.ActionBumped, "0500")
	assert.True(t, bumpLogged)

	// Final live state: committed rows the run kept, plus this run's output.
	live := make([]model.Assignment, 0)
	for _, a := range snap.Assignments {
		if rctx.Displaced(a.EventRef) {
			continue
		}
		if _, replaced := rctx.PendingEvent(a.EventRef); replaced {
			continue
		}
		live = append(live, a)
	}
	live = append(live, rctx.Pending()...)

	byEmployee := make(map[string][]model.Assignment)
	for _, a := range live {
		byEmployee[a.EmployeeID] = append(byEmployee[a.EmployeeID], a)
	}
	for emp, assignments := range byEmployee {
		primaries := make(map[time.Time]int)
		for i, a := range assignments {
			if a.Category == model.CategoryPrimary {
				primaries[model.Midnight(a.StartAt)]++
			}
			for _, b := range assignments[i+1:] {
				if a.Correlation != "" && a.Correlation == b.Correlation {
					continue
				}
				assert.False(t, a.Overlaps(b), "employee %s has overlapping assignments %s and %s", emp, a.EventRef, b.EventRef)
			}
		}
		for day, n := range primaries {
			assert.LessOrEqual(t, n, 1, "employee %s holds %d Primary assignments on %s", emp, n, day.Format("2006-01-02"))
		}
	}

	// Every placement is inside its event's date bounds.
	for _, a := range rctx.Pending() {
		ev, ok := snap.Event(a.EventRef)
		require.True(t, ok)
		day := model.Midnight(a.StartAt)
		assert.False(t, day.Before(model.Midnight(ev.EarliestStart)), "event %s placed before its earliest start", a.EventRef)
		assert.True(t, day.Before(model.Midnight(ev.DueDate)), "event %s placed on or after its due date", a.EventRef)
		assert.True(t, day.Weekday() != time.Saturday && day.Weekday() != time.Sunday, "event %s placed on a weekend", a.EventRef)
	}
}
