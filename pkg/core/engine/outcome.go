package engine

import (
	"sort"
	"time"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Outcome reports everything a run decided: final placements, displacements
// and where they landed, rejections with reasons, and the ordered decision
// log that replays the run.
type Outcome struct {
	Placed   []model.Assignment
	Bumped   []BumpRecord
	Rejected []Rejection
	Log      []model.RunLogEntry

	seq int
}

// BumpRecord documents one displacement: which event moved, who held it, what
// displaced it, and where it landed. To is nil when the event went back to
// its placement queue instead of moving directly.
type BumpRecord struct {
	EventRef    string
	EmployeeID  string
	DisplacedBy string
	From        time.Time
	To          *time.Time
}

// Rejection is an event the run could not place, with the reasons gathered
// across every attempt.
type Rejection struct {
	EventRef string
	Reasons  []string
}

func (o *Outcome) log(action model.RunAction, eventRef, employeeID string, startAt time.Time, detail string) {
	o.seq++
	o.Log = append(o.Log, model.RunLogEntry{
		Seq:        o.seq,
		Action:     action,
		EventRef:   eventRef,
		EmployeeID: employeeID,
		StartAt:    startAt,
		Detail:     detail,
	})
}

// attemptLog accumulates why placement attempts failed, so a rejection can
// report everything that stood in the way rather than just the last error.
type attemptLog struct {
	kinds map[model.ConstraintKind]bool
	notes []string
	seen  map[string]bool
}

func newAttemptLog() *attemptLog {
	return &attemptLog{
		kinds: make(map[model.ConstraintKind]bool),
		seen:  make(map[string]bool),
	}
}

// note records the hard findings of one validation.
func (l *attemptLog) note(result model.ValidationResult) {
	for _, v := range result.Violations {
		if v.Severity == model.SeverityHard {
			l.kinds[v.Kind] = true
		} else if v.Kind == model.ConstraintAvailability {
			// Soft, but it blocks automatic placement, so it belongs in the
			// rejection reasons.
			l.kinds[v.Kind] = true
		}
	}
}

// noteText records a free-form failure such as a bump dead end. Duplicates
// are dropped.
func (l *attemptLog) noteText(s string) {
	if s == "" || l.seen[s] {
		return
	}
	l.seen[s] = true
	l.notes = append(l.notes, s)
}

// reasons renders the accumulated findings, constraint kinds first in stable
// order, then the free-form notes in the order they arose.
func (l *attemptLog) reasons() []string {
	kinds := make([]string, 0, len(l.kinds))
	for kind := range l.kinds {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return append(kinds, l.notes...)
}
