package services

import (
	"context"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// AssignmentSubmitter registers committed assignments with an external
// calendar. Submission happens after the run commits and is best effort:
// errors are reported on the run result, never raised.
type AssignmentSubmitter interface {
	Submit(ctx context.Context, event model.Event, assignment model.Assignment) error
}

// NoopSubmitter accepts every assignment without calling anywhere. It stands
// in for the calendar in tests that need a non-nil submitter.
type NoopSubmitter struct{}

// Submit implements AssignmentSubmitter.
func (NoopSubmitter) Submit(context.Context, model.Event, model.Assignment) error {
	return nil
}
