package calendarclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/mfleming/demoroster/pkg/core/model"
)

// Submit inserts a calendar entry for one committed assignment so the
// assigned employee sees it on the shared calendar. Names following the
// floor-schedule convention are shortened to their human title; anything else
// goes out verbatim.
func (c *Client) Submit(ctx context.Context, event model.Event, assignment model.Assignment) error {
	title := event.Name
	description := fmt.Sprintf("Assigned to %s", assignment.EmployeeID)
	if parsed, err := model.ParseEventName(event.Name); err == nil {
		title = parsed.Title
		description = fmt.Sprintf("%s\nCategory: %s", description, parsed.Category)
	}

	entry := &calendar.Event{
		Summary:     fmt.Sprintf("%s (%s)", title, event.Reference),
		Description: description,
		Start: &calendar.EventDateTime{
			DateTime: assignment.StartAt.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: assignment.EndAt().UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
	}

	if _, err := c.service.Events.Insert(c.calendarID, entry).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to insert calendar event for %s: %w", event.Reference, err)
	}

	return nil
}
