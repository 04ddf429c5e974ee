package google

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/inkwell/calsync/internal/core"
	"github.com/inkwell/calsync/internal/rrule"
)

// Bidirectional vocabulary tables between the canonical model and Google's
// wire strings. Google is the closest provider to the canonical shapes.

var attendeeStatusToNative = map[core.AttendeeStatus]string{
	core.StatusAccepted:    "accepted",
	core.StatusDeclined:    "declined",
	core.StatusTentative:   "tentative",
	core.StatusNeedsAction: "needsAction",
}

var attendeeStatusFromNative = map[string]core.AttendeeStatus{
	"accepted":    core.StatusAccepted,
	"declined":    core.StatusDeclined,
	"tentative":   core.StatusTentative,
	"needsAction": core.StatusNeedsAction,
}

var reminderMethodToNative = map[core.ReminderMethod]string{
	core.ReminderEmail: "email",
	core.ReminderPopup: "popup",
}

var reminderMethodFromNative = map[string]core.ReminderMethod{
	"email": core.ReminderEmail,
	"popup": core.ReminderPopup,
}

// toNative converts a canonical event to Google's wire shape.
func toNative(event core.CalendarEvent) *calendar.Event {
	item := &calendar.Event{
		Summary:     event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.Timezone,
		},
	}

	for _, a := range event.Attendees {
		item.Attendees = append(item.Attendees, &calendar.EventAttendee{
			Email:          a.Email,
			DisplayName:    a.Name,
			ResponseStatus: attendeeStatusToNative[a.Status],
			Optional:       !a.Required,
		})
	}

	if len(event.Reminders) > 0 {
		overrides := make([]*calendar.EventReminder, 0, len(event.Reminders))
		for _, r := range event.Reminders {
			overrides = append(overrides, &calendar.EventReminder{
				Method:  reminderMethodToNative[r.Method],
				Minutes: int64(r.MinutesBefore),
			})
		}
		item.Reminders = &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}

	if event.Recurrence != nil {
		item.Recurrence = []string{buildRRule(*event.Recurrence)}
	}

	if len(event.Metadata) > 0 {
		item.ExtendedProperties = &calendar.EventExtendedProperties{
			Private: event.Metadata,
		}
	}

	return item
}

// fromNative converts a Google event to the canonical shape. All-day events
// (date without time) cannot carry an instant range and are rejected.
func fromNative(item *calendar.Event) (core.CalendarEvent, error) {
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return core.CalendarEvent{}, fmt.Errorf("event %s has no timed start/end", item.Id)
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("parse end time: %w", err)
	}

	event := core.CalendarEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Timezone:    item.Start.TimeZone,
		Start:       start,
		End:         end,
	}

	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, core.Attendee{
			Email:    a.Email,
			Name:     a.DisplayName,
			Status:   attendeeStatusFromNative[a.ResponseStatus],
			Required: !a.Optional,
		})
	}

	if item.Reminders != nil {
		for _, r := range item.Reminders.Overrides {
			event.Reminders = append(event.Reminders, core.Reminder{
				Method:        reminderMethodFromNative[r.Method],
				MinutesBefore: int(r.Minutes),
			})
		}
	}

	for _, line := range item.Recurrence {
		if rule, ok := parseRRule(line); ok {
			event.Recurrence = &rule
			break
		}
	}

	if item.ExtendedProperties != nil && len(item.ExtendedProperties.Private) > 0 {
		event.Metadata = item.ExtendedProperties.Private
	}

	return event, nil
}

// applyPatch mutates only the patched fields on the native event so
// unspecified remote fields survive the write-back.
func applyPatch(item *calendar.Event, patch core.EventPatch) {
	if patch.Title != nil {
		item.Summary = *patch.Title
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Location != nil {
		item.Location = *patch.Location
	}
	if patch.Start != nil {
		if item.Start == nil {
			item.Start = &calendar.EventDateTime{}
		}
		item.Start.DateTime = patch.Start.Format(time.RFC3339)
		item.Start.Date = ""
	}
	if patch.End != nil {
		if item.End == nil {
			item.End = &calendar.EventDateTime{}
		}
		item.End.DateTime = patch.End.Format(time.RFC3339)
		item.End.Date = ""
	}
	if patch.Attendees != nil {
		item.Attendees = nil
		for _, a := range *patch.Attendees {
			item.Attendees = append(item.Attendees, &calendar.EventAttendee{
				Email:          a.Email,
				DisplayName:    a.Name,
				ResponseStatus: attendeeStatusToNative[a.Status],
				Optional:       !a.Required,
			})
		}
	}
	if patch.Reminders != nil {
		overrides := make([]*calendar.EventReminder, 0, len(*patch.Reminders))
		for _, r := range *patch.Reminders {
			overrides = append(overrides, &calendar.EventReminder{
				Method:  reminderMethodToNative[r.Method],
				Minutes: int64(r.MinutesBefore),
			})
		}
		item.Reminders = &calendar.EventReminders{
			UseDefault:      false,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		}
	}
}

// buildRRule renders a canonical recurrence rule as an RRULE line.
func buildRRule(rule core.RecurrenceRule) string {
	return "RRULE:" + rrule.Format(rule)
}

// parseRRule reads an RRULE line back into the canonical rule. Lines that
// are not RRULEs (EXDATE, RDATE) report ok=false.
func parseRRule(line string) (core.RecurrenceRule, bool) {
	if !strings.HasPrefix(line, "RRULE:") {
		return core.RecurrenceRule{}, false
	}
	return rrule.Parse(strings.TrimPrefix(line, "RRULE:"))
}
