package core

import (
	"time"
)

// AttendeeStatus represents an attendee's response to an event invitation.
type AttendeeStatus int

const (
	StatusNeedsAction AttendeeStatus = iota
	// Attendee accepted
	StatusAccepted
	// Attendee declined
	StatusDeclined
	// Attendee marked as tentative
	StatusTentative
)

// Attendee is a participant on a calendar event.
type Attendee struct {
	Email    string
	Name     string
	Status   AttendeeStatus
	Required bool
}

// ReminderMethod is how a reminder is delivered.
type ReminderMethod int

const (
	ReminderPopup ReminderMethod = iota
	ReminderEmail
)

// Reminder fires MinutesBefore minutes ahead of the event start.
type Reminder struct {
	Method        ReminderMethod
	MinutesBefore int
}

// Frequency of a recurrence rule.
type Frequency int

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// RecurrenceRule describes how an event repeats.
// Count and Until are mutually exclusive; zero values mean "unbounded".
type RecurrenceRule struct {
	Frequency Frequency
	// Every Nth occurrence (1 = every, 2 = every other, ...)
	Interval int
	Count    int
	Until    time.Time
	// Weekdays the rule applies to (weekly rules)
	Weekdays []time.Weekday
}

// All adapters (Google, Outlook, CalDAV) must convert their data to this format.
type CalendarEvent struct {
	// Unique ID (provided by the source, or canonical for outbound events)
	ID          string
	Title       string
	Description string
	Location    string
	Timezone    string
	// Timing; End must be strictly after Start
	Start time.Time
	End   time.Time

	Attendees  []Attendee
	Recurrence *RecurrenceRule
	Reminders  []Reminder

	// Back-reference to the source appointment (e.g. "appointment_id")
	Metadata map[string]string
}

// Duration returns the length of the event.
func (e CalendarEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Valid reports whether the event has a well-formed time range.
func (e CalendarEvent) Valid() bool {
	return !e.Start.IsZero() && !e.End.IsZero() && e.End.After(e.Start)
}

// Overlaps reports whether the event strictly overlaps the [start, end)
// range. Boundary-touching ranges do not overlap.
func (e CalendarEvent) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// EventPatch carries the fields of a partial event update. Nil fields are
// left untouched on the remote event (fetch-merge-write).
type EventPatch struct {
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	Attendees   *[]Attendee
	Reminders   *[]Reminder
}

// Apply merges the patch into the event, overwriting only supplied fields.
func (p EventPatch) Apply(e CalendarEvent) CalendarEvent {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	if p.Attendees != nil {
		e.Attendees = *p.Attendees
	}
	if p.Reminders != nil {
		e.Reminders = *p.Reminders
	}
	return e
}

// MostUrgentReminder picks the reminder with the smallest MinutesBefore.
// Providers that can only model a single reminder keep this one.
func MostUrgentReminder(reminders []Reminder) (Reminder, bool) {
	if len(reminders) == 0 {
		return Reminder{}, false
	}
	best := reminders[0]
	for _, r := range reminders[1:] {
		if r.MinutesBefore < best.MinutesBefore {
			best = r
		}
	}
	return best, true
}
