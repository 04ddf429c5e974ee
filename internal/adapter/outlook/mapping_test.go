package outlook

import (
	"testing"
	"time"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/calsync/internal/core"
)

func TestToNativeKeepsMostUrgentReminder(t *testing.T) {
	event := core.CalendarEvent{
		Title: "Touch-up - Sam Ortiz",
		Start: time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC),
		Reminders: []core.Reminder{
			{Method: core.ReminderEmail, MinutesBefore: 1440},
			{Method: core.ReminderPopup, MinutesBefore: 30},
			{Method: core.ReminderEmail, MinutesBefore: 120},
		},
	}

	item := toNative(event)

	require.NotNil(t, item.GetIsReminderOn())
	assert.True(t, *item.GetIsReminderOn())
	require.NotNil(t, item.GetReminderMinutesBeforeStart())
	assert.Equal(t, int32(30), *item.GetReminderMinutesBeforeStart())
}

func TestToNativeSendsUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	event := core.CalendarEvent{
		Title: "Consult",
		Start: time.Date(2026, time.March, 2, 9, 0, 0, 0, loc),
		End:   time.Date(2026, time.March, 2, 10, 0, 0, 0, loc),
	}

	item := toNative(event)

	require.NotNil(t, item.GetStart())
	assert.Equal(t, "2026-03-02T14:00:00", *item.GetStart().GetDateTime())
	assert.Equal(t, "UTC", *item.GetStart().GetTimeZone())
}

func TestPatchToNativeOnlyCarriesSuppliedFields(t *testing.T) {
	title := "Rescheduled session"
	item := patchToNative(core.EventPatch{Title: &title})

	require.NotNil(t, item.GetSubject())
	assert.Equal(t, "Rescheduled session", *item.GetSubject())
	assert.Nil(t, item.GetBody())
	assert.Nil(t, item.GetLocation())
	assert.Nil(t, item.GetStart())
	assert.Nil(t, item.GetEnd())
	assert.Nil(t, item.GetAttendees())
}

func TestRecurrenceRoundTrip(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.FreqWeekly,
		Interval:  2,
		Count:     8,
		Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
	}
	start := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)

	parsed := fromNativeRecurrence(toNativeRecurrence(rule, start))

	require.NotNil(t, parsed)
	assert.Equal(t, rule, *parsed)
}

func TestFromNativeAttendeeStatuses(t *testing.T) {
	item := models.NewEvent()
	id := "evt-9"
	item.SetId(&id)
	item.SetStart(toDateTimeTimeZone(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)))
	item.SetEnd(toDateTimeTimeZone(time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)))
	item.SetAttendees([]models.Attendeeable{
		toNativeAttendee(core.Attendee{Email: "dana@example.com", Status: core.StatusAccepted, Required: true}),
		toNativeAttendee(core.Attendee{Email: "sam@example.com", Status: core.StatusTentative}),
	})

	event := fromNative(item)

	require.Len(t, event.Attendees, 2)
	assert.Equal(t, core.StatusAccepted, event.Attendees[0].Status)
	assert.True(t, event.Attendees[0].Required)
	assert.Equal(t, core.StatusTentative, event.Attendees[1].Status)
	assert.False(t, event.Attendees[1].Required)
}

func TestParseSDKDateTimeFractionalSeconds(t *testing.T) {
	dtz := models.NewDateTimeTimeZone()
	raw := "2026-03-02T09:30:00.0000000"
	tz := "UTC"
	dtz.SetDateTime(&raw)
	dtz.SetTimeZone(&tz)

	parsed := parseSDKDateTime(dtz)
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC), parsed)
}
