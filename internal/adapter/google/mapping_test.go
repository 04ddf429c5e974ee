package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"

	"github.com/inkwell/calsync/internal/core"
)

func TestBuildRRuleWeekly(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.FreqWeekly,
		Interval:  2,
		Count:     10,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
	}

	assert.Equal(t, "RRULE:FREQ=WEEKLY;INTERVAL=2;COUNT=10;BYDAY=MO,WE", buildRRule(rule))
}

func TestParseRRuleUntil(t *testing.T) {
	rule, ok := parseRRule("RRULE:FREQ=DAILY;UNTIL=20260401T000000Z")

	require.True(t, ok)
	assert.Equal(t, core.FreqDaily, rule.Frequency)
	assert.Equal(t, 1, rule.Interval)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), rule.Until)
}

func TestParseRRuleIgnoresOtherLines(t *testing.T) {
	_, ok := parseRRule("EXDATE:20260401T100000Z")
	assert.False(t, ok)
}

func TestRRuleRoundTrip(t *testing.T) {
	original := core.RecurrenceRule{
		Frequency: core.FreqWeekly,
		Interval:  3,
		Weekdays:  []time.Weekday{time.Friday},
	}

	parsed, ok := parseRRule(buildRRule(original))
	require.True(t, ok)
	assert.Equal(t, original, parsed)
}

func TestApplyPatchPreservesUnspecifiedFields(t *testing.T) {
	remote := &calendar.Event{
		Summary:     "Sleeve session",
		Description: "second pass shading",
		Location:    "Studio 3",
		ColorId:     "7",
		Start:       &calendar.EventDateTime{DateTime: "2026-03-02T10:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2026-03-02T12:00:00Z"},
	}

	title := "Sleeve session (moved)"
	start := time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)
	applyPatch(remote, core.EventPatch{Title: &title, Start: &start})

	assert.Equal(t, "Sleeve session (moved)", remote.Summary)
	assert.Equal(t, "2026-03-02T11:00:00Z", remote.Start.DateTime)
	// Fields outside the patch stay untouched.
	assert.Equal(t, "second pass shading", remote.Description)
	assert.Equal(t, "Studio 3", remote.Location)
	assert.Equal(t, "7", remote.ColorId)
	assert.Equal(t, "2026-03-02T12:00:00Z", remote.End.DateTime)
}

func TestFromNativeRejectsAllDayEvents(t *testing.T) {
	_, err := fromNative(&calendar.Event{
		Id:    "evt-1",
		Start: &calendar.EventDateTime{Date: "2026-03-02"},
		End:   &calendar.EventDateTime{Date: "2026-03-03"},
	})

	assert.Error(t, err)
}

func TestToNativeCarriesMetadataAndReminders(t *testing.T) {
	event := core.CalendarEvent{
		Title:    "Consult - Dana Reyes",
		Start:    time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC),
		Timezone: "America/New_York",
		Reminders: []core.Reminder{
			{Method: core.ReminderEmail, MinutesBefore: 60},
			{Method: core.ReminderPopup, MinutesBefore: 15},
		},
		Metadata: map[string]string{"appointment_id": "apt-42"},
	}

	item := toNative(event)

	require.NotNil(t, item.ExtendedProperties)
	assert.Equal(t, "apt-42", item.ExtendedProperties.Private["appointment_id"])
	require.NotNil(t, item.Reminders)
	assert.False(t, item.Reminders.UseDefault)
	assert.Contains(t, item.Reminders.ForceSendFields, "UseDefault")
	require.Len(t, item.Reminders.Overrides, 2)
	assert.Equal(t, "email", item.Reminders.Overrides[0].Method)
	assert.Equal(t, int64(60), item.Reminders.Overrides[0].Minutes)
}

func TestAttendeeStatusTablesAreInverse(t *testing.T) {
	for status, native := range attendeeStatusToNative {
		assert.Equal(t, status, attendeeStatusFromNative[native])
	}
}
