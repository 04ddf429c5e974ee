package caldav

import (
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/calsync/internal/core"
)

func TestEventRoundTrip(t *testing.T) {
	event := core.CalendarEvent{
		Title:       "Sleeve session - Dana Reyes",
		Description: "Second pass on the forearm piece",
		Location:    "Studio 2",
		Start:       time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
		End:         time.Date(2026, time.March, 2, 16, 0, 0, 0, time.UTC),
		Attendees: []core.Attendee{
			{Email: "dana@example.com", Name: "Dana Reyes", Status: core.StatusAccepted, Required: true},
			{Email: "sam@example.com", Status: core.StatusTentative},
		},
		Reminders: []core.Reminder{
			{Method: core.ReminderPopup, MinutesBefore: 30},
			{Method: core.ReminderEmail, MinutesBefore: 1440},
		},
		Recurrence: &core.RecurrenceRule{
			Frequency: core.FreqWeekly,
			Interval:  2,
			Count:     4,
			Weekdays:  []time.Weekday{time.Monday},
		},
		Metadata: map[string]string{"appointment_id": "apt-77"},
	}

	got, err := fromNative(toNative(event, "uid-77"))
	require.NoError(t, err)

	assert.Equal(t, "uid-77", got.ID)
	assert.Equal(t, event.Title, got.Title)
	assert.Equal(t, event.Description, got.Description)
	assert.Equal(t, event.Location, got.Location)
	assert.True(t, got.Start.Equal(event.Start))
	assert.True(t, got.End.Equal(event.End))
	assert.Equal(t, event.Attendees, got.Attendees)
	assert.Equal(t, event.Reminders, got.Reminders)
	require.NotNil(t, got.Recurrence)
	assert.Equal(t, *event.Recurrence, *got.Recurrence)
	assert.Equal(t, "apt-77", got.Metadata["appointment_id"])
}

func TestFromNativeRejectsMissingTimes(t *testing.T) {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, "uid-1")
	comp.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))

	_, err := fromNative(comp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DTEND")
}

func TestApplyPatchKeepsUnpatchedProps(t *testing.T) {
	event := core.CalendarEvent{
		Title:       "Consult",
		Description: "Initial walk-in",
		Location:    "Front desk",
		Start:       time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC),
	}
	comp := toNative(event, "uid-2")
	comp.Props.SetText("X-APPLE-TRAVEL-DURATION", "PT15M")

	title := "Consult (moved)"
	newStart := time.Date(2026, time.March, 2, 11, 0, 0, 0, time.UTC)
	applyPatch(comp, core.EventPatch{Title: &title, Start: &newStart})

	got, err := fromNative(comp)
	require.NoError(t, err)
	assert.Equal(t, "Consult (moved)", got.Title)
	assert.True(t, got.Start.Equal(newStart))
	assert.Equal(t, "Initial walk-in", got.Description)
	assert.Equal(t, "Front desk", got.Location)
	require.NotNil(t, comp.Props.Get("X-APPLE-TRAVEL-DURATION"))
}

func TestApplyPatchReplacesAlarms(t *testing.T) {
	event := core.CalendarEvent{
		Title:     "Touch-up",
		Start:     time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		End:       time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		Reminders: []core.Reminder{{Method: core.ReminderPopup, MinutesBefore: 10}},
	}
	comp := toNative(event, "uid-3")

	reminders := []core.Reminder{{Method: core.ReminderEmail, MinutesBefore: 60}}
	applyPatch(comp, core.EventPatch{Reminders: &reminders})

	got, err := fromNative(comp)
	require.NoError(t, err)
	assert.Equal(t, reminders, got.Reminders)
}

func TestTransparencyAndStatusChecks(t *testing.T) {
	comp := ical.NewComponent(ical.CompEvent)
	assert.False(t, isTransparent(comp))
	assert.False(t, isCancelled(comp))

	comp.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	comp.Props.SetText(ical.PropStatus, "CANCELLED")
	assert.True(t, isTransparent(comp))
	assert.True(t, isCancelled(comp))
}

func TestTriggerFormatting(t *testing.T) {
	assert.Equal(t, "-PT30M", formatTrigger(30))
	assert.Equal(t, "-PT1H30M", formatTrigger(90))
	assert.Equal(t, "-PT2H", formatTrigger(120))
}

func TestTriggerParsing(t *testing.T) {
	cases := map[string]int{
		"-PT30M":   30,
		"-PT1H30M": 90,
		"-P1DT2H":  1560,
		"PT15M":    15,
		"-PT600S":  10,
	}
	for raw, want := range cases {
		got, ok := parseTrigger(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := parseTrigger("tomorrow")
	assert.False(t, ok)
}
