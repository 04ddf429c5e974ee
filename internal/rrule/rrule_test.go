package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/calsync/internal/core"
)

func TestFormatWeeklyWithByDay(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.FreqWeekly,
		Interval:  2,
		Count:     8,
		Weekdays:  []time.Weekday{time.Tuesday, time.Thursday},
	}
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;COUNT=8;BYDAY=TU,TH", Format(rule))
}

func TestCountTakesPrecedenceOverUntil(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.FreqDaily,
		Interval:  1,
		Count:     3,
		Until:     time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "FREQ=DAILY;COUNT=3", Format(rule))
}

func TestParseRoundTrip(t *testing.T) {
	rule := core.RecurrenceRule{
		Frequency: core.FreqMonthly,
		Interval:  3,
		Until:     time.Date(2026, time.December, 31, 10, 0, 0, 0, time.UTC),
	}
	parsed, ok := Parse(Format(rule))
	require.True(t, ok)
	assert.Equal(t, rule, parsed)
}

func TestParseRequiresFreq(t *testing.T) {
	_, ok := Parse("INTERVAL=2;COUNT=4")
	assert.False(t, ok)

	_, ok = Parse("FREQ=SECONDLY")
	assert.False(t, ok)
}

func TestParseDefaultsInterval(t *testing.T) {
	rule, ok := Parse("FREQ=DAILY")
	require.True(t, ok)
	assert.Equal(t, 1, rule.Interval)
}
