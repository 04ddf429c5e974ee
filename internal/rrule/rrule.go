// Package rrule renders and parses the RFC 5545 recurrence-rule subset the
// canonical model supports (FREQ, INTERVAL, COUNT, UNTIL, BYDAY).
package rrule

import (
	"strconv"
	"strings"
	"time"

	"github.com/inkwell/calsync/internal/core"
)

const untilLayout = "20060102T150405Z"

var frequencyToName = map[core.Frequency]string{
	core.FreqDaily:   "DAILY",
	core.FreqWeekly:  "WEEKLY",
	core.FreqMonthly: "MONTHLY",
	core.FreqYearly:  "YEARLY",
}

var frequencyFromName = map[string]core.Frequency{
	"DAILY":   core.FreqDaily,
	"WEEKLY":  core.FreqWeekly,
	"MONTHLY": core.FreqMonthly,
	"YEARLY":  core.FreqYearly,
}

var weekdayToByDay = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

var weekdayFromByDay = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// Format renders the rule as an RRULE value (no "RRULE:" prefix).
func Format(rule core.RecurrenceRule) string {
	parts := []string{"FREQ=" + frequencyToName[rule.Frequency]}

	if rule.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(rule.Interval))
	}
	if rule.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(rule.Count))
	} else if !rule.Until.IsZero() {
		parts = append(parts, "UNTIL="+rule.Until.UTC().Format(untilLayout))
	}
	if len(rule.Weekdays) > 0 {
		days := make([]string, 0, len(rule.Weekdays))
		for _, wd := range rule.Weekdays {
			days = append(days, weekdayToByDay[wd])
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}

	return strings.Join(parts, ";")
}

// Parse reads an RRULE value back into the canonical rule. A missing or
// unsupported FREQ reports ok=false.
func Parse(value string) (core.RecurrenceRule, bool) {
	rule := core.RecurrenceRule{Interval: 1}
	seenFreq := false

	for _, part := range strings.Split(value, ";") {
		key, val, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch key {
		case "FREQ":
			freq, ok := frequencyFromName[val]
			if !ok {
				return core.RecurrenceRule{}, false
			}
			rule.Frequency = freq
			seenFreq = true
		case "INTERVAL":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				rule.Interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(val); err == nil {
				rule.Count = n
			}
		case "UNTIL":
			if t, err := time.Parse(untilLayout, val); err == nil {
				rule.Until = t
			}
		case "BYDAY":
			for _, code := range strings.Split(val, ",") {
				if wd, ok := weekdayFromByDay[code]; ok {
					rule.Weekdays = append(rule.Weekdays, wd)
				}
			}
		}
	}

	return rule, seenFreq
}
