package caldav

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/inkwell/calsync/internal/core"
	"github.com/inkwell/calsync/internal/rrule"
)

// metadataProp carries the canonical metadata map as one JSON-encoded
// X property so it round-trips through servers that ignore unknown props.
const metadataProp = "X-CALSYNC-METADATA"

const (
	paramCommonName = "CN"
	paramRole       = "ROLE"
	paramPartStat   = "PARTSTAT"
)

var attendeeStatusToNative = map[core.AttendeeStatus]string{
	core.StatusAccepted:    "ACCEPTED",
	core.StatusDeclined:    "DECLINED",
	core.StatusTentative:   "TENTATIVE",
	core.StatusNeedsAction: "NEEDS-ACTION",
}

var attendeeStatusFromNative = map[string]core.AttendeeStatus{
	"ACCEPTED":     core.StatusAccepted,
	"DECLINED":     core.StatusDeclined,
	"TENTATIVE":    core.StatusTentative,
	"NEEDS-ACTION": core.StatusNeedsAction,
}

// wrapCalendar puts a single VEVENT into a VCALENDAR envelope that passes
// the encoder's PRODID/VERSION validation.
func wrapCalendar(comp *ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, "-//inkwell//calsync//EN")
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Children = append(cal.Children, comp)
	return cal
}

// findEvent returns the first VEVENT in the calendar, or nil.
func findEvent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			return child
		}
	}
	return nil
}

// toNative converts a canonical event into a VEVENT component. Times are
// normalized to UTC so no VTIMEZONE component is needed.
func toNative(event core.CalendarEvent, uid string) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	comp.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	comp.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	comp.Props.SetText(ical.PropSummary, event.Title)

	if event.Description != "" {
		comp.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		comp.Props.SetText(ical.PropLocation, event.Location)
	}

	for _, a := range event.Attendees {
		comp.Props.Add(toNativeAttendee(a))
	}

	if event.Recurrence != nil {
		rr := ical.NewProp(ical.PropRecurrenceRule)
		rr.Value = rrule.Format(*event.Recurrence)
		comp.Props.Set(rr)
	}

	for _, r := range event.Reminders {
		comp.Children = append(comp.Children, toNativeAlarm(r))
	}

	if len(event.Metadata) > 0 {
		if raw, err := json.Marshal(event.Metadata); err == nil {
			comp.Props.SetText(metadataProp, string(raw))
		}
	}

	return comp
}

func toNativeAttendee(a core.Attendee) *ical.Prop {
	prop := ical.NewProp(ical.PropAttendee)
	prop.Value = "mailto:" + a.Email
	if a.Name != "" {
		prop.Params.Set(paramCommonName, a.Name)
	}
	if a.Required {
		prop.Params.Set(paramRole, "REQ-PARTICIPANT")
	} else {
		prop.Params.Set(paramRole, "OPT-PARTICIPANT")
	}
	prop.Params.Set(paramPartStat, attendeeStatusToNative[a.Status])
	return prop
}

func toNativeAlarm(r core.Reminder) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	if r.Method == core.ReminderEmail {
		alarm.Props.SetText(ical.PropAction, "EMAIL")
	} else {
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
	}
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = formatTrigger(r.MinutesBefore)
	alarm.Props.Set(trigger)
	return alarm
}

// fromNative converts a VEVENT back into the canonical shape. Events
// without a timed DTSTART/DTEND cannot carry an instant range and are
// rejected.
func fromNative(comp *ical.Component) (core.CalendarEvent, error) {
	uid, _ := comp.Props.Text(ical.PropUID)

	start, err := propDateTime(comp, ical.PropDateTimeStart)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("event %s: %w", uid, err)
	}
	end, err := propDateTime(comp, ical.PropDateTimeEnd)
	if err != nil {
		return core.CalendarEvent{}, fmt.Errorf("event %s: %w", uid, err)
	}

	event := core.CalendarEvent{
		ID:       uid,
		Timezone: "UTC",
		Start:    start,
		End:      end,
	}
	event.Title, _ = comp.Props.Text(ical.PropSummary)
	event.Description, _ = comp.Props.Text(ical.PropDescription)
	event.Location, _ = comp.Props.Text(ical.PropLocation)

	attendees := comp.Props.Values(ical.PropAttendee)
	for i := range attendees {
		event.Attendees = append(event.Attendees, fromNativeAttendee(&attendees[i]))
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		if rule, ok := rrule.Parse(prop.Value); ok {
			event.Recurrence = &rule
		}
	}

	for _, child := range comp.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if r, ok := fromNativeAlarm(child); ok {
			event.Reminders = append(event.Reminders, r)
		}
	}

	if raw, err := comp.Props.Text(metadataProp); err == nil && raw != "" {
		meta := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			event.Metadata = meta
		}
	}

	return event, nil
}

func fromNativeAttendee(prop *ical.Prop) core.Attendee {
	return core.Attendee{
		Email:    strings.TrimPrefix(prop.Value, "mailto:"),
		Name:     prop.Params.Get(paramCommonName),
		Status:   attendeeStatusFromNative[prop.Params.Get(paramPartStat)],
		Required: prop.Params.Get(paramRole) != "OPT-PARTICIPANT",
	}
}

func fromNativeAlarm(alarm *ical.Component) (core.Reminder, bool) {
	trigger := alarm.Props.Get(ical.PropTrigger)
	if trigger == nil {
		return core.Reminder{}, false
	}
	minutes, ok := parseTrigger(trigger.Value)
	if !ok {
		return core.Reminder{}, false
	}

	method := core.ReminderPopup
	if action, _ := alarm.Props.Text(ical.PropAction); action == "EMAIL" {
		method = core.ReminderEmail
	}
	return core.Reminder{Method: method, MinutesBefore: minutes}, true
}

// applyPatch mutates only the patched properties on the stored VEVENT so
// properties outside the canonical model survive the write-back.
func applyPatch(comp *ical.Component, patch core.EventPatch) {
	if patch.Title != nil {
		comp.Props.SetText(ical.PropSummary, *patch.Title)
	}
	if patch.Description != nil {
		comp.Props.SetText(ical.PropDescription, *patch.Description)
	}
	if patch.Location != nil {
		comp.Props.SetText(ical.PropLocation, *patch.Location)
	}
	if patch.Start != nil {
		comp.Props.SetDateTime(ical.PropDateTimeStart, patch.Start.UTC())
	}
	if patch.End != nil {
		comp.Props.SetDateTime(ical.PropDateTimeEnd, patch.End.UTC())
	}
	if patch.Attendees != nil {
		comp.Props.Del(ical.PropAttendee)
		for _, a := range *patch.Attendees {
			comp.Props.Add(toNativeAttendee(a))
		}
	}
	if patch.Reminders != nil {
		kept := comp.Children[:0]
		for _, child := range comp.Children {
			if child.Name != ical.CompAlarm {
				kept = append(kept, child)
			}
		}
		comp.Children = kept
		for _, r := range *patch.Reminders {
			comp.Children = append(comp.Children, toNativeAlarm(r))
		}
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
}

func isTransparent(comp *ical.Component) bool {
	prop := comp.Props.Get(ical.PropTransparency)
	return prop != nil && prop.Value == "TRANSPARENT"
}

func isCancelled(comp *ical.Component) bool {
	status, _ := comp.Props.Text(ical.PropStatus)
	return status == "CANCELLED"
}

func propDateTime(comp *ical.Component, name string) (time.Time, error) {
	prop := comp.Props.Get(name)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing %s", name)
	}
	t, err := prop.DateTime(time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}

// formatTrigger renders minutes-before as a negative ISO 8601 duration,
// e.g. 90 -> -PT1H30M.
func formatTrigger(minutes int) string {
	if minutes <= 0 {
		return "PT0S"
	}
	h, m := minutes/60, minutes%60
	var b strings.Builder
	b.WriteString("-PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 || h == 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	return b.String()
}

// parseTrigger reads the duration subset alarms use (-P[nD]T[nH][nM][nS])
// into minutes before the event start.
func parseTrigger(value string) (int, bool) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "-")
	if !strings.HasPrefix(s, "P") {
		return 0, false
	}
	s = s[1:]

	var minutes float64
	unit := map[byte]float64{'D': 24 * 60, 'H': 60, 'M': 1, 'S': 1.0 / 60}
	num := ""
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == 'T':
			continue
		case ch >= '0' && ch <= '9':
			num += string(ch)
		default:
			mult, ok := unit[ch]
			if !ok || num == "" {
				return 0, false
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			minutes += float64(n) * mult
			num = ""
		}
	}
	if num != "" {
		return 0, false
	}
	return int(minutes), true
}
