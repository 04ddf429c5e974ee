package outlook

import (
	"time"

	"github.com/microsoft/kiota-abstractions-go/serialization"
	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/inkwell/calsync/internal/core"
	"github.com/inkwell/calsync/internal/util"
)

// Bidirectional vocabulary tables between the canonical model and Graph's
// enums. Outlook models a single reminder per event; the most urgent
// canonical reminder wins on the way out.

var attendeeStatusToNative = map[core.AttendeeStatus]models.ResponseType{
	core.StatusAccepted:    models.ACCEPTED_RESPONSETYPE,
	core.StatusDeclined:    models.DECLINED_RESPONSETYPE,
	core.StatusTentative:   models.TENTATIVELYACCEPTED_RESPONSETYPE,
	core.StatusNeedsAction: models.NOTRESPONDED_RESPONSETYPE,
}

var attendeeStatusFromNative = map[models.ResponseType]core.AttendeeStatus{
	models.ACCEPTED_RESPONSETYPE:            core.StatusAccepted,
	models.ORGANIZER_RESPONSETYPE:           core.StatusAccepted,
	models.DECLINED_RESPONSETYPE:            core.StatusDeclined,
	models.TENTATIVELYACCEPTED_RESPONSETYPE: core.StatusTentative,
	models.NOTRESPONDED_RESPONSETYPE:        core.StatusNeedsAction,
	models.NONE_RESPONSETYPE:                core.StatusNeedsAction,
}

var frequencyToNative = map[core.Frequency]models.RecurrencePatternType{
	core.FreqDaily:   models.DAILY_RECURRENCEPATTERNTYPE,
	core.FreqWeekly:  models.WEEKLY_RECURRENCEPATTERNTYPE,
	core.FreqMonthly: models.ABSOLUTEMONTHLY_RECURRENCEPATTERNTYPE,
	core.FreqYearly:  models.ABSOLUTEYEARLY_RECURRENCEPATTERNTYPE,
}

var frequencyFromNative = map[models.RecurrencePatternType]core.Frequency{
	models.DAILY_RECURRENCEPATTERNTYPE:           core.FreqDaily,
	models.WEEKLY_RECURRENCEPATTERNTYPE:          core.FreqWeekly,
	models.RELATIVEMONTHLY_RECURRENCEPATTERNTYPE: core.FreqMonthly,
	models.ABSOLUTEMONTHLY_RECURRENCEPATTERNTYPE: core.FreqMonthly,
	models.RELATIVEYEARLY_RECURRENCEPATTERNTYPE:  core.FreqYearly,
	models.ABSOLUTEYEARLY_RECURRENCEPATTERNTYPE:  core.FreqYearly,
}

var weekdayToNative = map[time.Weekday]models.DayOfWeek{
	time.Sunday:    models.SUNDAY_DAYOFWEEK,
	time.Monday:    models.MONDAY_DAYOFWEEK,
	time.Tuesday:   models.TUESDAY_DAYOFWEEK,
	time.Wednesday: models.WEDNESDAY_DAYOFWEEK,
	time.Thursday:  models.THURSDAY_DAYOFWEEK,
	time.Friday:    models.FRIDAY_DAYOFWEEK,
	time.Saturday:  models.SATURDAY_DAYOFWEEK,
}

var weekdayFromNative = map[models.DayOfWeek]time.Weekday{
	models.SUNDAY_DAYOFWEEK:    time.Sunday,
	models.MONDAY_DAYOFWEEK:    time.Monday,
	models.TUESDAY_DAYOFWEEK:   time.Tuesday,
	models.WEDNESDAY_DAYOFWEEK: time.Wednesday,
	models.THURSDAY_DAYOFWEEK:  time.Thursday,
	models.FRIDAY_DAYOFWEEK:    time.Friday,
	models.SATURDAY_DAYOFWEEK:  time.Saturday,
}

const graphTimeLayout = "2006-01-02T15:04:05"

// toNative converts a canonical event to a Graph event. We always send UTC
// and rely on the Prefer header to read times back in UTC.
func toNative(event core.CalendarEvent) models.Eventable {
	item := models.NewEvent()
	item.SetSubject(&event.Title)

	if event.Description != "" {
		body := models.NewItemBody()
		contentType := models.TEXT_BODYTYPE
		body.SetContentType(&contentType)
		content := event.Description
		body.SetContent(&content)
		item.SetBody(body)
	}

	if event.Location != "" {
		loc := models.NewLocation()
		name := event.Location
		loc.SetDisplayName(&name)
		item.SetLocation(loc)
	}

	item.SetStart(toDateTimeTimeZone(event.Start))
	item.SetEnd(toDateTimeTimeZone(event.End))

	var attendees []models.Attendeeable
	for _, a := range event.Attendees {
		attendees = append(attendees, toNativeAttendee(a))
	}
	if attendees != nil {
		item.SetAttendees(attendees)
	}

	// Outlook models one reminder per event; keep the most urgent.
	if r, ok := core.MostUrgentReminder(event.Reminders); ok {
		on := true
		minutes := int32(r.MinutesBefore)
		item.SetIsReminderOn(&on)
		item.SetReminderMinutesBeforeStart(&minutes)
	}

	if event.Recurrence != nil {
		item.SetRecurrence(toNativeRecurrence(*event.Recurrence, event.Start))
	}

	return item
}

// patchToNative builds a sparse Graph event carrying only the patched
// fields; Graph PATCH semantics leave everything else untouched.
func patchToNative(patch core.EventPatch) models.Eventable {
	item := models.NewEvent()

	if patch.Title != nil {
		item.SetSubject(patch.Title)
	}
	if patch.Description != nil {
		body := models.NewItemBody()
		contentType := models.TEXT_BODYTYPE
		body.SetContentType(&contentType)
		body.SetContent(patch.Description)
		item.SetBody(body)
	}
	if patch.Location != nil {
		loc := models.NewLocation()
		loc.SetDisplayName(patch.Location)
		item.SetLocation(loc)
	}
	if patch.Start != nil {
		item.SetStart(toDateTimeTimeZone(*patch.Start))
	}
	if patch.End != nil {
		item.SetEnd(toDateTimeTimeZone(*patch.End))
	}
	if patch.Attendees != nil {
		var attendees []models.Attendeeable
		for _, a := range *patch.Attendees {
			attendees = append(attendees, toNativeAttendee(a))
		}
		item.SetAttendees(attendees)
	}
	if patch.Reminders != nil {
		if r, ok := core.MostUrgentReminder(*patch.Reminders); ok {
			on := true
			minutes := int32(r.MinutesBefore)
			item.SetIsReminderOn(&on)
			item.SetReminderMinutesBeforeStart(&minutes)
		} else {
			off := false
			item.SetIsReminderOn(&off)
		}
	}

	return item
}

// fromNative converts a Graph event to the canonical shape. HTML bodies
// are flattened to plain text.
func fromNative(item models.Eventable) core.CalendarEvent {
	event := core.CalendarEvent{
		ID:    derefStr(item.GetId()),
		Title: derefStr(item.GetSubject()),
		Start: parseSDKDateTime(item.GetStart()),
		End:   parseSDKDateTime(item.GetEnd()),
	}

	if body := item.GetBody(); body != nil {
		content := derefStr(body.GetContent())
		if ct := body.GetContentType(); ct != nil && *ct == models.HTML_BODYTYPE {
			content = util.HTMLToText(content, 80)
		}
		event.Description = content
	}

	if loc := item.GetLocation(); loc != nil {
		event.Location = derefStr(loc.GetDisplayName())
	}

	for _, a := range item.GetAttendees() {
		attendee := core.Attendee{Required: true}
		if email := a.GetEmailAddress(); email != nil {
			attendee.Email = derefStr(email.GetAddress())
			attendee.Name = derefStr(email.GetName())
		}
		if t := a.GetTypeEscaped(); t != nil && *t == models.OPTIONAL_ATTENDEETYPE {
			attendee.Required = false
		}
		if status := a.GetStatus(); status != nil && status.GetResponse() != nil {
			attendee.Status = attendeeStatusFromNative[*status.GetResponse()]
		}
		event.Attendees = append(event.Attendees, attendee)
	}

	if derefBool(item.GetIsReminderOn()) {
		minutes := 0
		if m := item.GetReminderMinutesBeforeStart(); m != nil {
			minutes = int(*m)
		}
		event.Reminders = []core.Reminder{{Method: core.ReminderPopup, MinutesBefore: minutes}}
	}

	if rec := item.GetRecurrence(); rec != nil {
		event.Recurrence = fromNativeRecurrence(rec)
	}

	return event
}

func toNativeAttendee(a core.Attendee) models.Attendeeable {
	attendee := models.NewAttendee()

	email := models.NewEmailAddress()
	addr := a.Email
	email.SetAddress(&addr)
	if a.Name != "" {
		name := a.Name
		email.SetName(&name)
	}
	attendee.SetEmailAddress(email)

	attendeeType := models.OPTIONAL_ATTENDEETYPE
	if a.Required {
		attendeeType = models.REQUIRED_ATTENDEETYPE
	}
	attendee.SetTypeEscaped(&attendeeType)

	status := models.NewResponseStatus()
	response := attendeeStatusToNative[a.Status]
	status.SetResponse(&response)
	attendee.SetStatus(status)

	return attendee
}

func toNativeRecurrence(rule core.RecurrenceRule, eventStart time.Time) models.PatternedRecurrenceable {
	pattern := models.NewRecurrencePattern()
	patternType := frequencyToNative[rule.Frequency]
	pattern.SetTypeEscaped(&patternType)

	interval := int32(1)
	if rule.Interval > 1 {
		interval = int32(rule.Interval)
	}
	pattern.SetInterval(&interval)

	if len(rule.Weekdays) > 0 {
		var days []models.DayOfWeek
		for _, wd := range rule.Weekdays {
			days = append(days, weekdayToNative[wd])
		}
		pattern.SetDaysOfWeek(days)
	}

	rangeInfo := models.NewRecurrenceRange()
	rangeInfo.SetStartDate(serialization.NewDateOnly(eventStart))
	switch {
	case rule.Count > 0:
		rangeType := models.NUMBERED_RECURRENCERANGETYPE
		count := int32(rule.Count)
		rangeInfo.SetTypeEscaped(&rangeType)
		rangeInfo.SetNumberOfOccurrences(&count)
	case !rule.Until.IsZero():
		rangeType := models.ENDDATE_RECURRENCERANGETYPE
		rangeInfo.SetTypeEscaped(&rangeType)
		rangeInfo.SetEndDate(serialization.NewDateOnly(rule.Until))
	default:
		rangeType := models.NOEND_RECURRENCERANGETYPE
		rangeInfo.SetTypeEscaped(&rangeType)
	}

	recurrence := models.NewPatternedRecurrence()
	recurrence.SetPattern(pattern)
	recurrence.SetRangeEscaped(rangeInfo)
	return recurrence
}

func fromNativeRecurrence(rec models.PatternedRecurrenceable) *core.RecurrenceRule {
	pattern := rec.GetPattern()
	if pattern == nil || pattern.GetTypeEscaped() == nil {
		return nil
	}

	freq, ok := frequencyFromNative[*pattern.GetTypeEscaped()]
	if !ok {
		return nil
	}

	rule := &core.RecurrenceRule{Frequency: freq, Interval: 1}
	if iv := pattern.GetInterval(); iv != nil && *iv > 0 {
		rule.Interval = int(*iv)
	}
	for _, day := range pattern.GetDaysOfWeek() {
		if wd, found := weekdayFromNative[day]; found {
			rule.Weekdays = append(rule.Weekdays, wd)
		}
	}

	if rangeInfo := rec.GetRangeEscaped(); rangeInfo != nil {
		if n := rangeInfo.GetNumberOfOccurrences(); n != nil && *n > 0 {
			rule.Count = int(*n)
		}
		if endDate := rangeInfo.GetEndDate(); endDate != nil {
			if t, err := time.Parse("2006-01-02", endDate.String()); err == nil {
				rule.Until = t
			}
		}
	}

	return rule
}

func toDateTimeTimeZone(t time.Time) models.DateTimeTimeZoneable {
	dtz := models.NewDateTimeTimeZone()
	formatted := t.UTC().Format(graphTimeLayout)
	tz := "UTC"
	dtz.SetDateTime(&formatted)
	dtz.SetTimeZone(&tz)
	return dtz
}

// parseSDKDateTime converts a Graph SDK DateTimeTimeZone to time.Time.
// Times are in UTC because we set the Prefer: outlook.timezone="UTC" header.
func parseSDKDateTime(dt models.DateTimeTimeZoneable) time.Time {
	if dt == nil {
		return time.Time{}
	}
	dateTimeStr := dt.GetDateTime()
	if dateTimeStr == nil {
		return time.Time{}
	}
	layouts := []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, *dateTimeStr); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
