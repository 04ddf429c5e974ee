package outlook

import (
	"context"
	"fmt"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/inkwell/calsync/internal/availability"
	"github.com/inkwell/calsync/internal/core"
)

// CreateEvent detects conflicts first; on any conflict no remote write
// happens and the result carries the conflict list.
func (o *OutlookAdapter) CreateEvent(ctx context.Context, event core.CalendarEvent) (core.SyncResult, error) {
	if !event.Valid() {
		return core.SyncResult{}, fmt.Errorf("event end must be after start")
	}
	if o.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	conflicts, err := o.DetectConflicts(ctx, event)
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: o.name, Op: "detect conflicts", Err: err}
	}
	if len(conflicts) > 0 {
		return core.SyncResult{EventID: event.ID, Conflicts: conflicts}, nil
	}

	var created models.Eventable
	if o.calendarID == "" {
		created, err = o.client.Me().Events().Post(ctx, toNative(event), nil)
	} else {
		created, err = o.client.Me().Calendars().ByCalendarId(o.calendarID).Events().Post(ctx, toNative(event), nil)
	}
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: o.name, Op: "create event", Err: err}
	}

	return core.SyncResult{Success: true, EventID: event.ID, ExternalID: derefStr(created.GetId())}, nil
}

// UpdateEvent fetches the remote event, sends only the patched fields and
// lets Graph's PATCH semantics preserve everything else.
func (o *OutlookAdapter) UpdateEvent(ctx context.Context, externalID string, patch core.EventPatch) (core.SyncResult, error) {
	if o.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	// Confirm the event still exists before patching.
	if _, err := o.client.Me().Events().ByEventId(externalID).Get(ctx, nil); err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: o.name, Op: "fetch event for update", Err: err}
	}

	updated, err := o.client.Me().Events().ByEventId(externalID).Patch(ctx, patchToNative(patch), nil)
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: o.name, Op: "update event", Err: err}
	}

	return core.SyncResult{Success: true, ExternalID: derefStr(updated.GetId())}, nil
}

// DeleteEvent removes the remote event; not-found counts as success.
func (o *OutlookAdapter) DeleteEvent(ctx context.Context, externalID string) (core.SyncResult, error) {
	if o.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	err := o.client.Me().Events().ByEventId(externalID).Delete(ctx, nil)
	if err != nil && !isNotFound(err) {
		return core.SyncResult{}, &core.SyncError{Provider: o.name, Op: "delete event", Err: err}
	}
	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

// GetEvent returns nil without error when the event does not exist.
func (o *OutlookAdapter) GetEvent(ctx context.Context, externalID string) (*core.CalendarEvent, error) {
	if o.client == nil {
		return nil, core.ErrNotConnected
	}

	item, err := o.client.Me().Events().ByEventId(externalID).Get(ctx, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &core.SyncError{Provider: o.name, Op: "get event", Err: err}
	}

	event := fromNative(item)
	return &event, nil
}

// SyncEvents maps every remote event in [start, end) to one result.
func (o *OutlookAdapter) SyncEvents(ctx context.Context, start, end time.Time) ([]core.SyncResult, error) {
	var results []core.SyncResult
	err := o.iterateRange(ctx, start, end, func(item models.Eventable) {
		if derefBool(item.GetIsCancelled()) {
			return
		}
		event := fromNative(item)
		if !event.Valid() {
			results = append(results, core.SyncResult{
				ExternalID: event.ID,
				Error:      "event has no usable start/end time",
			})
			return
		}
		results = append(results, core.SyncResult{Success: true, ExternalID: event.ID})
	})
	if err != nil {
		return nil, &core.SyncError{Provider: o.name, Op: "list events", Err: err}
	}
	return results, nil
}

// DetectConflicts lists remote events in the candidate window and reports
// every strict overlap. Boundary-touching events never conflict.
func (o *OutlookAdapter) DetectConflicts(ctx context.Context, event core.CalendarEvent) ([]core.Conflict, error) {
	var conflicts []core.Conflict
	err := o.iterateRange(ctx, event.Start, event.End, func(item models.Eventable) {
		if derefBool(item.GetIsCancelled()) {
			return
		}
		remote := fromNative(item)
		if !remote.Overlaps(event.Start, event.End) {
			return
		}
		conflicts = append(conflicts, core.Conflict{
			EventID:    remote.ID,
			Title:      remote.Title,
			Start:      remote.Start,
			End:        remote.End,
			Type:       core.ConflictOverlap,
			Severity:   core.SeverityHigh,
			Suggestion: fmt.Sprintf("overlaps %q; reschedule or resolve before syncing", remote.Title),
		})
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// ResolveConflict applies the resolution to a previously detected conflict.
func (o *OutlookAdapter) ResolveConflict(ctx context.Context, conflictID string, resolution core.Resolution) error {
	switch resolution {
	case core.ResolutionKeepLocal:
		_, err := o.DeleteEvent(ctx, conflictID)
		return err
	case core.ResolutionKeepRemote:
		return nil
	case core.ResolutionMerge:
		return core.ErrMergeNotSupported
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}
}

// GetAvailability reports busy intervals derived from the calendar view.
// Events shown as free or working-elsewhere do not block the range.
func (o *OutlookAdapter) GetAvailability(ctx context.Context, start, end time.Time) ([]core.Interval, error) {
	var intervals []core.Interval
	err := o.iterateRange(ctx, start, end, func(item models.Eventable) {
		if derefBool(item.GetIsCancelled()) {
			return
		}
		if showAs := item.GetShowAs(); showAs != nil {
			switch *showAs {
			case models.FREE_FREEBUSYSTATUS, models.WORKINGELSEWHERE_FREEBUSYSTATUS:
				return
			}
		}
		remote := fromNative(item)
		if !remote.Valid() {
			return
		}
		intervals = append(intervals, core.Interval{Start: remote.Start, End: remote.End})
	})
	if err != nil {
		return nil, &core.SyncError{Provider: o.name, Op: "list busy events", Err: err}
	}
	return intervals, nil
}

// FindAvailableSlots walks the gaps between this provider's busy intervals.
func (o *OutlookAdapter) FindAvailableSlots(ctx context.Context, duration time.Duration, start, end time.Time) ([]core.TimeSlot, error) {
	busy, err := o.GetAvailability(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return availability.SlotsBetween(busy, duration, start, end), nil
}

// iterateRange pages through the calendar view for [start, end) and calls
// visit for every event.
func (o *OutlookAdapter) iterateRange(ctx context.Context, start, end time.Time, visit func(models.Eventable)) error {
	if o.client == nil {
		return core.ErrNotConnected
	}

	startStr := start.UTC().Format(time.RFC3339)
	endStr := end.UTC().Format(time.RFC3339)
	selectFields := []string{
		"id", "iCalUId", "subject", "body", "start", "end", "location",
		"isAllDay", "showAs", "attendees", "isReminderOn",
		"reminderMinutesBeforeStart", "recurrence", "isCancelled",
	}
	orderBy := []string{"start/dateTime"}
	top := int32(100)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	var result models.EventCollectionResponseable
	var err error

	if o.calendarID == "" {
		config := &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().CalendarView().Get(ctx, config)
	} else {
		config := &users.ItemCalendarsItemCalendarViewRequestBuilderGetRequestConfiguration{
			QueryParameters: &users.ItemCalendarsItemCalendarViewRequestBuilderGetQueryParameters{
				StartDateTime: &startStr,
				EndDateTime:   &endStr,
				Select:        selectFields,
				Orderby:       orderBy,
				Top:           &top,
			},
			Headers: headers,
		}
		result, err = o.client.Me().Calendars().ByCalendarId(o.calendarID).CalendarView().Get(ctx, config)
	}
	if err != nil {
		return fmt.Errorf("fetch calendar view: %w", err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		o.client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return fmt.Errorf("create page iterator: %w", err)
	}

	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		visit(item)
		return true
	})
	if err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	return nil
}
