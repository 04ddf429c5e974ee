// Package caldav implements the calendar capability set for CalDAV servers
// (iCloud, Fastmail, self-hosted Radicale/Baïkal and friends).
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/availability"
	"github.com/inkwell/calsync/internal/core"
)

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calsync/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVAdapter talks to one calendar collection on a CalDAV server.
// External event IDs are iCalendar UIDs; the object path for a UID is
// <calendar>/<uid>.ics.
type CalDAVAdapter struct {
	name        string
	displayName string

	client       *caldav.Client
	calendarPath string
	connected    bool
	logger       *zap.Logger
}

func NewCalDAVAdapter(logger *zap.Logger) *CalDAVAdapter {
	return &CalDAVAdapter{
		name:        core.ProviderCalDAV,
		displayName: "CalDAV Calendar",
		logger:      logger.Named("caldav"),
	}
}

func (c *CalDAVAdapter) Name() string        { return c.name }
func (c *CalDAVAdapter) DisplayName() string { return c.displayName }

// Authenticate builds the CalDAV client, discovers the target calendar
// collection and validates the credentials along the way.
func (c *CalDAVAdapter) Authenticate(ctx context.Context, creds core.Credentials) error {
	if creds.ServerURL == "" {
		return &core.AuthError{Provider: c.name, Err: fmt.Errorf("no server URL supplied")}
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			Username:  creds.Username,
			Password:  creds.Password,
			Transport: http.DefaultTransport,
		},
	}

	client, err := caldav.NewClient(httpClient, creds.ServerURL)
	if err != nil {
		return &core.AuthError{Provider: c.name, Err: fmt.Errorf("create caldav client: %w", err)}
	}

	calendarPath, err := findCalendar(ctx, client, creds.CalendarID)
	if err != nil {
		c.connected = false
		return &core.AuthError{Provider: c.name, Err: err}
	}

	c.client = client
	c.calendarPath = calendarPath
	c.connected = true
	c.logger.Debug("calendar discovered", zap.String("path", calendarPath))
	return nil
}

// IsAuthenticated re-validates with a fresh principal lookup.
func (c *CalDAVAdapter) IsAuthenticated(ctx context.Context) bool {
	if !c.connected || c.client == nil {
		return false
	}
	if _, err := c.client.FindCurrentUserPrincipal(ctx); err != nil {
		c.logger.Warn("authentication check failed", zap.Error(err))
		c.connected = false
		return false
	}
	return true
}

// Disconnect clears client state. Safe to call twice.
func (c *CalDAVAdapter) Disconnect(ctx context.Context) error {
	c.client = nil
	c.calendarPath = ""
	c.connected = false
	return nil
}

// CreateEvent detects conflicts first; on any conflict no remote write
// happens and the result carries the conflict list.
func (c *CalDAVAdapter) CreateEvent(ctx context.Context, event core.CalendarEvent) (core.SyncResult, error) {
	if !event.Valid() {
		return core.SyncResult{}, fmt.Errorf("event end must be after start")
	}
	if c.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	conflicts, err := c.DetectConflicts(ctx, event)
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "detect conflicts", Err: err}
	}
	if len(conflicts) > 0 {
		return core.SyncResult{EventID: event.ID, Conflicts: conflicts}, nil
	}

	uid := event.ID
	if uid == "" {
		uid = uuid.New().String()
	}

	if _, err := c.client.PutCalendarObject(ctx, c.objectPath(uid), wrapCalendar(toNative(event, uid))); err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "create event", Err: err}
	}

	return core.SyncResult{Success: true, EventID: event.ID, ExternalID: uid}, nil
}

// UpdateEvent fetches the stored object, mutates only the patched
// properties on the existing VEVENT and writes the object back, so
// properties outside the canonical model survive.
func (c *CalDAVAdapter) UpdateEvent(ctx context.Context, externalID string, patch core.EventPatch) (core.SyncResult, error) {
	if c.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	obj, err := c.client.GetCalendarObject(ctx, c.objectPath(externalID))
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "fetch event for update", Err: err}
	}

	comp := findEvent(obj.Data)
	if comp == nil {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "update event", Err: fmt.Errorf("object %s has no VEVENT", obj.Path)}
	}

	applyPatch(comp, patch)

	if _, err := c.client.PutCalendarObject(ctx, obj.Path, obj.Data); err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "update event", Err: err}
	}

	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

// DeleteEvent removes the stored object; not-found counts as success.
func (c *CalDAVAdapter) DeleteEvent(ctx context.Context, externalID string) (core.SyncResult, error) {
	if c.client == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	err := c.client.RemoveAll(ctx, c.objectPath(externalID))
	if err != nil && !isNotFound(err) {
		return core.SyncResult{}, &core.SyncError{Provider: c.name, Op: "delete event", Err: err}
	}
	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

// GetEvent returns nil without error when the object does not exist.
func (c *CalDAVAdapter) GetEvent(ctx context.Context, externalID string) (*core.CalendarEvent, error) {
	if c.client == nil {
		return nil, core.ErrNotConnected
	}

	obj, err := c.client.GetCalendarObject(ctx, c.objectPath(externalID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &core.SyncError{Provider: c.name, Op: "get event", Err: err}
	}

	comp := findEvent(obj.Data)
	if comp == nil {
		return nil, nil
	}

	event, err := fromNative(comp)
	if err != nil {
		return nil, &core.SyncError{Provider: c.name, Op: "map event", Err: err}
	}
	return &event, nil
}

// SyncEvents maps every remote event in [start, end) to one result.
func (c *CalDAVAdapter) SyncEvents(ctx context.Context, start, end time.Time) ([]core.SyncResult, error) {
	comps, err := c.queryRange(ctx, start, end)
	if err != nil {
		return nil, &core.SyncError{Provider: c.name, Op: "query events", Err: err}
	}

	results := make([]core.SyncResult, 0, len(comps))
	for _, comp := range comps {
		event, err := fromNative(comp)
		if err != nil {
			results = append(results, core.SyncResult{Error: fmt.Sprintf("map event: %v", err)})
			continue
		}
		results = append(results, core.SyncResult{
			Success:    true,
			EventID:    event.Metadata["appointment_id"],
			ExternalID: event.ID,
		})
	}
	return results, nil
}

// DetectConflicts reports every stored event strictly overlapping the
// candidate window. Boundary-touching events never conflict.
func (c *CalDAVAdapter) DetectConflicts(ctx context.Context, event core.CalendarEvent) ([]core.Conflict, error) {
	comps, err := c.queryRange(ctx, event.Start, event.End)
	if err != nil {
		return nil, err
	}

	var conflicts []core.Conflict
	for _, comp := range comps {
		if isCancelled(comp) {
			continue
		}
		remote, err := fromNative(comp)
		if err != nil {
			continue
		}
		if remote.Metadata["appointment_id"] != "" &&
			remote.Metadata["appointment_id"] == event.Metadata["appointment_id"] {
			continue
		}
		if !remote.Overlaps(event.Start, event.End) {
			continue
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
	}
	return conflicts, nil
}

// ResolveConflict applies the resolution to a previously detected conflict.
func (c *CalDAVAdapter) ResolveConflict(ctx context.Context, conflictID string, resolution core.Resolution) error {
	switch resolution {
	case core.ResolutionKeepLocal:
		_, err := c.DeleteEvent(ctx, conflictID)
		return err
	case core.ResolutionKeepRemote:
		return nil
	case core.ResolutionMerge:
		return core.ErrMergeNotSupported
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}
}

// GetAvailability reports busy intervals from stored events. Events marked
// transparent or cancelled do not block the range.
func (c *CalDAVAdapter) GetAvailability(ctx context.Context, start, end time.Time) ([]core.Interval, error) {
	comps, err := c.queryRange(ctx, start, end)
	if err != nil {
		return nil, &core.SyncError{Provider: c.name, Op: "query busy events", Err: err}
	}

	var intervals []core.Interval
	for _, comp := range comps {
		if isTransparent(comp) || isCancelled(comp) {
			continue
		}
		event, err := fromNative(comp)
		if err != nil {
			continue
		}
		intervals = append(intervals, core.Interval{Start: event.Start, End: event.End})
	}
	return intervals, nil
}

// FindAvailableSlots walks the gaps between this provider's busy intervals.
func (c *CalDAVAdapter) FindAvailableSlots(ctx context.Context, duration time.Duration, start, end time.Time) ([]core.TimeSlot, error) {
	busy, err := c.GetAvailability(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return availability.SlotsBetween(busy, duration, start, end), nil
}

// queryRange issues a calendar-query REPORT for VEVENTs in [start, end).
func (c *CalDAVAdapter) queryRange(ctx context.Context, start, end time.Time) ([]*ical.Component, error) {
	if c.client == nil {
		return nil, core.ErrNotConnected
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{
				{Name: ical.CompEvent, AllProps: true},
			},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{Name: ical.CompEvent, Start: start.UTC(), End: end.UTC()},
			},
		},
	}

	objs, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed: %w", err)
	}

	var comps []*ical.Component
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, child := range obj.Data.Children {
			if child.Name == ical.CompEvent {
				comps = append(comps, child)
			}
		}
	}
	return comps, nil
}

func (c *CalDAVAdapter) objectPath(uid string) string {
	return path.Join(c.calendarPath, uid+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the
// one with the matching name, or the first event-capable one when no name
// is configured.
func findCalendar(ctx context.Context, client *caldav.Client, name string) (string, error) {
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}

	calendars, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}

	for _, cal := range calendars {
		if name != "" {
			if cal.Name == name {
				return cal.Path, nil
			}
			continue
		}
		if supportsEvents(cal) {
			return cal.Path, nil
		}
	}

	if name != "" {
		return "", fmt.Errorf("no calendar named %q", name)
	}
	return "", fmt.Errorf("no event calendar found")
}

func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if comp == ical.CompEvent {
			return true
		}
	}
	return false
}

// isNotFound detects missing-object responses. The caldav client wraps
// HTTP failures in unexported error types, so the status code is only
// observable through the error text.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "410")
}
