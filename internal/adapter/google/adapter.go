package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/inkwell/calsync/internal/availability"
	"github.com/inkwell/calsync/internal/core"
)

// GoogleAdapter implements the calendar capability set for Google Calendar
// using the official API client.
type GoogleAdapter struct {
	name        string
	displayName string
	calendarID  string

	service   *calendar.Service
	connected bool
	logger    *zap.Logger
}

func NewGoogleAdapter(logger *zap.Logger) *GoogleAdapter {
	return &GoogleAdapter{
		name:        core.ProviderGoogle,
		displayName: "Google Calendar",
		calendarID:  "primary",
		logger:      logger.Named("google"),
	}
}

func (g *GoogleAdapter) Name() string        { return g.name }
func (g *GoogleAdapter) DisplayName() string { return g.displayName }

// Authenticate builds the Calendar service from the supplied credentials
// and validates it with a single cheap calendar list call.
func (g *GoogleAdapter) Authenticate(ctx context.Context, creds core.Credentials) error {
	tok := creds.Token
	if tok == nil && creds.TokenFile != "" {
		var err error
		tok, err = tokenFromFile(creds.TokenFile)
		if err != nil {
			return &core.AuthError{Provider: g.name, Err: fmt.Errorf("read token file: %w", err)}
		}
	}
	if tok == nil {
		return &core.AuthError{Provider: g.name, Err: fmt.Errorf("no OAuth token supplied")}
	}

	config, err := oauthConfig(creds)
	if err != nil {
		return &core.AuthError{Provider: g.name, Err: err}
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return &core.AuthError{Provider: g.name, Err: err}
	}

	// One cheap read-only call to prove the credentials work.
	if _, err := service.CalendarList.List().MaxResults(1).Context(ctx).Do(); err != nil {
		g.connected = false
		return &core.AuthError{Provider: g.name, Err: err}
	}

	if creds.CalendarID != "" {
		g.calendarID = creds.CalendarID
	}
	g.service = service
	g.connected = true
	return nil
}

// IsAuthenticated re-validates the connection with a fresh cheap call.
// Any failure flips the adapter to disconnected.
func (g *GoogleAdapter) IsAuthenticated(ctx context.Context) bool {
	if !g.connected || g.service == nil {
		return false
	}
	if _, err := g.service.CalendarList.List().MaxResults(1).Context(ctx).Do(); err != nil {
		g.logger.Warn("authentication check failed", zap.Error(err))
		g.connected = false
		return false
	}
	return true
}

// Disconnect clears credential state. Safe to call twice.
func (g *GoogleAdapter) Disconnect(ctx context.Context) error {
	g.service = nil
	g.connected = false
	return nil
}

// CreateEvent detects conflicts first; on any conflict no remote write
// happens and the result carries the conflict list.
func (g *GoogleAdapter) CreateEvent(ctx context.Context, event core.CalendarEvent) (core.SyncResult, error) {
	if !event.Valid() {
		return core.SyncResult{}, fmt.Errorf("event end must be after start")
	}
	if g.service == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	conflicts, err := g.DetectConflicts(ctx, event)
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: g.name, Op: "detect conflicts", Err: err}
	}
	if len(conflicts) > 0 {
		return core.SyncResult{EventID: event.ID, Conflicts: conflicts}, nil
	}

	created, err := g.service.Events.Insert(g.calendarID, toNative(event)).Context(ctx).Do()
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: g.name, Op: "create event", Err: err}
	}

	g.logger.Debug("event created", zap.String("external_id", created.Id))
	return core.SyncResult{Success: true, EventID: event.ID, ExternalID: created.Id}, nil
}

// UpdateEvent reads the current remote event, applies only the supplied
// fields onto the native shape and writes it back. Remote fields outside
// the patch are preserved.
func (g *GoogleAdapter) UpdateEvent(ctx context.Context, externalID string, patch core.EventPatch) (core.SyncResult, error) {
	if g.service == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	remote, err := g.service.Events.Get(g.calendarID, externalID).Context(ctx).Do()
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: g.name, Op: "fetch event for update", Err: err}
	}

	applyPatch(remote, patch)

	updated, err := g.service.Events.Update(g.calendarID, externalID, remote).Context(ctx).Do()
	if err != nil {
		return core.SyncResult{}, &core.SyncError{Provider: g.name, Op: "update event", Err: err}
	}

	return core.SyncResult{Success: true, ExternalID: updated.Id}, nil
}

// DeleteEvent removes the remote event. A remote not-found counts as
// success so deletes are idempotent.
func (g *GoogleAdapter) DeleteEvent(ctx context.Context, externalID string) (core.SyncResult, error) {
	if g.service == nil {
		return core.SyncResult{}, core.ErrNotConnected
	}

	err := g.service.Events.Delete(g.calendarID, externalID).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return core.SyncResult{}, &core.SyncError{Provider: g.name, Op: "delete event", Err: err}
	}
	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

// GetEvent returns nil without error when the event does not exist.
func (g *GoogleAdapter) GetEvent(ctx context.Context, externalID string) (*core.CalendarEvent, error) {
	if g.service == nil {
		return nil, core.ErrNotConnected
	}

	item, err := g.service.Events.Get(g.calendarID, externalID).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &core.SyncError{Provider: g.name, Op: "get event", Err: err}
	}

	event, err := fromNative(item)
	if err != nil {
		return nil, &core.SyncError{Provider: g.name, Op: "map event", Err: err}
	}
	return &event, nil
}

// SyncEvents maps every remote event in [start, end) to one result.
// Per-event mapping failures become failed entries, not a failed batch.
func (g *GoogleAdapter) SyncEvents(ctx context.Context, start, end time.Time) ([]core.SyncResult, error) {
	items, err := g.listRange(ctx, start, end)
	if err != nil {
		return nil, &core.SyncError{Provider: g.name, Op: "list events", Err: err}
	}

	results := make([]core.SyncResult, 0, len(items))
	for _, item := range items {
		event, err := fromNative(item)
		if err != nil {
			results = append(results, core.SyncResult{
				ExternalID: item.Id,
				Error:      fmt.Sprintf("map event: %v", err),
			})
			continue
		}
		results = append(results, core.SyncResult{
			Success:    true,
			EventID:    event.Metadata["appointment_id"],
			ExternalID: item.Id,
		})
	}
	return results, nil
}

// DetectConflicts lists remote events around the candidate window and
// reports every strict overlap. Boundary-touching events never conflict.
func (g *GoogleAdapter) DetectConflicts(ctx context.Context, event core.CalendarEvent) ([]core.Conflict, error) {
	items, err := g.listRange(ctx, event.Start, event.End)
	if err != nil {
		return nil, err
	}

	var conflicts []core.Conflict
	for _, item := range items {
		remote, err := fromNative(item)
		if err != nil {
			continue
		}
		if remote.Metadata["appointment_id"] != "" &&
			remote.Metadata["appointment_id"] == event.Metadata["appointment_id"] {
			// The event's own mirror is not a conflict.
			continue
		}
		if !remote.Overlaps(event.Start, event.End) {
			continue
		}
		conflicts = append(conflicts, core.Conflict{
			EventID:    item.Id,
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
func (g *GoogleAdapter) ResolveConflict(ctx context.Context, conflictID string, resolution core.Resolution) error {
	switch resolution {
	case core.ResolutionKeepLocal:
		_, err := g.DeleteEvent(ctx, conflictID)
		return err
	case core.ResolutionKeepRemote:
		return nil
	case core.ResolutionMerge:
		return core.ErrMergeNotSupported
	default:
		return fmt.Errorf("unknown resolution %q", resolution)
	}
}

// GetAvailability reports busy intervals via the free/busy API.
func (g *GoogleAdapter) GetAvailability(ctx context.Context, start, end time.Time) ([]core.Interval, error) {
	if g.service == nil {
		return nil, core.ErrNotConnected
	}

	resp, err := g.service.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: g.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, &core.SyncError{Provider: g.name, Op: "free/busy query", Err: err}
	}

	cal, ok := resp.Calendars[g.calendarID]
	if !ok {
		return nil, nil
	}

	var intervals []core.Interval
	for _, period := range cal.Busy {
		busyStart, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			continue
		}
		busyEnd, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, core.Interval{Start: busyStart, End: busyEnd})
	}
	return intervals, nil
}

// FindAvailableSlots walks the gaps between this provider's busy intervals.
func (g *GoogleAdapter) FindAvailableSlots(ctx context.Context, duration time.Duration, start, end time.Time) ([]core.TimeSlot, error) {
	busy, err := g.GetAvailability(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return availability.SlotsBetween(busy, duration, start, end), nil
}

// listRange fetches all events overlapping [start, end), following pages.
func (g *GoogleAdapter) listRange(ctx context.Context, start, end time.Time) ([]*calendar.Event, error) {
	if g.service == nil {
		return nil, core.ErrNotConnected
	}

	var items []*calendar.Event
	pageToken := ""

	for {
		req := g.service.Events.List(g.calendarID).
			ShowDeleted(false).
			SingleEvents(true).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			OrderBy("startTime").
			Context(ctx)

		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		result, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("api call failed for calendar %s: %w", g.calendarID, err)
		}

		items = append(items, result.Items...)

		pageToken = result.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return items, nil
}

func isNotFound(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code == 404 || gerr.Code == 410
	}
	return false
}

// oauthConfig builds the OAuth2 config from a credentials JSON file or the
// bare client ID.
func oauthConfig(creds core.Credentials) (*oauth2.Config, error) {
	if creds.CredentialsFile != "" {
		b, err := os.ReadFile(creds.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		config, err := google.ConfigFromJSON(b, calendar.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return config, nil
	}
	return &oauth2.Config{
		ClientID: creds.ClientID,
		Endpoint: google.Endpoint,
		Scopes:   []string{calendar.CalendarScope},
	}, nil
}

// tokenFromFile reads an OAuth token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}
