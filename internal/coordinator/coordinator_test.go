package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/core"
)

// fakeAdapter is a scriptable in-memory adapter.
type fakeAdapter struct {
	name        string
	conflicts   []core.Conflict
	createErr   error
	updateErr   error
	resolveErr  error
	busy        []core.Interval
	slots       []core.TimeSlot
	createCalls int
	resolved    []string
}

func (f *fakeAdapter) Name() string                                          { return f.name }
func (f *fakeAdapter) DisplayName() string                                   { return f.name }
func (f *fakeAdapter) Authenticate(context.Context, core.Credentials) error  { return nil }
func (f *fakeAdapter) IsAuthenticated(context.Context) bool                  { return true }
func (f *fakeAdapter) Disconnect(context.Context) error                      { return nil }

func (f *fakeAdapter) CreateEvent(_ context.Context, event core.CalendarEvent) (core.SyncResult, error) {
	f.createCalls++
	if f.createErr != nil {
		return core.SyncResult{}, f.createErr
	}
	if len(f.conflicts) > 0 && len(f.resolved) < len(f.conflicts) {
		return core.SyncResult{EventID: event.ID, Conflicts: f.conflicts}, nil
	}
	return core.SyncResult{Success: true, EventID: event.ID, ExternalID: "ext-" + f.name}, nil
}

func (f *fakeAdapter) UpdateEvent(_ context.Context, externalID string, _ core.EventPatch) (core.SyncResult, error) {
	if f.updateErr != nil {
		return core.SyncResult{}, f.updateErr
	}
	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

func (f *fakeAdapter) DeleteEvent(_ context.Context, externalID string) (core.SyncResult, error) {
	return core.SyncResult{Success: true, ExternalID: externalID}, nil
}

func (f *fakeAdapter) GetEvent(context.Context, string) (*core.CalendarEvent, error) {
	return nil, nil
}

func (f *fakeAdapter) SyncEvents(context.Context, time.Time, time.Time) ([]core.SyncResult, error) {
	return nil, nil
}

func (f *fakeAdapter) DetectConflicts(context.Context, core.CalendarEvent) ([]core.Conflict, error) {
	return f.conflicts, nil
}

func (f *fakeAdapter) ResolveConflict(_ context.Context, conflictID string, _ core.Resolution) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	f.resolved = append(f.resolved, conflictID)
	return nil
}

func (f *fakeAdapter) GetAvailability(context.Context, time.Time, time.Time) ([]core.Interval, error) {
	return f.busy, nil
}

func (f *fakeAdapter) FindAvailableSlots(context.Context, time.Duration, time.Time, time.Time) ([]core.TimeSlot, error) {
	return f.slots, nil
}

func newTestCoordinator(t *testing.T, policy core.ConflictPolicy, adapters map[string]core.Adapter, enabled map[string]bool) *Coordinator {
	t.Helper()

	cfg := core.IntegrationConfig{ConflictPolicy: policy}
	for name := range adapters {
		cfg.Providers = append(cfg.Providers, core.Provider{Name: name, SyncEnabled: true})
	}

	c, err := New(cfg, adapters, zap.NewNop())
	require.NoError(t, err)

	for name := range adapters {
		c.providers[name].Connected = enabled[name]
	}
	return c
}

func testAppointment() core.Appointment {
	return core.Appointment{
		ID:          "apt-1",
		ServiceName: "Full sleeve",
		ClientName:  "Dana Reyes",
		ClientEmail: "dana@example.com",
		StaffName:   "Sam Ortiz",
		Start:       time.Date(2026, time.March, 2, 14, 0, 0, 0, time.UTC),
		End:         time.Date(2026, time.March, 2, 16, 0, 0, 0, time.UTC),
	}
}

func TestProjectBuildsCanonicalEvent(t *testing.T) {
	c := newTestCoordinator(t, core.PolicyManual,
		map[string]core.Adapter{"google": &fakeAdapter{name: "google"}},
		map[string]bool{"google": true})

	event := c.Project(testAppointment())

	assert.Equal(t, "Full sleeve - Dana Reyes", event.Title)
	assert.Equal(t, "apt-1", event.Metadata["appointment_id"])
	// The staff member has no email and must be filtered out.
	require.Len(t, event.Attendees, 1)
	assert.Equal(t, "dana@example.com", event.Attendees[0].Email)
	assert.True(t, event.Attendees[0].Required)
}

func TestSyncFanOutIsolatesFailures(t *testing.T) {
	adapters := map[string]core.Adapter{
		"google":  &fakeAdapter{name: "google"},
		"outlook": &fakeAdapter{name: "outlook", createErr: errors.New("graph unavailable")},
		"caldav":  &fakeAdapter{name: "caldav"},
	}
	c := newTestCoordinator(t, core.PolicyManual, adapters,
		map[string]bool{"google": true, "outlook": true, "caldav": false})

	results := c.SyncAppointmentToCalendars(context.Background(), testAppointment())

	require.Len(t, results, 3)
	assert.True(t, results["google"].Success)
	assert.False(t, results["outlook"].Success)
	assert.Contains(t, results["outlook"].Error, "graph unavailable")
	// Disconnected providers are reported, not silently skipped.
	assert.False(t, results["caldav"].Success)
	assert.Contains(t, results["caldav"].Error, "not connected")
	assert.Equal(t, 0, adapters["caldav"].(*fakeAdapter).createCalls)
}

func TestManualPolicySurfacesConflicts(t *testing.T) {
	conflicted := &fakeAdapter{name: "google", conflicts: []core.Conflict{{EventID: "busy-1"}}}
	c := newTestCoordinator(t, core.PolicyManual,
		map[string]core.Adapter{"google": conflicted},
		map[string]bool{"google": true})

	results := c.SyncAppointmentToCalendars(context.Background(), testAppointment())

	res := results["google"]
	assert.False(t, res.Success)
	assert.Equal(t, "Manual conflict resolution required", res.Error)
	assert.Len(t, res.Conflicts, 1)
	// Exactly one create attempt, no retry under manual policy.
	assert.Equal(t, 1, conflicted.createCalls)
	assert.Empty(t, conflicted.resolved)
}

func TestSkipPolicySkipsWithoutMutation(t *testing.T) {
	conflicted := &fakeAdapter{name: "google", conflicts: []core.Conflict{{EventID: "busy-1"}}}
	c := newTestCoordinator(t, core.PolicySkip,
		map[string]core.Adapter{"google": conflicted},
		map[string]bool{"google": true})

	results := c.SyncAppointmentToCalendars(context.Background(), testAppointment())

	res := results["google"]
	assert.False(t, res.Success)
	assert.Equal(t, "Conflicts detected, sync skipped", res.Error)
	assert.Empty(t, conflicted.resolved)
}

func TestAutoPolicyResolvesAndRetries(t *testing.T) {
	conflicted := &fakeAdapter{name: "google", conflicts: []core.Conflict{
		{EventID: "busy-1"},
		{EventID: "busy-2"},
	}}
	c := newTestCoordinator(t, core.PolicyAuto,
		map[string]core.Adapter{"google": conflicted},
		map[string]bool{"google": true})

	results := c.SyncAppointmentToCalendars(context.Background(), testAppointment())

	res := results["google"]
	assert.True(t, res.Success)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, []string{"busy-1", "busy-2"}, conflicted.resolved)
	assert.Equal(t, 2, conflicted.createCalls)
}

func TestUpdateUsesExternalIDMap(t *testing.T) {
	adapters := map[string]core.Adapter{
		"google":  &fakeAdapter{name: "google"},
		"outlook": &fakeAdapter{name: "outlook"},
	}
	c := newTestCoordinator(t, core.PolicyManual, adapters,
		map[string]bool{"google": true, "outlook": true})

	title := "Moved"
	results := c.UpdateAppointmentInCalendars(context.Background(),
		core.EventPatch{Title: &title},
		map[string]string{"google": "g-1"})

	require.Len(t, results, 1)
	assert.True(t, results["google"].Success)
	assert.Equal(t, "g-1", results["google"].ExternalID)
}

func TestDetectConflictsOmitsCleanProviders(t *testing.T) {
	adapters := map[string]core.Adapter{
		"google":  &fakeAdapter{name: "google", conflicts: []core.Conflict{{EventID: "busy-1"}}},
		"outlook": &fakeAdapter{name: "outlook"},
	}
	c := newTestCoordinator(t, core.PolicyManual, adapters,
		map[string]bool{"google": true, "outlook": true})

	conflicts := c.DetectConflictsForAppointment(context.Background(), testAppointment())

	require.Len(t, conflicts, 1)
	assert.Len(t, conflicts["google"], 1)
}

func TestFindAvailableSlotsMergesAcrossProviders(t *testing.T) {
	at := func(h, m int) time.Time {
		return time.Date(2026, time.March, 2, h, m, 0, 0, time.UTC)
	}
	adapters := map[string]core.Adapter{
		"google": &fakeAdapter{name: "google", slots: []core.TimeSlot{
			{Start: at(9, 0), End: at(9, 30)},
			{Start: at(11, 0), End: at(11, 30)},
		}},
		"caldav": &fakeAdapter{name: "caldav", slots: []core.TimeSlot{
			{Start: at(9, 30), End: at(10, 0)},
		}},
	}
	c := newTestCoordinator(t, core.PolicyManual, adapters,
		map[string]bool{"google": true, "caldav": true})

	slots := c.FindAvailableSlots(context.Background(), 30*time.Minute, at(9, 0), at(12, 0))

	// Touching candidates merge into one span.
	require.Len(t, slots, 2)
	assert.Equal(t, at(9, 0), slots[0].Start)
	assert.Equal(t, at(10, 0), slots[0].End)
	assert.Equal(t, at(11, 0), slots[1].Start)
}

func TestGetArtistAvailabilityReturnsRawPerProvider(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, time.March, 2, h, 0, 0, 0, time.UTC) }
	adapters := map[string]core.Adapter{
		"google": &fakeAdapter{name: "google", busy: []core.Interval{{Start: at(10), End: at(11)}}},
		"caldav": &fakeAdapter{name: "caldav"},
	}
	c := newTestCoordinator(t, core.PolicyManual, adapters,
		map[string]bool{"google": true, "caldav": true})

	got := c.GetArtistAvailability(context.Background(), at(9), at(17))

	require.Len(t, got["google"], 1)
	assert.Equal(t, at(10), got["google"][0].Start)
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := core.IntegrationConfig{Providers: []core.Provider{{Name: "fastmail"}}}
	_, err := New(cfg, map[string]core.Adapter{}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fastmail")
}
