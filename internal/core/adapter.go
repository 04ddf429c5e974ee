package core

import (
	"context"
	"time"
)

// ConflictType classifies why two events collide.
type ConflictType string

const (
	ConflictOverlap    ConflictType = "overlap"
	ConflictDuplicate  ConflictType = "duplicate"
	ConflictScheduling ConflictType = "scheduling"
)

// Severity of a detected conflict.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Resolution strategies for a detected conflict.
type Resolution string

const (
	// Delete the remote conflicting event, keeping the local one.
	ResolutionKeepLocal Resolution = "keep_local"
	// Leave the remote event alone.
	ResolutionKeepRemote Resolution = "keep_remote"
	// Combine both events. Not supported by any adapter; always rejected.
	ResolutionMerge Resolution = "merge"
)

// Conflict is a detected collision between a candidate event and an
// existing remote event.
type Conflict struct {
	// ID of the remote event involved
	EventID    string
	Title      string
	Start      time.Time
	End        time.Time
	Type       ConflictType
	Severity   Severity
	Suggestion string
}

// SyncResult is the outcome of one event operation against one provider.
type SyncResult struct {
	Success bool
	// Canonical event ID (the appointment-side identity)
	EventID string
	// Provider-native event ID
	ExternalID string
	Conflicts  []Conflict
	// Human-readable failure reason; empty on success
	Error string
}

// Interval is a busy or free span reported by one source.
// Adapters report only busy spans (Available == false); absence of an
// interval for a sub-range implies availability.
type Interval struct {
	Start     time.Time
	End       time.Time
	Available bool
}

// TimeSlot is a candidate booking window.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}

// Adapter implements the calendar capability set for one external calendar
// system. Implementations hold per-provider credential state and no event
// state; all event truth lives with the remote system.
//
// Methods that reach the remote system take a context and return an error
// for transport or credential failures. The coordinator converts those
// errors into per-provider SyncResult entries.
type Adapter interface {
	// Name returns the provider key (e.g. "google", "outlook", "caldav").
	Name() string
	// DisplayName returns a human-readable label (e.g. "Google Calendar").
	DisplayName() string

	// Authenticate validates the supplied credentials with one cheap
	// read-only remote call. Idempotent. Returns an *AuthError and leaves
	// the adapter disconnected on failure.
	Authenticate(ctx context.Context, creds Credentials) error
	// IsAuthenticated performs a fresh cheap validity check. It never
	// returns an error; any failure flips the adapter to disconnected.
	IsAuthenticated(ctx context.Context) bool
	// Disconnect revokes where possible and clears credential state.
	// Safe to call twice.
	Disconnect(ctx context.Context) error

	// CreateEvent detects conflicts first and performs no remote write if
	// any exist (the returned result carries them). Otherwise the event is
	// mapped to the provider's native shape and created remotely.
	CreateEvent(ctx context.Context, event CalendarEvent) (SyncResult, error)
	// UpdateEvent applies only the supplied fields over the current remote
	// event (fetch-merge-write); unspecified remote fields are preserved.
	UpdateEvent(ctx context.Context, externalID string, patch EventPatch) (SyncResult, error)
	// DeleteEvent removes the remote event. Remote not-found is success.
	DeleteEvent(ctx context.Context, externalID string) (SyncResult, error)
	// GetEvent returns nil (and no error) when the event does not exist.
	GetEvent(ctx context.Context, externalID string) (*CalendarEvent, error)
	// SyncEvents maps every remote event in [start, end) to a result.
	// Per-event mapping failures are reported individually and do not
	// abort the batch.
	SyncEvents(ctx context.Context, start, end time.Time) ([]SyncResult, error)

	// DetectConflicts lists remote events strictly overlapping the
	// candidate. Boundary-touching events never conflict.
	DetectConflicts(ctx context.Context, event CalendarEvent) ([]Conflict, error)
	// ResolveConflict applies the given resolution to a previously
	// detected conflict. ResolutionMerge always fails.
	ResolveConflict(ctx context.Context, conflictID string, resolution Resolution) error

	// GetAvailability returns the provider's busy intervals in [start, end).
	GetAvailability(ctx context.Context, start, end time.Time) ([]Interval, error)
	// FindAvailableSlots returns open windows of at least duration length
	// between the provider's busy intervals.
	FindAvailableSlots(ctx context.Context, duration time.Duration, start, end time.Time) ([]TimeSlot, error)
}
