package caldav

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/core"
)

func TestRemoteOpsRequireConnection(t *testing.T) {
	a := NewCalDAVAdapter(zap.NewNop())
	ctx := context.Background()
	event := core.CalendarEvent{
		Title: "Consult",
		Start: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
	}

	_, err := a.CreateEvent(ctx, event)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.UpdateEvent(ctx, "uid-1", core.EventPatch{})
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.DeleteEvent(ctx, "uid-1")
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.GetEvent(ctx, "uid-1")
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.SyncEvents(ctx, event.Start, event.End)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.DetectConflicts(ctx, event)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.GetAvailability(ctx, event.Start, event.End)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	// keep_local deletes the remote event and must fail the same way
	// instead of panicking on the missing client.
	err = a.ResolveConflict(ctx, "uid-1", core.ResolutionKeepLocal)
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestResolveConflictMergeRejected(t *testing.T) {
	a := NewCalDAVAdapter(zap.NewNop())

	err := a.ResolveConflict(context.Background(), "uid-1", core.ResolutionMerge)
	require.ErrorIs(t, err, core.ErrMergeNotSupported)

	// keep_remote is a no-op success even without a client.
	assert.NoError(t, a.ResolveConflict(context.Background(), "uid-1", core.ResolutionKeepRemote))

	assert.Error(t, a.ResolveConflict(context.Background(), "uid-1", core.Resolution("merge_remote")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("HTTP 404 Not Found")))
	assert.True(t, isNotFound(fmt.Errorf("remove %q: 410 Gone", "/cal/uid.ics")))
	assert.False(t, isNotFound(errors.New("500 Internal Server Error")))
	assert.False(t, isNotFound(nil))
}
