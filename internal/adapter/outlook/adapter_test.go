package outlook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/core"
)

func TestRemoteOpsRequireConnection(t *testing.T) {
	a := NewOutlookAdapter(zap.NewNop())
	ctx := context.Background()
	event := core.CalendarEvent{
		Title: "Consult",
		Start: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
	}

	_, err := a.CreateEvent(ctx, event)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.UpdateEvent(ctx, "evt-1", core.EventPatch{})
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.DeleteEvent(ctx, "evt-1")
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.GetEvent(ctx, "evt-1")
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.SyncEvents(ctx, event.Start, event.End)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.DetectConflicts(ctx, event)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	_, err = a.GetAvailability(ctx, event.Start, event.End)
	assert.ErrorIs(t, err, core.ErrNotConnected)

	err = a.ResolveConflict(ctx, "evt-1", core.ResolutionKeepLocal)
	assert.ErrorIs(t, err, core.ErrNotConnected)
}

func TestResolveConflictMergeRejected(t *testing.T) {
	a := NewOutlookAdapter(zap.NewNop())

	err := a.ResolveConflict(context.Background(), "evt-1", core.ResolutionMerge)
	require.ErrorIs(t, err, core.ErrMergeNotSupported)

	assert.NoError(t, a.ResolveConflict(context.Background(), "evt-1", core.ResolutionKeepRemote))

	assert.Error(t, a.ResolveConflict(context.Background(), "evt-1", core.Resolution("overwrite")))
}
