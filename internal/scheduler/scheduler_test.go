package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/core"
)

type fakeSyncer struct {
	mu        sync.Mutex
	providers []core.Provider
	synced    []string
	errs      map[string]error
	block     chan struct{}
}

func (f *fakeSyncer) Providers() []core.Provider { return f.providers }

func (f *fakeSyncer) SyncProviderEvents(_ context.Context, name string, _, _ time.Time) ([]core.SyncResult, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	f.synced = append(f.synced, name)
	return []core.SyncResult{{Success: true}}, nil
}

func enabledProvider(name string) core.Provider {
	return core.Provider{Name: name, Connected: true, SyncEnabled: true}
}

func TestRunOnceSyncsEnabledProvidersOnly(t *testing.T) {
	syncer := &fakeSyncer{providers: []core.Provider{
		enabledProvider("google"),
		{Name: "outlook", Connected: true, SyncEnabled: false},
		{Name: "caldav", Connected: false, SyncEnabled: true},
	}}
	s := New(syncer, time.Minute, zap.NewNop())

	ran := s.RunOnce(context.Background())

	assert.True(t, ran)
	assert.Equal(t, []string{"google"}, syncer.synced)
}

func TestRunOnceContinuesPastProviderFailure(t *testing.T) {
	syncer := &fakeSyncer{
		providers: []core.Provider{enabledProvider("google"), enabledProvider("caldav")},
		errs:      map[string]error{"google": errors.New("token expired")},
	}
	s := New(syncer, time.Minute, zap.NewNop())

	ran := s.RunOnce(context.Background())

	assert.True(t, ran)
	assert.Equal(t, []string{"caldav"}, syncer.synced)
}

func TestInFlightPassSkipsOverlappingTick(t *testing.T) {
	syncer := &fakeSyncer{
		providers: []core.Provider{enabledProvider("google")},
		block:     make(chan struct{}),
	}
	s := New(syncer, time.Minute, zap.NewNop())

	firstDone := make(chan bool)
	go func() { firstDone <- s.RunOnce(context.Background()) }()

	// Wait until the first pass holds the flag, then tick again.
	require.Eventually(t, func() bool { return s.inFlight.Load() }, time.Second, time.Millisecond)
	assert.False(t, s.RunOnce(context.Background()))

	close(syncer.block)
	assert.True(t, <-firstDone)
	assert.Equal(t, []string{"google"}, syncer.synced)
}

func TestNewDefaultsInterval(t *testing.T) {
	s := New(&fakeSyncer{}, 0, zap.NewNop())
	assert.Equal(t, core.DefaultSyncInterval, s.interval)
}
