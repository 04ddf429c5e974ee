// Package scheduler drives periodic reconciliation against every enabled
// provider over a forward-looking window.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/core"
)

// DefaultWindow is how far ahead each reconciliation pass looks.
const DefaultWindow = 30 * 24 * time.Hour

// Syncer is the slice of the coordinator the scheduler drives.
type Syncer interface {
	Providers() []core.Provider
	SyncProviderEvents(ctx context.Context, name string, start, end time.Time) ([]core.SyncResult, error)
}

// Scheduler re-syncs remote events on a fixed interval. A single atomic
// in-flight flag guards the pass: a tick that lands while a pass is still
// running is skipped, not queued, so slow providers never build a backlog.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	window   time.Duration
	inFlight atomic.Bool
	logger   *zap.Logger
}

func New(syncer Syncer, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = core.DefaultSyncInterval
	}
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		window:   DefaultWindow,
		logger:   logger.Named("scheduler"),
	}
}

// Run ticks until the context is cancelled. It runs one pass immediately
// so a fresh start does not wait a full interval for its first sync.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("periodic sync started", zap.Duration("interval", s.interval))

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("periodic sync stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation pass. It reports false when a
// pass was already in flight and nothing ran.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("sync pass already in flight, skipping tick")
		return false
	}
	defer s.inFlight.Store(false)

	now := time.Now()
	start, end := now, now.Add(s.window)

	for _, provider := range s.syncer.Providers() {
		if !provider.Enabled() {
			continue
		}
		results, err := s.syncer.SyncProviderEvents(ctx, provider.Name, start, end)
		if err != nil {
			// Next tick retries naturally; no in-pass retry.
			s.logger.Warn("provider sync failed",
				zap.String("provider", provider.Name), zap.Error(err))
			continue
		}
		s.logger.Info("provider synced",
			zap.String("provider", provider.Name),
			zap.Int("events", len(results)))
	}
	return true
}
