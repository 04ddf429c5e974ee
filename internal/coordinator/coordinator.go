// Package coordinator fans calendar operations out to every configured
// provider adapter and aggregates per-provider outcomes. A failure in one
// adapter never aborts the others.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell/calsync/internal/availability"
	"github.com/inkwell/calsync/internal/core"
)

// Coordinator owns the adapter set for one resource (a single staff
// member's calendars). Adapters are single-owner: all external calls go
// through the coordinator.
type Coordinator struct {
	mu        sync.RWMutex
	providers map[string]*core.Provider

	adapters         map[string]core.Adapter
	policy           core.ConflictPolicy
	callTimeout      time.Duration
	defaultReminders []core.Reminder
	timezone         string
	logger           *zap.Logger
}

// New wires the configured providers to their adapters. Config entries
// without a registered adapter are rejected so a typo in the providers
// file fails loudly at startup.
func New(cfg core.IntegrationConfig, adapters map[string]core.Adapter, logger *zap.Logger) (*Coordinator, error) {
	cfg = cfg.Normalize()

	providers := make(map[string]*core.Provider, len(cfg.Providers))
	for i := range cfg.Providers {
		p := cfg.Providers[i]
		if _, ok := adapters[p.Name]; !ok {
			return nil, fmt.Errorf("no adapter registered for provider %q", p.Name)
		}
		providers[p.Name] = &p
	}

	return &Coordinator{
		providers:        providers,
		adapters:         adapters,
		policy:           cfg.ConflictPolicy,
		callTimeout:      cfg.CallTimeout,
		defaultReminders: cfg.DefaultReminders,
		timezone:         cfg.Timezone,
		logger:           logger.Named("coordinator"),
	}, nil
}

// Providers returns a snapshot of the configured provider states.
func (c *Coordinator) Providers() []core.Provider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Provider, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, *p)
	}
	return out
}

// Provider returns the state of one provider by name.
func (c *Coordinator) Provider(name string) (core.Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	if !ok {
		return core.Provider{}, false
	}
	return *p, true
}

// Adapter exposes the adapter for one provider, for flows that need
// direct access (the interactive OAuth dance in the CLI).
func (c *Coordinator) Adapter(name string) (core.Adapter, bool) {
	a, ok := c.adapters[name]
	return a, ok
}

// AuthenticateProvider delegates to the adapter and records the
// connection state on success.
func (c *Coordinator) AuthenticateProvider(ctx context.Context, name string, creds core.Credentials) error {
	adapter, provider, err := c.lookup(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := adapter.Authenticate(ctx, creds); err != nil {
		c.setConnected(name, false)
		return err
	}

	c.mu.Lock()
	provider.Connected = true
	provider.LastSync = time.Now()
	provider.Credentials = creds
	c.mu.Unlock()

	c.logger.Info("provider authenticated", zap.String("provider", name))
	return nil
}

// DisconnectProvider delegates to the adapter and clears the connection
// state regardless of the adapter's answer.
func (c *Coordinator) DisconnectProvider(ctx context.Context, name string) error {
	adapter, _, err := c.lookup(name)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	err = adapter.Disconnect(ctx)
	c.setConnected(name, false)
	if err != nil {
		return err
	}
	c.logger.Info("provider disconnected", zap.String("provider", name))
	return nil
}

// SyncAppointmentToCalendars projects the appointment into the canonical
// event and creates it on every enabled provider. Disabled and
// unauthenticated providers show up as failed entries rather than being
// silently dropped from the map.
func (c *Coordinator) SyncAppointmentToCalendars(ctx context.Context, appt core.Appointment) map[string]core.SyncResult {
	event := c.Project(appt)
	return c.fanOut(ctx, c.allProviderNames(), func(ctx context.Context, name string, adapter core.Adapter) core.SyncResult {
		if !c.enabled(name) {
			return core.SyncResult{EventID: appt.ID, Error: "provider not connected or sync disabled"}
		}
		return c.createWithPolicy(ctx, name, adapter, event)
	})
}

// UpdateAppointmentInCalendars applies the patch on every provider
// present in the externalIDs map (provider name to external event id).
func (c *Coordinator) UpdateAppointmentInCalendars(ctx context.Context, patch core.EventPatch, externalIDs map[string]string) map[string]core.SyncResult {
	names := make([]string, 0, len(externalIDs))
	for name := range externalIDs {
		names = append(names, name)
	}
	return c.fanOut(ctx, names, func(ctx context.Context, name string, adapter core.Adapter) core.SyncResult {
		if !c.enabled(name) {
			return core.SyncResult{ExternalID: externalIDs[name], Error: "provider not connected or sync disabled"}
		}
		res, err := adapter.UpdateEvent(ctx, externalIDs[name], patch)
		if err != nil {
			return core.SyncResult{ExternalID: externalIDs[name], Error: err.Error()}
		}
		return res
	})
}

// DeleteAppointmentFromCalendars removes the appointment's mirror from
// every provider present in the externalIDs map.
func (c *Coordinator) DeleteAppointmentFromCalendars(ctx context.Context, externalIDs map[string]string) map[string]core.SyncResult {
	names := make([]string, 0, len(externalIDs))
	for name := range externalIDs {
		names = append(names, name)
	}
	return c.fanOut(ctx, names, func(ctx context.Context, name string, adapter core.Adapter) core.SyncResult {
		if !c.enabled(name) {
			return core.SyncResult{ExternalID: externalIDs[name], Error: "provider not connected or sync disabled"}
		}
		res, err := adapter.DeleteEvent(ctx, externalIDs[name])
		if err != nil {
			return core.SyncResult{ExternalID: externalIDs[name], Error: err.Error()}
		}
		return res
	})
}

// DetectConflictsForAppointment is a read-only fan-out. Providers with
// zero conflicts are omitted; providers that fail are logged and omitted.
func (c *Coordinator) DetectConflictsForAppointment(ctx context.Context, appt core.Appointment) map[string][]core.Conflict {
	event := c.Project(appt)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[string][]core.Conflict)
	)
	for _, name := range c.enabledProviderNames() {
		adapter := c.adapters[name]
		wg.Add(1)
		go func(name string, adapter core.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			conflicts, err := adapter.DetectConflicts(callCtx, event)
			if err != nil {
				c.logger.Warn("conflict detection failed",
					zap.String("provider", name), zap.Error(err))
				return
			}
			if len(conflicts) == 0 {
				return
			}
			mu.Lock()
			out[name] = conflicts
			mu.Unlock()
		}(name, adapter)
	}
	wg.Wait()
	return out
}

// GetArtistAvailability returns the raw busy intervals per provider.
// Merging across providers is the caller's job.
func (c *Coordinator) GetArtistAvailability(ctx context.Context, start, end time.Time) map[string][]core.Interval {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[string][]core.Interval)
	)
	for _, name := range c.enabledProviderNames() {
		adapter := c.adapters[name]
		wg.Add(1)
		go func(name string, adapter core.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			intervals, err := adapter.GetAvailability(callCtx, start, end)
			if err != nil {
				c.logger.Warn("availability fetch failed",
					zap.String("provider", name), zap.Error(err))
				return
			}
			mu.Lock()
			out[name] = intervals
			mu.Unlock()
		}(name, adapter)
	}
	wg.Wait()
	return out
}

// FindAvailableSlots collects slot candidates from every enabled provider
// and merges overlapping and touching candidates into a minimal list.
func (c *Coordinator) FindAvailableSlots(ctx context.Context, duration time.Duration, start, end time.Time) []core.TimeSlot {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []core.TimeSlot
	)
	for _, name := range c.enabledProviderNames() {
		adapter := c.adapters[name]
		wg.Add(1)
		go func(name string, adapter core.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			slots, err := adapter.FindAvailableSlots(callCtx, duration, start, end)
			if err != nil {
				c.logger.Warn("slot search failed",
					zap.String("provider", name), zap.Error(err))
				return
			}
			mu.Lock()
			all = append(all, slots...)
			mu.Unlock()
		}(name, adapter)
	}
	wg.Wait()
	return availability.Merge(all)
}

// SyncProviderEvents pulls remote events for one provider and updates its
// last-sync time on success. The scheduler drives this per tick.
func (c *Coordinator) SyncProviderEvents(ctx context.Context, name string, start, end time.Time) ([]core.SyncResult, error) {
	adapter, _, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	if !c.enabled(name) {
		return nil, core.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	results, err := adapter.SyncEvents(ctx, start, end)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.providers[name].LastSync = time.Now()
	c.mu.Unlock()
	return results, nil
}

// createWithPolicy runs one provider's create and routes any reported
// conflicts through the configured resolution policy.
func (c *Coordinator) createWithPolicy(ctx context.Context, name string, adapter core.Adapter, event core.CalendarEvent) core.SyncResult {
	res, err := adapter.CreateEvent(ctx, event)
	if err != nil {
		return core.SyncResult{EventID: event.Metadata["appointment_id"], Error: err.Error()}
	}
	if res.Success || len(res.Conflicts) == 0 {
		return res
	}

	switch c.policy {
	case core.PolicySkip:
		res.Error = "Conflicts detected, sync skipped"
		return res
	case core.PolicyAuto:
		return c.autoResolve(ctx, name, adapter, event, res)
	default:
		res.Error = "Manual conflict resolution required"
		return res
	}
}

// autoResolve keeps the local appointment: every conflicting remote event
// is resolved keep_local (deleted), best-effort, then the create is
// retried once against the cleared window.
func (c *Coordinator) autoResolve(ctx context.Context, name string, adapter core.Adapter, event core.CalendarEvent, res core.SyncResult) core.SyncResult {
	for _, conflict := range res.Conflicts {
		if err := adapter.ResolveConflict(ctx, conflict.EventID, core.ResolutionKeepLocal); err != nil {
			c.logger.Warn("auto-resolution failed",
				zap.String("provider", name),
				zap.String("conflict", conflict.EventID),
				zap.Error(err))
		}
	}

	retry, err := adapter.CreateEvent(ctx, event)
	if err != nil {
		return core.SyncResult{EventID: res.EventID, Error: err.Error()}
	}
	if !retry.Success && len(retry.Conflicts) > 0 {
		retry.Error = "Manual conflict resolution required"
	}
	return retry
}

// fanOut runs fn once per named provider concurrently and collects the
// results under the provider's name. The map always carries one entry per
// name so partial failure stays visible.
func (c *Coordinator) fanOut(ctx context.Context, names []string, fn func(ctx context.Context, name string, adapter core.Adapter) core.SyncResult) map[string]core.SyncResult {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out = make(map[string]core.SyncResult, len(names))
	)
	for _, name := range names {
		adapter, ok := c.adapters[name]
		if !ok {
			mu.Lock()
			out[name] = core.SyncResult{Error: fmt.Sprintf("unknown provider %q", name)}
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(name string, adapter core.Adapter) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
			defer cancel()

			res := fn(callCtx, name, adapter)
			mu.Lock()
			out[name] = res
			mu.Unlock()
		}(name, adapter)
	}
	wg.Wait()
	return out
}

func (c *Coordinator) lookup(name string) (core.Adapter, *core.Provider, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	provider, ok := c.providers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown provider %q", name)
	}
	return c.adapters[name], provider, nil
}

func (c *Coordinator) enabled(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[name]
	return ok && p.Enabled()
}

func (c *Coordinator) setConnected(name string, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.providers[name]; ok {
		p.Connected = connected
	}
}

func (c *Coordinator) allProviderNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	return names
}

func (c *Coordinator) enabledProviderNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for name, p := range c.providers {
		if p.Enabled() {
			names = append(names, name)
		}
	}
	return names
}
