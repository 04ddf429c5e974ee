package core

import (
	"time"

	"golang.org/x/oauth2"
)

// Provider names. The set is fixed; every name maps to one concrete adapter.
const (
	ProviderGoogle  = "google"
	ProviderOutlook = "outlook"
	ProviderCalDAV  = "caldav"
)

// Credentials is the opaque credential handle for one provider. Which
// fields matter depends on the adapter: OAuth token material for Google and
// Outlook, basic auth plus server URL for CalDAV.
type Credentials struct {
	// OAuth (Google, Outlook)
	Token     *oauth2.Token `yaml:"-"`
	TokenFile string        `yaml:"token_file,omitempty"`
	ClientID  string        `yaml:"client_id,omitempty"`
	TenantID  string        `yaml:"tenant_id,omitempty"`
	// Path to an OAuth client credentials JSON (Google)
	CredentialsFile string `yaml:"credentials_file,omitempty"`

	// Basic auth (CalDAV)
	ServerURL string `yaml:"server_url,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`

	// Target calendar; empty means the provider's primary calendar
	CalendarID string `yaml:"calendar_id,omitempty"`
}

// Provider is the configured state of one external calendar system.
type Provider struct {
	Name        string      `yaml:"name"`
	DisplayName string      `yaml:"display_name,omitempty"`
	Connected   bool        `yaml:"-"`
	LastSync    time.Time   `yaml:"-"`
	SyncEnabled bool        `yaml:"sync_enabled"`
	Credentials Credentials `yaml:"credentials"`
}

// Enabled reports whether the provider participates in fan-outs.
func (p Provider) Enabled() bool {
	return p.Connected && p.SyncEnabled
}

// ConflictPolicy decides what happens when a create reports conflicts.
type ConflictPolicy string

const (
	// Surface the conflicts for a human to decide. Default.
	PolicyManual ConflictPolicy = "manual"
	// Resolve every conflict keep_local (deletes remote events).
	PolicyAuto ConflictPolicy = "auto"
	// Skip the sync, no remote mutation.
	PolicySkip ConflictPolicy = "skip"
)

// Default tuning for integration sessions.
const (
	DefaultSyncInterval = 15 * time.Minute
	DefaultCallTimeout  = 30 * time.Second
)

// IntegrationConfig configures one resource's integration session.
type IntegrationConfig struct {
	Providers        []Provider     `yaml:"providers"`
	SyncInterval     time.Duration  `yaml:"sync_interval"`
	ConflictPolicy   ConflictPolicy `yaml:"conflict_policy"`
	DefaultReminders []Reminder     `yaml:"default_reminders"`
	Timezone         string         `yaml:"timezone"`
	// Upper bound on any single remote call
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// Normalize fills unset fields with defaults.
func (c IntegrationConfig) Normalize() IntegrationConfig {
	if c.SyncInterval <= 0 {
		c.SyncInterval = DefaultSyncInterval
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = PolicyManual
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	return c
}

// Appointment is the local booking record projected into a CalendarEvent.
// The appointment store itself is an external collaborator; this is just
// the shape the coordinator consumes.
type Appointment struct {
	ID          string
	ServiceName string
	ClientName  string
	ClientEmail string
	StaffName   string
	StaffEmail  string
	Start       time.Time
	End         time.Time
	Location    string
	Notes       string
}
