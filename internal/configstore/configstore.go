// Package configstore holds the process-wide configuration the
// coordinator reads at startup: listener addresses, TLS material,
// authentication scheme, capacity limits, and the admin UI base URL
// (spec §6 "Environment-like inputs").
package configstore

import "context"

// ListenerConfig is one of the four listener's address and
// certificate source.
type ListenerConfig struct {
	Addr     string
	CertFile string
	KeyFile  string
}

// Config is the declarative shape of the running coordinator (spec §6).
type Config struct {
	LoadListener    ListenerConfig
	MonitorListener ListenerConfig
	StatListener    ListenerConfig
	ManagerListener ListenerConfig

	// MaxLoadClients bounds the load registry (spec §4.4); zero means
	// unbounded.
	MaxLoadClients int

	// JobClassRoot is the filesystem root the job-class catalog
	// resolves class names against (internal/jobclass).
	JobClassRoot string

	// AuthScheme, when non-empty, is the authentication scheme clients
	// must present in their hello credentials.
	AuthScheme string
	// RequireAuth rejects hellos presenting no credentials.
	RequireAuth bool

	// ReadOnly starts only the admin query surface; none of C4-C7 and
	// no scheduler are started (spec §4.8).
	ReadOnly bool

	// AdminUIBaseURL is used only for notification content, never for
	// routing (spec §6).
	AdminUIBaseURL string

	// ForcedLogLevel, when non-empty, overrides the configured default
	// log level (spec §6 "an optional forced log level").
	ForcedLogLevel string
}

// Store persists and retrieves a Config (spec §4.8 "configuration
// store").
type Store interface {
	Load(ctx context.Context) (*Config, error)
	Save(ctx context.Context, cfg *Config) error
}
