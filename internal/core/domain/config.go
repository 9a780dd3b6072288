package domain

import (
	"sort"
	"time"
)

// Built-in app identities.
const (
	// AppGoogle is the portal's primary Google app.
	AppGoogle = "Google"
	// AppOEC is the course evaluation app, configured separately.
	AppOEC = "OEC"
)

// Credential store backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// RateLimit holds the client-side request rate for an app.
type RateLimit struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	// Burst is the maximum burst size.
	Burst int `toml:"burst"`
}

// AppConfig is the environment-specific configuration of one app identity.
type AppConfig struct {
	ID           string   `toml:"-"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`

	// Fake serves every call from fixtures instead of the remote API.
	Fake bool `toml:"fake"`
	// FixturesDir is the root of the fixtures tree used in fake mode.
	FixturesDir string `toml:"fixtures_dir"`

	// Timeout bounds a single HTTP call.
	Timeout time.Duration `toml:"-"`

	RateLimit RateLimit `toml:"rate_limit"`

	// DiscoveryFetch allows fetching unregistered discovery documents.
	DiscoveryFetch bool `toml:"discovery_fetch"`
}

// Config is the resolved configuration of the whole client.
type Config struct {
	Env               string `toml:"env"`
	LogLevel          string `toml:"log_level"`
	DatabasePath      string `toml:"database_path"`
	RedisAddr         string `toml:"redis_addr"`
	CredentialBackend string `toml:"credential_backend"`
	MetricsAddr       string `toml:"metrics_addr"`
	DefaultApp        string `toml:"default_app"`

	Apps map[string]AppConfig `toml:"apps"`
}

// App returns the configuration for appID, falling back to the default app
// when appID is empty.
func (c *Config) App(appID string) (AppConfig, error) {
	if appID == "" {
		appID = c.DefaultApp
	}
	if appID == "" {
		appID = AppGoogle
	}
	app, ok := c.Apps[appID]
	if !ok {
		return AppConfig{}, ErrUnknownApp
	}
	app.ID = appID
	return app, nil
}

// AppIDs returns the configured app identities in sorted order.
func (c *Config) AppIDs() []string {
	ids := make([]string, 0, len(c.Apps))
	for id := range c.Apps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
