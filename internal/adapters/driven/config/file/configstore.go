package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	oauthgoogle "golang.org/x/oauth2/google"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigResolver = (*ConfigStore)(nil)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAMPUSBRIDGE_"

// DefaultTimeout bounds HTTP calls of apps that set no timeout.
const DefaultTimeout = 30 * time.Second

// ConfigStore is a file-based implementation of driven.ConfigResolver using TOML.
type ConfigStore struct {
	mu        sync.RWMutex
	filePath  string
	envFiles  []string
	forceFake bool
	cfg       *domain.Config
	logger    *zap.Logger
}

// Option configures a ConfigStore.
type Option func(*ConfigStore)

// WithEnvFiles sets the .env files loaded before environment overrides.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(s *ConfigStore) { s.envFiles = files }
}

// WithFake forces fake mode on every app.
func WithFake(fake bool) Option {
	return func(s *ConfigStore) { s.forceFake = fake }
}

// WithLogger sets the logger used by Watch.
func WithLogger(logger *zap.Logger) Option {
	return func(s *ConfigStore) { s.logger = logger }
}

// NewConfigStore loads the configuration at path.
// If path is empty, defaults to ~/.campusbridge/config.toml. A missing file
// yields the defaults.
func NewConfigStore(path string, opts ...Option) (*ConfigStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".campusbridge", "config.toml")
	}

	s := &ConfigStore{
		filePath: path,
		envFiles: []string{".env"},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Config returns a copy of the loaded configuration.
func (s *ConfigStore) Config() *domain.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

// AppConfig returns the configuration of appID.
func (s *ConfigStore) AppConfig(appID string) (domain.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.App(appID)
}

// AppIDs lists the configured apps.
func (s *ConfigStore) AppIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.AppIDs()
}

// SetFake forces fake mode on every app, or stops forcing it on the next
// Load.
func (s *ConfigStore) SetFake(fake bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceFake = fake
	if fake {
		forceFake(s.cfg)
	}
}

// Load reads the file, applies environment overrides and defaults, and
// replaces the current configuration.
func (s *ConfigStore) Load() error {
	cfg, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forceFake {
		forceFake(cfg)
	}
	s.cfg = cfg
	return nil
}

func (s *ConfigStore) read() (*domain.Config, error) {
	for _, f := range s.envFiles {
		// .env files are optional
		_ = godotenv.Load(f)
	}

	cfg := &domain.Config{}
	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", s.filePath, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileTimeouts carries app timeouts as duration strings ("30s").
type fileTimeouts struct {
	Apps map[string]struct {
		Timeout string `toml:"timeout"`
	} `toml:"apps"`
}

func decode(data []byte, cfg *domain.Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	var timeouts fileTimeouts
	if err := toml.Unmarshal(data, &timeouts); err != nil {
		return err
	}
	for id, t := range timeouts.Apps {
		if t.Timeout == "" {
			continue
		}
		d, err := time.ParseDuration(t.Timeout)
		if err != nil {
			return fmt.Errorf("%w: apps.%s.timeout: %v", domain.ErrInvalidInput, id, err)
		}
		app := cfg.Apps[id]
		app.Timeout = d
		cfg.Apps[id] = app
	}
	return nil
}

func applyEnv(cfg *domain.Config) error {
	setString(&cfg.Env, "ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabasePath, "DB_PATH")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.CredentialBackend, "CREDENTIAL_BACKEND")
	setString(&cfg.MetricsAddr, "METRICS_ADDR")
	setString(&cfg.DefaultApp, "DEFAULT_APP")

	if cfg.Apps == nil {
		cfg.Apps = make(map[string]domain.AppConfig)
	}
	for _, id := range []string{domain.AppGoogle, domain.AppOEC} {
		app := cfg.Apps[id]
		prefix := strings.ToUpper(id) + "_"
		setString(&app.ClientID, prefix+"CLIENT_ID")
		setString(&app.ClientSecret, prefix+"CLIENT_SECRET")
		setString(&app.FixturesDir, prefix+"FIXTURES_DIR")
		cfg.Apps[id] = app
	}

	if v, ok := os.LookupEnv(EnvPrefix + "FAKE"); ok && v != "" {
		fake, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sFAKE=%q", domain.ErrInvalidInput, EnvPrefix, v)
		}
		if fake {
			forceFake(cfg)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *domain.Config) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.CredentialBackend == "" {
		cfg.CredentialBackend = domain.BackendSQLite
	}
	if cfg.DefaultApp == "" {
		cfg.DefaultApp = domain.AppGoogle
	}

	for id, app := range cfg.Apps {
		if app.AuthURL == "" {
			app.AuthURL = oauthgoogle.Endpoint.AuthURL
		}
		if app.TokenURL == "" {
			app.TokenURL = oauthgoogle.Endpoint.TokenURL
		}
		if len(app.Scopes) == 0 {
			app.Scopes = append([]string(nil), google.DefaultScopes...)
		}
		if app.FixturesDir == "" {
			app.FixturesDir = "fixtures"
		}
		if app.Timeout <= 0 {
			app.Timeout = DefaultTimeout
		}
		if app.RateLimit.RequestsPerSecond <= 0 {
			app.RateLimit.RequestsPerSecond = google.DefaultRateLimit.RequestsPerSecond
		}
		if app.RateLimit.Burst <= 0 {
			app.RateLimit.Burst = google.DefaultRateLimit.Burst
		}
		cfg.Apps[id] = app
	}
}

func validate(cfg *domain.Config) error {
	switch cfg.CredentialBackend {
	case domain.BackendSQLite, domain.BackendMemory, domain.BackendRedis:
	default:
		return fmt.Errorf("%w: unknown credential backend %q", domain.ErrInvalidInput, cfg.CredentialBackend)
	}
	if _, ok := cfg.Apps[cfg.DefaultApp]; !ok {
		return fmt.Errorf("%w: default app %q", domain.ErrUnknownApp, cfg.DefaultApp)
	}
	return nil
}

func forceFake(cfg *domain.Config) {
	for id, app := range cfg.Apps {
		app.Fake = true
		cfg.Apps[id] = app
	}
}

func cloneConfig(cfg *domain.Config) *domain.Config {
	out := *cfg
	out.Apps = make(map[string]domain.AppConfig, len(cfg.Apps))
	for id, app := range cfg.Apps {
		app.Scopes = append([]string(nil), app.Scopes...)
		out.Apps[id] = app
	}
	return &out
}

// Watch reloads the configuration whenever the file is written and hands
// the fresh configuration to onChange. It returns once the watcher is
// running; watching stops when ctx is done. Reload errors are logged and
// keep the previous configuration.
func (s *ConfigStore) Watch(ctx context.Context, onChange func(*domain.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files by rename, so the directory is watched.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.filePath), err)
	}

	target := filepath.Clean(s.filePath)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				if err := s.Load(); err != nil {
					s.logger.Warn("config reload failed", zap.String("path", s.filePath), zap.Error(err))
					continue
				}
				s.logger.Info("config reloaded", zap.String("path", s.filePath))
				if onChange != nil {
					onChange(s.Config())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
