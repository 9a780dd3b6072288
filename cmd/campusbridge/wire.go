package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/adapters/driven/config/file"
	"github.com/custodia-labs/campusbridge/internal/adapters/driven/fixtures"
	"github.com/custodia-labs/campusbridge/internal/adapters/driven/metrics"
	"github.com/custodia-labs/campusbridge/internal/adapters/driven/storage/memory"
	redisstore "github.com/custodia-labs/campusbridge/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/campusbridge/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/campusbridge/internal/adapters/driven/transport"
	"github.com/custodia-labs/campusbridge/internal/adapters/driving/cli"
	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
	"github.com/custodia-labs/campusbridge/internal/core/services"
	"github.com/custodia-labs/campusbridge/internal/logger"
)

// bootstrap wires config, logging, storage, transports and services.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	config, err := file.NewConfigStore(opts.ConfigPath, file.WithFake(opts.Fake))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Config()

	logger.Init("campusbridge", cfg.Env, cfg.LogLevel)
	if opts.Verbose {
		logger.SetVerbose(true)
	}
	log := logger.L()

	ctx, cancel := context.WithCancel(context.Background())
	closers := []func() error{func() error { cancel(); return nil }}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		logger.Sync()
		return errors.Join(errs...)
	}

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	closers = append(closers, closeStore)

	registry, err := google.NewRegistry(registryOptions(cfg, log)...)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("failed to load discovery documents: %w", err)
	}

	sink := metrics.Multi{metrics.NewLogSink(log.Named("instrumentation"))}
	addr := opts.MetricsAddr
	if addr == "" {
		addr = cfg.MetricsAddr
	}
	if addr != "" {
		prom := metrics.NewPrometheusSink()
		prom.Serve(ctx, addr, log.Named("metrics"))
		sink = append(sink, prom)
		log.Info("serving metrics", zap.String("addr", addr))
	}

	if err := config.Watch(ctx, func(c *domain.Config) {
		logger.Init("campusbridge", c.Env, c.LogLevel)
	}); err != nil {
		log.Debug("config watch disabled", zap.Error(err))
	}

	live := transport.NewRateLimited(
		transport.NewLive(transport.WithUserAgent("campusbridge/"+version)),
		config, google.NewRateLimiters(), log.Named("ratelimit"),
	)
	fixture := transport.NewFixture(fixtureProvider(cfg))

	factory := services.NewProxyFactory(services.ProxyDeps{
		Config:    config,
		Store:     store,
		Resolver:  registry,
		Refresher: google.NewRefresher(),
		Live:      live,
		Fixture:   fixture,
		Sink:      sink,
		Logger:    log.Named("proxy"),
	})

	return &cli.Services{
		Proxies: factory,
		Access:  services.NewAccessService(config, store),
		Config:  config,
		APIs:    registry.APIs,
		Close:   closeAll,
	}, nil
}

// openStore opens the configured credential store backend.
func openStore(ctx context.Context, cfg *domain.Config, log *zap.Logger) (driven.CredentialStore, func() error, error) {
	switch cfg.CredentialBackend {
	case domain.BackendMemory:
		return memory.NewCredentialStore(), func() error { return nil }, nil
	case domain.BackendRedis:
		store, err := redisstore.New(ctx, cfg.RedisAddr, 0, log.Named("redis"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, store.Close, nil
	case domain.BackendSQLite, "":
		store, err := sqlite.NewStore(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open credential database: %w", err)
		}
		return store.CredentialStore(), store.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: credential backend %q", domain.ErrInvalidInput, cfg.CredentialBackend)
	}
}

// registryOptions enables live discovery fetches when any app allows them.
func registryOptions(cfg *domain.Config, log *zap.Logger) []google.RegistryOption {
	opts := []google.RegistryOption{google.WithLogger(log.Named("registry"))}
	for _, app := range cfg.Apps {
		if app.DiscoveryFetch {
			client := &http.Client{Timeout: file.DefaultTimeout}
			opts = append(opts, google.WithDiscoveryFetch(client, ""))
			break
		}
	}
	return opts
}

// fixtureProvider serves fixtures from the default app's fixtures tree.
func fixtureProvider(cfg *domain.Config) driven.FixtureProvider {
	app, err := cfg.App("")
	if err != nil || app.FixturesDir == "" {
		return fixtures.NewFileProvider("fixtures")
	}
	return fixtures.NewFileProvider(app.FixturesDir)
}
