package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driving"
)

// Ensure the proxy types implement the interfaces.
var (
	_ driving.ProxyService = (*Proxy)(nil)
	_ driving.ProxyFactory = (*ProxyFactory)(nil)
)

// ProxyDeps are the collaborators shared by all proxies.
type ProxyDeps struct {
	Config    driven.ConfigResolver
	Store     driven.CredentialStore
	Resolver  driven.ResourceResolver
	Refresher driven.TokenRefresher

	// Live serves apps in live mode, Fixture serves apps in fake mode.
	Live    driven.Transport
	Fixture driven.Transport

	Sink   driven.InstrumentationSink
	Logger *zap.Logger
}

// Proxy issues requests for one app on behalf of one authorization.
// The transport strategy and the authorization are fixed at construction.
type Proxy struct {
	app      domain.AppConfig
	auth     *domain.Authorization
	exec     *Executor
	resolver driven.ResourceResolver
	logger   *zap.Logger
}

// NewProxy resolves the app, selects its transport and loads its
// authorization. A *domain.CredentialResolutionError is returned before
// any HTTP call when no usable credentials exist.
func NewProxy(ctx context.Context, deps ProxyDeps, opts driving.ProxyOptions) (*Proxy, error) {
	if deps.Config == nil {
		return nil, errors.New("config resolver not configured")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app, err := deps.Config.AppConfig(opts.AppID)
	if err != nil {
		return nil, fmt.Errorf("resolve app %q: %w", opts.AppID, err)
	}

	transport := deps.Live
	if app.Fake {
		transport = deps.Fixture
	}
	if transport == nil {
		return nil, fmt.Errorf("no transport configured for app %q (fake=%t)", app.ID, app.Fake)
	}

	auth, err := NewAuthorizationLoader(deps.Store, deps.Refresher).Load(ctx, app, AuthOptions{
		UserID: opts.UserID,
		Inline: opts.Inline,
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("app", app.ID), zap.Bool("fake", app.Fake))
	return &Proxy{
		app:      app,
		auth:     auth,
		exec:     NewExecutor(transport, deps.Store, deps.Sink, logger.Named("executor")),
		resolver: deps.Resolver,
		logger:   logger,
	}, nil
}

// AppID returns the app the proxy is bound to.
func (p *Proxy) AppID() string {
	return p.app.ID
}

// Authorization returns the authorization owned by the proxy.
func (p *Proxy) Authorization() *domain.Authorization {
	return p.auth
}

// Request resolves the descriptor's remote method once and returns a
// fresh page sequence. No call is made until the first Next.
func (p *Proxy) Request(ctx context.Context, desc domain.RequestDescriptor) (driving.PageIterator, error) {
	pager, err := p.Pages(ctx, desc)
	if err != nil {
		return nil, err
	}
	return pager, nil
}

// Pages is Request returning the concrete pager.
func (p *Proxy) Pages(ctx context.Context, desc domain.RequestDescriptor) (*Pager, error) {
	method, err := p.resolve(ctx, desc)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	p.logger.Info("making request",
		zap.String("request_id", requestID),
		zap.String("method", method.ID),
		zap.Any("params", desc.Params),
		zap.Int("page_limit", desc.PageLimit),
	)
	return NewPager(p.exec, p.auth, method, desc, requestID, p.logger.Named("pager")), nil
}

// SimpleRequest issues a single call without pagination. Descriptors with
// a URI are sent as is; others are resolved first. A resolution failure is
// returned as an error page without any call.
func (p *Proxy) SimpleRequest(ctx context.Context, desc domain.RequestDescriptor) *domain.PageResult {
	requestID := uuid.NewString()

	var method *domain.ResourceMethod
	if !desc.IsURI() {
		m, err := p.resolve(ctx, desc)
		if err != nil {
			p.logger.Error("unable to resolve simple request", zap.String("request_id", requestID), zap.Error(err))
			return &domain.PageResult{IsError: true, Err: err, RequestID: requestID}
		}
		method = m
	}

	p.logger.Info("making simple request",
		zap.String("request_id", requestID),
		zap.String("uri", desc.URI),
		zap.Bool("authenticated", desc.Authenticated),
		zap.String("user", p.auth.UserID),
	)
	return p.exec.Execute(ctx, p.auth, PageRequest{
		Descriptor: desc,
		Method:     method,
		RequestID:  requestID,
	})
}

func (p *Proxy) resolve(ctx context.Context, desc domain.RequestDescriptor) (*domain.ResourceMethod, error) {
	if p.resolver == nil {
		return nil, &domain.UnknownResourceError{
			API: desc.API, Version: desc.APIVersion, Resource: desc.Resource, Method: desc.Method,
			Reason: "resource resolver not configured",
		}
	}
	return p.resolver.Resolve(ctx, desc.API, desc.APIVersion, desc.Resource, desc.Method)
}

// ProxyFactory builds proxies from shared dependencies.
type ProxyFactory struct {
	deps ProxyDeps
}

// NewProxyFactory creates a factory.
func NewProxyFactory(deps ProxyDeps) *ProxyFactory {
	return &ProxyFactory{deps: deps}
}

// NewProxy builds a proxy bound to opts.
func (f *ProxyFactory) NewProxy(ctx context.Context, opts driving.ProxyOptions) (driving.ProxyService, error) {
	return NewProxy(ctx, f.deps, opts)
}

// RequestAll drains every page of a request. The last page is an error
// page when the sequence stopped on error.
func RequestAll(ctx context.Context, svc driving.ProxyService, desc domain.RequestDescriptor) ([]*domain.PageResult, error) {
	it, err := svc.Request(ctx, desc)
	if err != nil {
		return nil, err
	}
	var pages []*domain.PageResult
	for it.Next(ctx) {
		pages = append(pages, it.Page())
	}
	return pages, nil
}
