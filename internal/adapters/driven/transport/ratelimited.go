package transport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Transport = (*RateLimited)(nil)

// RateLimited throttles calls per app before handing them to the next
// transport. A 429 response pauses the app's limiter for the Retry-After
// period; the call itself is never retried.
type RateLimited struct {
	next     driven.Transport
	config   driven.ConfigResolver
	limiters *google.RateLimiters
	logger   *zap.Logger
	now      func() time.Time
}

// NewRateLimited wraps next. Apps are looked up in config to size their
// limiter; a nil config uses the default limit for every app.
func NewRateLimited(next driven.Transport, config driven.ConfigResolver, limiters *google.RateLimiters, logger *zap.Logger) *RateLimited {
	if limiters == nil {
		limiters = google.NewRateLimiters()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimited{
		next:     next,
		config:   config,
		limiters: limiters,
		logger:   logger,
		now:      time.Now,
	}
}

// Kind returns the kind of the wrapped transport.
func (r *RateLimited) Kind() string { return r.next.Kind() }

// Do waits for the app's limiter and issues the call.
func (r *RateLimited) Do(ctx context.Context, req driven.TransportRequest) (*driven.TransportResponse, error) {
	limiter := r.limiters.For(r.app(req))
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}

	resp, err := r.next.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return resp, nil
	}
	if gerr := google.ParseError(resp.StatusCode, resp.Header, resp.Body); gerr != nil && google.IsRateLimited(gerr) {
		wait := google.RetryAfter(resp.Header, r.now())
		limiter.RecordRateLimitError(wait)
		r.logger.Warn("rate limited by remote API",
			zap.String("url", req.URL), zap.Duration("retry_after", wait))
	}
	return resp, nil
}

func (r *RateLimited) app(req driven.TransportRequest) domain.AppConfig {
	var appID string
	if req.Auth != nil {
		appID = req.Auth.AppID
	}
	if r.config != nil {
		if app, err := r.config.AppConfig(appID); err == nil {
			return app
		}
	}
	return domain.AppConfig{ID: appID}
}
