package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Ensure sinks implement the interface.
var (
	_ driven.InstrumentationSink = (*PrometheusSink)(nil)
	_ driven.InstrumentationSink = (*LogSink)(nil)
	_ driven.InstrumentationSink = Multi(nil)
	_ driven.InstrumentationSink = Nop{}
)

// PrometheusSink counts proxy calls and measures their duration.
type PrometheusSink struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusSink registers the proxy metrics on a fresh registry.
func NewPrometheusSink() *PrometheusSink {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusSink{
		registry: reg,
		// Tracks proxy calls by resource class and status class.
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbridge_proxy_requests_total",
				Help: "Total number of proxied API calls (by resource class and status).",
			},
			[]string{"resource_class", "status"},
		),
		// Measures duration of proxied calls.
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbridge_proxy_request_duration_seconds",
				Help:    "Duration of proxied API calls in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
			},
			[]string{"resource_class"},
		),
	}
}

// Observe records one event.
func (s *PrometheusSink) Observe(_ context.Context, e domain.Event) {
	s.requests.WithLabelValues(e.ResourceClass, e.Outcome()).Inc()
	s.duration.WithLabelValues(e.ResourceClass).Observe(e.Duration.Seconds())
}

// Registry returns the registry holding the proxy metrics.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (s *PrometheusSink) Serve(ctx context.Context, addr string, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}

// LogSink writes every event to a logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Observe logs one event.
func (s *LogSink) Observe(_ context.Context, e domain.Event) {
	fields := []zap.Field{
		zap.String("event", e.Name),
		zap.String("url", e.URL),
		zap.String("resource_class", e.ResourceClass),
		zap.String("app", e.AppID),
		zap.String("request_id", e.RequestID),
		zap.Bool("fake", e.Fake),
		zap.Int("status", e.StatusCode),
		zap.Duration("duration", e.Duration),
	}
	if e.Err != nil {
		fields = append(fields, zap.Error(e.Err))
	}
	s.logger.Debug("proxy call", fields...)
}

// Multi fans an event out to several sinks.
type Multi []driven.InstrumentationSink

// Observe forwards the event to every non-nil sink.
func (m Multi) Observe(ctx context.Context, e domain.Event) {
	for _, s := range m {
		if s != nil {
			s.Observe(ctx, e)
		}
	}
}

// Nop discards events.
type Nop struct{}

// Observe does nothing.
func (Nop) Observe(context.Context, domain.Event) {}
