package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Transport = (*Live)(nil)

const (
	// DefaultTimeout bounds calls that carry no timeout of their own.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes int64 = 32 << 20
)

// Live issues calls over net/http.
type Live struct {
	base         http.RoundTripper
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// LiveOption configures a Live transport.
type LiveOption func(*Live)

// WithRoundTripper sets the underlying round tripper.
func WithRoundTripper(rt http.RoundTripper) LiveOption {
	return func(l *Live) { l.base = rt }
}

// WithTimeout sets the default per-call timeout.
func WithTimeout(d time.Duration) LiveOption {
	return func(l *Live) { l.timeout = d }
}

// WithMaxBodyBytes caps response bodies.
func WithMaxBodyBytes(n int64) LiveOption {
	return func(l *Live) { l.maxBodyBytes = n }
}

// WithUserAgent sets the User-Agent header of every call.
func WithUserAgent(ua string) LiveOption {
	return func(l *Live) { l.userAgent = ua }
}

// NewLive creates a live transport.
func NewLive(opts ...LiveOption) *Live {
	l := &Live{
		base:         http.DefaultTransport,
		timeout:      DefaultTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Kind returns driven.TransportLive.
func (l *Live) Kind() string { return driven.TransportLive }

// Do issues the call. Authenticated calls fetch their token through the
// request's authorization, so refreshes are visible to the executor.
func (l *Live) Do(ctx context.Context, req driven.TransportRequest) (*driven.TransportResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = l.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if l.userAgent != "" {
		httpReq.Header.Set("User-Agent", l.userAgent)
	}

	client, err := l.client(req)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(data)) > l.maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", l.maxBodyBytes)
	}

	return &driven.TransportResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (l *Live) client(req driven.TransportRequest) (*http.Client, error) {
	if !req.Authenticated {
		return &http.Client{Transport: l.base}, nil
	}
	if req.Auth == nil {
		return nil, fmt.Errorf("authenticated call to %s without authorization", req.URL)
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: google.NewTokenSource(req.Auth),
			Base:   l.base,
		},
	}, nil
}
