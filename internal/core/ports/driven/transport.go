package driven

import (
	"context"
	"net/http"
	"time"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// Transport kinds.
const (
	TransportLive    = "live"
	TransportFixture = "fixture"
)

// TransportRequest is one HTTP call to issue.
type TransportRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Authenticated attaches the bearer token of Auth to the call.
	Authenticated bool
	Auth          *domain.Authorization

	// Timeout bounds the call. Zero uses the transport default.
	Timeout time.Duration

	// FixtureKey names the canned response in fake mode.
	FixtureKey string
	// PageToken is the cursor the call was issued with, if any.
	PageToken string
}

// TransportResponse is the raw outcome of a call.
type TransportResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport executes a single HTTP call. It never retries.
//
// A transport error means no response was obtained. A response with an
// error status is returned without error.
type Transport interface {
	Do(ctx context.Context, req TransportRequest) (*TransportResponse, error)

	// Kind returns TransportLive or TransportFixture.
	Kind() string
}
