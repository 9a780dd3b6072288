package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Transport = (*Fixture)(nil)

var nonKeyChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Fixture answers calls with canned bodies from a fixture provider.
//
// A fixture is either a bare JSON body, served with status 200, or an
// envelope {"status": 401, "body": {...}, "headers": {...}}.
type Fixture struct {
	provider driven.FixtureProvider
}

// NewFixture creates a fixture transport.
func NewFixture(provider driven.FixtureProvider) *Fixture {
	return &Fixture{provider: provider}
}

// Kind returns driven.TransportFixture.
func (f *Fixture) Kind() string { return driven.TransportFixture }

// Do serves the fixture named by the request. A missing fixture is a
// transport error.
func (f *Fixture) Do(ctx context.Context, req driven.TransportRequest) (*driven.TransportResponse, error) {
	if f.provider == nil {
		return nil, errors.New("fixture provider not configured")
	}
	if req.Authenticated && req.Auth != nil {
		if _, err := req.Auth.Token(); err != nil {
			return nil, fmt.Errorf("fake token: %w", err)
		}
	}

	key := FixtureKey(req)
	data, err := f.provider.Fixture(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fixture %q: %w", key, err)
	}
	return decodeFixture(data)
}

// FixtureKey names the fixture of a call: the request's fixture key, or
// one derived from its URL, followed by _<pageToken> for follow-up pages.
func FixtureKey(req driven.TransportRequest) string {
	key := req.FixtureKey
	if key == "" {
		key = keyFromURL(req.URL)
	}
	if req.PageToken != "" {
		key += "_" + req.PageToken
	}
	return key
}

func keyFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Trim(nonKeyChars.ReplaceAllString(raw, "_"), "_")
	}
	return strings.Trim(nonKeyChars.ReplaceAllString(u.Host+u.Path, "_"), "_")
}

type envelope struct {
	Status  *int              `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
}

func decodeFixture(data []byte) (*driven.TransportResponse, error) {
	resp := &driven.TransportResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       bytes.TrimSpace(data),
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Status == nil {
		return resp, nil
	}
	resp.StatusCode = *env.Status
	resp.Body = bytes.TrimSpace(env.Body)
	if string(resp.Body) == "null" {
		resp.Body = nil
	}
	for k, v := range env.Headers {
		resp.Header.Set(k, v)
	}
	return resp, nil
}
