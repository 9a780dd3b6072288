package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/custodia-labs/campusbridge/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// --- Test doubles shared by the service tests ---

// scriptedTransport answers calls from a script and records every request.
// Authenticated calls fetch a token through the authorization, the way an
// oauth2 transport does.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []scriptedResponse
	requests  []driven.TransportRequest
	// repeat answers every call past the script with the last response.
	repeat bool
}

type scriptedResponse struct {
	resp  *driven.TransportResponse
	err   error
	panic any
}

func (s *scriptedTransport) Do(_ context.Context, req driven.TransportRequest) (*driven.TransportResponse, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if req.Authenticated && req.Auth != nil {
		if _, err := req.Auth.Token(); err != nil {
			return nil, err
		}
	}

	if idx >= len(s.responses) {
		if !s.repeat || len(s.responses) == 0 {
			return nil, errors.New("script exhausted")
		}
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	if r.panic != nil {
		panic(r.panic)
	}
	return r.resp, r.err
}

func (s *scriptedTransport) Kind() string { return driven.TransportLive }

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *scriptedTransport) request(i int) driven.TransportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func jsonResponse(status int, body any) scriptedResponse {
	data, _ := json.Marshal(body)
	return scriptedResponse{resp: &driven.TransportResponse{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       data,
	}}
}

func pageWithToken(token string) scriptedResponse {
	body := map[string]any{"items": []any{map[string]any{"id": "x"}}}
	if token != "" {
		body["nextPageToken"] = token
	}
	return jsonResponse(http.StatusOK, body)
}

func invalidCredentialsResponse() scriptedResponse {
	return jsonResponse(http.StatusUnauthorized, map[string]any{
		"error": map[string]any{
			"code":    401,
			"message": "Invalid Credentials",
			"errors":  []any{map[string]any{"reason": "authError", "message": "Invalid Credentials"}},
		},
	})
}

// countingStore wraps the memory store and counts writes.
type countingStore struct {
	*memory.CredentialStore
	mu      sync.Mutex
	puts    []domain.CredentialRecord
	deletes int
	getErr  error
	putErr  error
}

func newCountingStore() *countingStore {
	return &countingStore{CredentialStore: memory.NewCredentialStore()}
}

func (s *countingStore) Get(ctx context.Context, userID, appID string) (*domain.CredentialRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.CredentialStore.Get(ctx, userID, appID)
}

func (s *countingStore) Put(ctx context.Context, rec domain.CredentialRecord) error {
	s.mu.Lock()
	s.puts = append(s.puts, rec)
	s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	return s.CredentialStore.Put(ctx, rec)
}

func (s *countingStore) Delete(ctx context.Context, userID, appID string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.CredentialStore.Delete(ctx, userID, appID)
}

// rotatingSource hands out a0 on the first call and a fresh token on every
// later call, simulating silent refreshes.
type rotatingSource struct {
	mu     sync.Mutex
	tokens []domain.Token
	calls  int
}

func (s *rotatingSource) Token() (domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := s.tokens[min(s.calls, len(s.tokens)-1)]
	s.calls++
	return tok, nil
}

// stubRefresher returns a fixed source.
type stubRefresher struct {
	source domain.TokenSource
	calls  int
}

func (r *stubRefresher) TokenSource(_ context.Context, _ domain.AppConfig, _ domain.Token) domain.TokenSource {
	r.calls++
	return r.source
}

// staticConfig resolves apps from a map.
type staticConfig struct {
	apps map[string]domain.AppConfig
}

func (c *staticConfig) AppConfig(appID string) (domain.AppConfig, error) {
	cfg := &domain.Config{DefaultApp: domain.AppGoogle, Apps: c.apps}
	return cfg.App(appID)
}

func (c *staticConfig) AppIDs() []string {
	cfg := &domain.Config{Apps: c.apps}
	return cfg.AppIDs()
}

func liveConfig() *staticConfig {
	return &staticConfig{apps: map[string]domain.AppConfig{
		domain.AppGoogle: {ClientID: "google-client"},
		domain.AppOEC:    {ClientID: "oec-client", Fake: true},
	}}
}

// stubResolver resolves every tuple to a paging list method, except
// resources named "missing".
type stubResolver struct {
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, api, version, resource, method string) (*domain.ResourceMethod, error) {
	r.calls++
	if resource == "missing" {
		return nil, &domain.UnknownResourceError{API: api, Version: version, Resource: resource, Method: method}
	}
	return &domain.ResourceMethod{
		ID:         api + "." + resource + "." + method,
		API:        api,
		Version:    version,
		HTTPMethod: http.MethodGet,
		BaseURL:    "https://www.googleapis.com/" + api + "/" + version + "/",
		Path:       resource,
		Parameters: map[string]domain.ParamSpec{
			"pageToken": {Name: "pageToken", Location: "query"},
		},
		SupportsPaging: true,
	}, nil
}

// recordingSink keeps every observed event.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Observe(_ context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func listMethod() *domain.ResourceMethod {
	m, _ := (&stubResolver{}).Resolve(context.Background(), "drive", "v3", "files", "list")
	return m
}

func listDescriptor(limit int) domain.RequestDescriptor {
	return domain.RequestDescriptor{
		API:        "drive",
		APIVersion: "v3",
		Resource:   "files",
		Method:     "list",
		Params:     []domain.Param{{Key: "q", Value: "trashed=false"}},
		PageLimit:  limit,
	}
}

func userAuth(source domain.TokenSource) *domain.Authorization {
	return domain.NewAuthorization(domain.AppGoogle, "u1", domain.Token{AccessToken: "a0", RefreshToken: "r0"}, source)
}
