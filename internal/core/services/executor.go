package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// errBlankResponse marks a call that returned without a status.
var errBlankResponse = errors.New("blank response")

// PageRequest is one call of a logical request.
type PageRequest struct {
	Descriptor domain.RequestDescriptor
	// Method is the resolved remote operation. Nil for URI calls.
	Method *domain.ResourceMethod
	// PageToken is merged into the parameters when non-empty.
	PageToken string
	Index     int
	RequestID string
}

// Executor issues a single HTTP call, classifies its outcome and
// reconciles the credential store with the authorization.
//
// Execute never returns an error: transport, serialization and remote
// failures become pages with IsError set. It never retries.
type Executor struct {
	transport driven.Transport
	store     driven.CredentialStore
	sink      driven.InstrumentationSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutor creates an executor. store and sink may be nil.
func NewExecutor(transport driven.Transport, store driven.CredentialStore, sink driven.InstrumentationSink, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		transport: transport,
		store:     store,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Execute issues the call described by req on behalf of auth.
func (e *Executor) Execute(ctx context.Context, auth *domain.Authorization, req PageRequest) *domain.PageResult {
	log := e.logger.With(
		zap.String("request_id", req.RequestID),
		zap.String("app", auth.AppID),
		zap.Int("page", req.Index),
	)
	if auth.UserID != "" {
		log = log.With(zap.String("user", auth.UserID))
	}

	treq, err := e.buildRequest(auth, req)
	if err != nil {
		page := &domain.PageResult{
			Index:     req.Index,
			URL:       treq.URL,
			IsError:   true,
			Err:       &domain.TransportFailure{URL: treq.URL, Err: err},
			RequestID: req.RequestID,
		}
		log.Error("unable to build request transaction", zap.String("severity", "fatal"), zap.Error(err))
		return page
	}

	start := e.now()
	resp, err := e.roundTrip(ctx, treq)
	page := e.classify(log, req, treq.URL, resp, err)
	page.Duration = e.now().Sub(start)

	e.observe(ctx, auth, req, treq.URL, page)
	e.reconcile(ctx, log, auth, page)
	return page
}

func (e *Executor) buildRequest(auth *domain.Authorization, req PageRequest) (driven.TransportRequest, error) {
	desc := req.Descriptor
	treq := driven.TransportRequest{
		Header:    desc.Headers.Clone(),
		Auth:      auth,
		Timeout:   desc.Timeout,
		PageToken: req.PageToken,
	}
	if treq.Header == nil {
		treq.Header = make(http.Header)
	}

	switch {
	case req.Method != nil:
		params := desc.Params
		if req.PageToken != "" {
			params = domain.WithParam(params, domain.PageTokenParam, req.PageToken)
		}
		u, err := req.Method.BuildURL(params)
		if err != nil {
			return treq, err
		}
		treq.URL = u
		treq.Method = req.Method.HTTPMethod
		treq.Authenticated = true
		treq.FixtureKey = req.Method.FixtureKey()
	case desc.IsURI():
		treq.URL = desc.URI
		treq.Method = desc.HTTPMethod
		treq.Authenticated = desc.Authenticated
	default:
		return treq, fmt.Errorf("%w: descriptor has neither a resource method nor a URI", domain.ErrInvalidInput)
	}
	if treq.Method == "" {
		treq.Method = http.MethodGet
	}
	if desc.FixtureName != "" {
		treq.FixtureKey = desc.FixtureName
	}

	body, contentType, err := EncodeBody(desc.Body)
	if err != nil {
		return treq, err
	}
	treq.Body = body
	if contentType != "" && treq.Header.Get("Content-Type") == "" {
		treq.Header.Set("Content-Type", contentType)
	}
	return treq, nil
}

func (e *Executor) roundTrip(ctx context.Context, treq driven.TransportRequest) (resp *driven.TransportResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("transport panic: %v", r)
		}
	}()
	if e.transport == nil {
		return nil, errors.New("transport not configured")
	}
	return e.transport.Do(ctx, treq)
}

func (e *Executor) classify(log *zap.Logger, req PageRequest, url string, resp *driven.TransportResponse, err error) *domain.PageResult {
	page := &domain.PageResult{
		Index:     req.Index,
		URL:       url,
		RequestID: req.RequestID,
	}

	if err != nil {
		page.IsError = true
		page.Err = &domain.TransportFailure{URL: url, Err: err}
		log.Error("unable to send request transaction",
			zap.String("severity", "fatal"), zap.String("url", url), zap.Error(err))
		return page
	}
	if resp == nil || resp.StatusCode == 0 {
		page.IsError = true
		page.Err = &domain.TransportFailure{URL: url, Err: errBlankResponse}
		log.Error("got a blank response", zap.String("url", url))
		return page
	}

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = resp.Body

	if resp.StatusCode >= http.StatusBadRequest {
		page.IsError = true
		page.Data = decodeObject(resp.Body)
		page.Err = google.ToRemoteError(google.ParseError(resp.StatusCode, resp.Header, resp.Body))
		log.Error("got an error response",
			zap.Int("status", resp.StatusCode), zap.ByteString("body", resp.Body))
		return page
	}

	if len(resp.Body) == 0 {
		return page
	}
	var data map[string]any
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		page.IsError = true
		page.Err = &domain.TransportFailure{URL: url, Err: fmt.Errorf("decode response: %w", err)}
		log.Error("unable to decode response",
			zap.String("severity", "fatal"), zap.Int("status", resp.StatusCode), zap.Error(err))
		return page
	}
	page.Data = data
	return page
}

func (e *Executor) observe(ctx context.Context, auth *domain.Authorization, req PageRequest, url string, page *domain.PageResult) {
	if e.sink == nil {
		return
	}
	var transportErr error
	if page.StatusCode == 0 {
		transportErr = page.Err
	}
	e.sink.Observe(ctx, domain.Event{
		Name:          domain.EventProxy,
		URL:           url,
		ResourceClass: req.Descriptor.ResourceClass(),
		AppID:         auth.AppID,
		RequestID:     req.RequestID,
		Fake:          auth.Fake,
		StatusCode:    page.StatusCode,
		Duration:      page.Duration,
		Err:           transportErr,
	})
}

// reconcile revokes dead grants and persists silently refreshed tokens.
// Store failures are logged and never change the page.
func (e *Executor) reconcile(ctx context.Context, log *zap.Logger, auth *domain.Authorization, page *domain.PageResult) {
	if e.store == nil || !auth.BelongsToUser() {
		return
	}

	if google.IsInvalidCredentials(page.Err) {
		log.Warn("deleting access token due to 401 Invalid Credentials")
		if err := e.store.Delete(ctx, auth.UserID, auth.AppID); err != nil {
			log.Error("failed to delete credentials", zap.Error(err))
		}
		return
	}
	if errors.Is(page.Err, domain.ErrAuthInvalid) {
		return
	}

	if !auth.NeedsPersist() {
		return
	}
	rec := auth.Record(e.now())
	log.Info("updating rotated access token", zap.Time("expiry", rec.Expiry))
	if err := e.store.Put(ctx, rec); err != nil {
		log.Error("failed to persist rotated token", zap.Error(err))
		return
	}
	auth.MarkPersisted(rec.Token())
}

// EncodeBody turns a request body into bytes. Structured values are
// encoded as JSON; strings, byte slices and fmt.Stringers are sent as is.
func EncodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return b, "application/json", nil
	case []byte:
		return b, "", nil
	case string:
		return []byte(b), "", nil
	case fmt.Stringer:
		return []byte(b.String()), "", nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode body: %w", err)
		}
		return data, "application/json", nil
	}
}

func decodeObject(body []byte) map[string]any {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil
	}
	return data
}
