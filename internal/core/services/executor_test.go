package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

func newObservedExecutor(transport driven.Transport, store driven.CredentialStore, sink driven.InstrumentationSink) (*Executor, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewExecutor(transport, store, sink, zap.New(core)), logs
}

func TestExecutor_InjectsPageToken(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	exec, _ := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{
		Descriptor: listDescriptor(0),
		Method:     listMethod(),
		PageToken:  "tok-2",
	})

	require.False(t, page.IsError)
	req := transport.request(0)
	assert.Equal(t, "https://www.googleapis.com/drive/v3/files?q=trashed%3Dfalse&pageToken=tok-2", req.URL)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.True(t, req.Authenticated)
	assert.Equal(t, "tok-2", req.PageToken)
	assert.Equal(t, "drive_v3_files_list", req.FixtureKey)
}

func TestExecutor_NoPageTokenWithoutCursor(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	exec, _ := newObservedExecutor(transport, nil, nil)

	exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.NotContains(t, transport.request(0).URL, "pageToken")
}

func TestExecutor_EncodesStructuredBody(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	exec, _ := newObservedExecutor(transport, nil, nil)
	desc := listDescriptor(0)
	desc.Body = map[string]any{"name": "report"}
	desc.FixtureName = "custom_fixture"

	exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: desc, Method: listMethod()})

	req := transport.request(0)
	assert.JSONEq(t, `{"name":"report"}`, string(req.Body))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, "custom_fixture", req.FixtureKey)
}

type stringerBody struct{}

func (stringerBody) String() string { return "stringified" }

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name        string
		body        any
		want        string
		contentType string
	}{
		{"nil", nil, "", ""},
		{"string", "raw=1", "raw=1", ""},
		{"bytes", []byte("bytes"), "bytes", ""},
		{"stringer", stringerBody{}, "stringified", ""},
		{"map", map[string]int{"a": 1}, `{"a":1}`, "application/json"},
		{"struct", struct {
			Name string `json:"name"`
		}{"x"}, `{"name":"x"}`, "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ct, err := EncodeBody(tt.body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			assert.Equal(t, tt.contentType, ct)
		})
	}

	_, _, err := EncodeBody(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestExecutor_TransportFailure(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{{err: errors.New("connection reset")}}}
	exec, logs := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.Nil(t, page.Data)
	assert.ErrorIs(t, page.Err, domain.ErrTransport)
	assert.Empty(t, page.NextPageToken())

	entries := logs.FilterMessage("unable to send request transaction").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "fatal", entries[0].ContextMap()["severity"])
}

func TestExecutor_RecoversPanic(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{{panic: "boom"}}}
	exec, _ := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.ErrorIs(t, page.Err, domain.ErrTransport)
	assert.Contains(t, page.Err.Error(), "boom")
}

func TestExecutor_BlankResponse(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{{resp: &driven.TransportResponse{}}}}
	exec, logs := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.Nil(t, page.Data)
	assert.Equal(t, 1, logs.FilterMessage("got a blank response").Len())
}

func TestExecutor_RemoteError(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		jsonResponse(http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": 500, "message": "Backend Error"}}),
	}}
	exec, logs := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.Equal(t, 500, page.StatusCode)
	rerr := page.RemoteError()
	require.NotNil(t, rerr)
	assert.Equal(t, "Backend Error", rerr.Message)

	entries := logs.FilterMessage("got an error response").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(500), entries[0].ContextMap()["status"])
	assert.Contains(t, entries[0].ContextMap()["body"], "Backend Error")
}

func TestExecutor_UndecodableBody(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{{resp: &driven.TransportResponse{StatusCode: 200, Body: []byte("<html>")}}}}
	exec, _ := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.Nil(t, page.Data)
	assert.Equal(t, 200, page.StatusCode)
	assert.ErrorIs(t, page.Err, domain.ErrTransport)
}

func TestExecutor_EmptyBodyIsSuccess(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{{resp: &driven.TransportResponse{StatusCode: http.StatusNoContent}}}}
	exec, _ := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: domain.RequestDescriptor{URI: "https://example.test/x", HTTPMethod: http.MethodDelete}})

	assert.False(t, page.IsError)
	assert.Nil(t, page.Data)
	assert.Equal(t, http.MethodDelete, transport.request(0).Method)
	assert.False(t, transport.request(0).Authenticated)
}

func TestExecutor_InvalidDescriptor(t *testing.T) {
	transport := &scriptedTransport{}
	exec, _ := newObservedExecutor(transport, nil, nil)

	page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: domain.RequestDescriptor{}})

	assert.True(t, page.IsError)
	assert.ErrorIs(t, page.Err, domain.ErrInvalidInput)
	assert.Equal(t, 0, transport.calls())
}

func TestExecutor_RevokesInvalidCredentials(t *testing.T) {
	store := newCountingStore()
	require.NoError(t, store.CredentialStore.Put(context.Background(), domain.CredentialRecord{UserID: "u1", AppID: domain.AppGoogle, AccessToken: "a0"}))
	// The token rotates during the call, which must not lead to a put.
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{invalidCredentialsResponse()}}
	exec, logs := newObservedExecutor(transport, store, nil)

	page := exec.Execute(context.Background(), userAuth(source), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.True(t, google.IsInvalidCredentials(page.Err))
	assert.Equal(t, 1, store.deletes)
	assert.Empty(t, store.puts)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, logs.FilterMessage("deleting access token due to 401 Invalid Credentials").Len())
}

func TestExecutor_OtherUnauthorizedLeavesStoreAlone(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{
		jsonResponse(http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": 401, "message": "Login Required"}}),
	}}
	exec, _ := newObservedExecutor(transport, store, nil)

	page := exec.Execute(context.Background(), userAuth(source), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.ErrorIs(t, page.Err, domain.ErrAuthInvalid)
	assert.False(t, google.IsInvalidCredentials(page.Err))
	assert.Zero(t, store.deletes)
	assert.Empty(t, store.puts)
}

func TestExecutor_PersistsRotatedToken(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1", RefreshToken: "r1"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	exec, _ := newObservedExecutor(transport, store, nil)

	page := exec.Execute(context.Background(), userAuth(source), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.False(t, page.IsError)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "u1", store.puts[0].UserID)
	assert.Equal(t, domain.AppGoogle, store.puts[0].AppID)
	assert.Equal(t, "a1", store.puts[0].AccessToken)
	assert.Equal(t, "r1", store.puts[0].RefreshToken)
	assert.Zero(t, store.deletes)
}

func TestExecutor_PersistsRotationOnRemoteError(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{jsonResponse(http.StatusNotFound, map[string]any{})}}
	exec, _ := newObservedExecutor(transport, store, nil)

	page := exec.Execute(context.Background(), userAuth(source), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.True(t, page.IsError)
	assert.Len(t, store.puts, 1)
}

func TestExecutor_NoPutWithoutRotation(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a0"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	exec, _ := newObservedExecutor(transport, store, nil)

	exec.Execute(context.Background(), userAuth(source), PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.Empty(t, store.puts)
}

func TestExecutor_NoReconciliationWithoutUser(t *testing.T) {
	store := newCountingStore()
	auth := domain.NewAuthorization(domain.AppGoogle, "", domain.Token{AccessToken: "a0"},
		&rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}}})
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken(""), invalidCredentialsResponse()}}
	exec, _ := newObservedExecutor(transport, store, nil)

	exec.Execute(context.Background(), auth, PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})
	exec.Execute(context.Background(), auth, PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})

	assert.Empty(t, store.puts)
	assert.Zero(t, store.deletes)
}

func TestExecutor_StoreFailureIsLoggedOnly(t *testing.T) {
	store := newCountingStore()
	store.putErr = errors.New("disk full")
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken(""), pageWithToken("")}}
	exec, logs := newObservedExecutor(transport, store, nil)
	auth := userAuth(source)

	page := exec.Execute(context.Background(), auth, PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})
	assert.False(t, page.IsError)
	assert.Equal(t, 1, logs.FilterMessage("failed to persist rotated token").Len())

	// The failed write is attempted again on the next call.
	exec.Execute(context.Background(), auth, PageRequest{Descriptor: listDescriptor(0), Method: listMethod()})
	assert.Len(t, store.puts, 2)
}

func TestExecutor_EmitsInstrumentationEvent(t *testing.T) {
	sink := &recordingSink{}
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken(""), {err: errors.New("timeout")}}}
	exec, _ := newObservedExecutor(transport, nil, sink)

	exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: listDescriptor(0), Method: listMethod(), RequestID: "req-1"})
	exec.Execute(context.Background(), userAuth(nil), PageRequest{
		Descriptor: domain.RequestDescriptor{URI: "https://example.test/ping"},
		RequestID:  "req-2",
	})

	require.Len(t, sink.events, 2)
	first := sink.events[0]
	assert.Equal(t, domain.EventProxy, first.Name)
	assert.Equal(t, "drive.files.list", first.ResourceClass)
	assert.Equal(t, "req-1", first.RequestID)
	assert.Equal(t, 200, first.StatusCode)
	assert.NoError(t, first.Err)
	assert.Contains(t, first.URL, "https://www.googleapis.com/drive/v3/files")

	second := sink.events[1]
	assert.Equal(t, "simple", second.ResourceClass)
	assert.Equal(t, "https://example.test/ping", second.URL)
	assert.Error(t, second.Err)
	assert.Equal(t, "error", second.Outcome())
}

func TestExecutor_IdempotentClassification(t *testing.T) {
	tests := []struct {
		name     string
		response scriptedResponse
		isError  bool
	}{
		{"success", pageWithToken(""), false},
		{"remote error", jsonResponse(http.StatusForbidden, map[string]any{}), true},
		{"transport error", scriptedResponse{err: errors.New("dial")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &scriptedTransport{responses: []scriptedResponse{tt.response}, repeat: true}
			exec, _ := newObservedExecutor(transport, nil, nil)
			desc := domain.RequestDescriptor{URI: "https://example.test/check", Authenticated: true}

			for i := 0; i < 3; i++ {
				page := exec.Execute(context.Background(), userAuth(nil), PageRequest{Descriptor: desc})
				assert.Equal(t, tt.isError, page.IsError, fmt.Sprintf("call %d", i))
			}
		})
	}
}
