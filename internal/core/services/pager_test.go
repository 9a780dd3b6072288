package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/campusbridge/internal/connectors/google"
	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

func newTestPager(transport *scriptedTransport, limit int) *Pager {
	exec := NewExecutor(transport, nil, nil, nil)
	return NewPager(exec, userAuth(nil), listMethod(), listDescriptor(limit), "req-1", nil)
}

func collect(t *testing.T, p *Pager) []*domain.PageResult {
	t.Helper()
	var pages []*domain.PageResult
	for p.Next(context.Background()) {
		pages = append(pages, p.Page())
	}
	return pages
}

func TestPager_ThreePagesUnbounded(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		pageWithToken("t1"),
		pageWithToken("t2"),
		pageWithToken(""),
	}}
	p := newTestPager(transport, 0)

	pages := collect(t, p)

	require.Len(t, pages, 3)
	for i, page := range pages {
		assert.Equal(t, i, page.Index)
		assert.False(t, page.IsError)
		assert.Equal(t, "req-1", page.RequestID)
	}
	assert.Equal(t, 3, transport.calls())
	assert.NotContains(t, transport.request(0).URL, "pageToken")
	assert.Contains(t, transport.request(1).URL, "pageToken=t1")
	assert.Contains(t, transport.request(2).URL, "pageToken=t2")

	assert.True(t, p.Done())
	assert.Equal(t, domain.StopExhausted, p.StopReason())
	assert.True(t, p.State().UnderLimit)
	assert.Equal(t, 3, p.State().PagesIssued)
}

func TestPager_PageLimitStopsEndlessSequence(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("more")}, repeat: true}
	p := newTestPager(transport, 2)

	pages := collect(t, p)

	require.Len(t, pages, 2)
	assert.Equal(t, 2, transport.calls())
	assert.Equal(t, domain.StopPageLimit, p.StopReason())
	assert.False(t, p.State().UnderLimit)
	assert.Equal(t, "more", p.State().PageToken)
}

func TestPager_AtMostLimitPages(t *testing.T) {
	tests := []struct {
		name   string
		limit  int
		script []scriptedResponse
		want   int
		reason domain.StopReason
	}{
		{"limit 1", 1, []scriptedResponse{pageWithToken("a"), pageWithToken("b")}, 1, domain.StopPageLimit},
		{"limit 5 exhausted early", 5, []scriptedResponse{pageWithToken("a"), pageWithToken("")}, 2, domain.StopExhausted},
		{"limit equals pages", 2, []scriptedResponse{pageWithToken("a"), pageWithToken("")}, 2, domain.StopExhausted},
		{"negative limit is unbounded", -1, []scriptedResponse{pageWithToken("a"), pageWithToken("b"), pageWithToken("")}, 3, domain.StopExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &scriptedTransport{responses: tt.script}
			p := newTestPager(transport, tt.limit)

			pages := collect(t, p)

			assert.Len(t, pages, tt.want)
			assert.Equal(t, tt.want, transport.calls())
			assert.Equal(t, tt.reason, p.StopReason())
		})
	}
}

func TestPager_StopsAfterErrorPage(t *testing.T) {
	tests := []struct {
		name  string
		fails scriptedResponse
	}{
		{"remote error", jsonResponse(http.StatusInternalServerError, map[string]any{"nextPageToken": "ignored"})},
		{"transport error", scriptedResponse{err: errors.New("reset")}},
		{"blank response", scriptedResponse{resp: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &scriptedTransport{responses: []scriptedResponse{
				pageWithToken("t1"),
				tt.fails,
				pageWithToken("t3"),
			}}
			p := newTestPager(transport, 0)

			pages := collect(t, p)

			require.Len(t, pages, 2)
			assert.False(t, pages[0].IsError)
			assert.True(t, pages[1].IsError)
			assert.Equal(t, 2, transport.calls())
			assert.Equal(t, domain.StopError, p.StopReason())
			assert.Empty(t, p.State().PageToken)
		})
	}
}

func TestPager_FirstPageError(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{invalidCredentialsResponse()}}
	p := newTestPager(transport, 0)

	require.True(t, p.Next(context.Background()))
	assert.True(t, google.IsInvalidCredentials(p.Page().Err))
	assert.False(t, p.Next(context.Background()))
	assert.Equal(t, 1, transport.calls())
}

func TestPager_CancelledContext(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("t1")}, repeat: true}
	p := newTestPager(transport, 0)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, p.Next(ctx))
	cancel()

	assert.False(t, p.Next(ctx))
	assert.Equal(t, 1, transport.calls())
	assert.Equal(t, domain.StopCancelled, p.StopReason())
}

func TestPager_CancelledBeforeFirstPage(t *testing.T) {
	// A live transport reports the done context as a call error.
	transport := &scriptedTransport{responses: []scriptedResponse{{err: context.Canceled}}}
	p := newTestPager(transport, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.True(t, p.Next(ctx))
	page := p.Page()
	assert.True(t, page.IsError)
	assert.ErrorIs(t, page.Err, domain.ErrTransport)
	assert.ErrorIs(t, page.Err, context.Canceled)
	assert.Equal(t, 0, page.Index)

	assert.False(t, p.Next(ctx))
	assert.Equal(t, 1, transport.calls())
	assert.Equal(t, domain.StopError, p.StopReason())
}

func TestPager_Stop(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("t1")}, repeat: true}
	p := newTestPager(transport, 0)

	require.True(t, p.Next(context.Background()))
	p.Stop()
	p.Stop()

	assert.False(t, p.Next(context.Background()))
	assert.Equal(t, 1, transport.calls())
	assert.Equal(t, domain.StopStopped, p.StopReason())
	// The last page stays readable.
	assert.NotNil(t, p.Page())
}

func TestPager_NoCallBeforeNext(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}}
	p := newTestPager(transport, 0)

	assert.Equal(t, 0, transport.calls())
	assert.False(t, p.Done())
	assert.Equal(t, domain.StopNone, p.StopReason())
	assert.Nil(t, p.Page())
}

func TestPager_NotRestartable(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("")}, repeat: true}
	p := newTestPager(transport, 0)

	assert.Len(t, collect(t, p), 1)
	assert.Empty(t, collect(t, p))
	assert.Equal(t, 1, transport.calls())
}

func TestPager_AllBreakStops(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("more")}, repeat: true}
	p := newTestPager(transport, 0)

	count := 0
	for range p.All(context.Background()) {
		count++
		if count == 3 {
			break
		}
	}

	assert.Equal(t, 3, count)
	assert.Equal(t, 3, transport.calls())
	assert.Equal(t, domain.StopStopped, p.StopReason())
}

func TestPager_AllYieldsEveryPage(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{pageWithToken("a"), pageWithToken("")}}
	p := newTestPager(transport, 0)

	var indexes []int
	for page := range p.All(context.Background()) {
		indexes = append(indexes, page.Index)
	}

	assert.Equal(t, []int{0, 1}, indexes)
	assert.Equal(t, domain.StopExhausted, p.StopReason())
}

func TestPager_PersistsRotationOnce(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1", RefreshToken: "r0"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{
		pageWithToken("t1"),
		pageWithToken("t2"),
		pageWithToken(""),
	}}
	exec := NewExecutor(transport, store, nil, nil)
	p := NewPager(exec, userAuth(source), listMethod(), listDescriptor(0), "req-1", nil)

	pages := collect(t, p)

	assert.Len(t, pages, 3)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "a1", store.puts[0].AccessToken)
}

func TestPager_PersistsEachDistinctRotation(t *testing.T) {
	store := newCountingStore()
	source := &rotatingSource{tokens: []domain.Token{{AccessToken: "a1"}, {AccessToken: "a1"}, {AccessToken: "a2"}}}
	transport := &scriptedTransport{responses: []scriptedResponse{
		pageWithToken("t1"),
		pageWithToken("t2"),
		pageWithToken(""),
	}}
	exec := NewExecutor(transport, store, nil, nil)
	p := NewPager(exec, userAuth(source), listMethod(), listDescriptor(0), "req-1", nil)

	collect(t, p)

	require.Len(t, store.puts, 2)
	assert.Equal(t, "a1", store.puts[0].AccessToken)
	assert.Equal(t, "a2", store.puts[1].AccessToken)
}
