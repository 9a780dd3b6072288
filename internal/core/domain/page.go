package domain

import (
	"errors"
	"net/http"
	"time"
)

// NextPageTokenField is the response field holding the next page cursor.
const NextPageTokenField = "nextPageToken"

// PageResult is the classified outcome of one HTTP round trip.
// It is never modified after the executor returns it.
type PageResult struct {
	// Index is the zero-based position of the page within its sequence.
	Index int
	// URL is the address the call was issued against.
	URL string

	StatusCode int
	Header     http.Header
	// Body is the raw response payload.
	Body []byte
	// Data is the decoded JSON body. It is nil for transport failures
	// and for bodies that are not JSON objects.
	Data map[string]any

	// IsError is true for transport failures and status codes >= 400.
	IsError bool
	// Err is a *TransportFailure or *RemoteAPIError when IsError is set.
	Err error

	RequestID string
	Duration  time.Duration
}

// NextPageToken returns the cursor of the next page, or "" when the
// response carries none.
func (p *PageResult) NextPageToken() string {
	if p == nil || p.Data == nil {
		return ""
	}
	token, _ := p.Data[NextPageTokenField].(string)
	return token
}

// Failed returns true if the page is absent or classified as an error.
func (p *PageResult) Failed() bool {
	return p == nil || p.IsError
}

// RemoteError returns the remote API error carried by the page, if any.
func (p *PageResult) RemoteError() *RemoteAPIError {
	if p == nil {
		return nil
	}
	var rerr *RemoteAPIError
	if errors.As(p.Err, &rerr) {
		return rerr
	}
	return nil
}

// StopReason explains why a page sequence terminated.
type StopReason string

const (
	// StopNone means the sequence is still running.
	StopNone StopReason = ""
	// StopExhausted means the last page carried no next-page token.
	StopExhausted StopReason = "exhausted"
	// StopPageLimit means the page limit was reached.
	StopPageLimit StopReason = "page_limit"
	// StopError means the last page was classified as an error.
	StopError StopReason = "error"
	// StopCancelled means the context was done before the next call.
	StopCancelled StopReason = "cancelled"
	// StopStopped means the consumer released the sequence early.
	StopStopped StopReason = "stopped"
)

// PaginationState is the cursor state of one page sequence.
type PaginationState struct {
	PageToken   string
	PagesIssued int
	UnderLimit  bool
}

// UnderPageLimit reports whether issued pages stay below limit.
// A limit of zero or less is unbounded.
func UnderPageLimit(issued, limit int) bool {
	if limit <= 0 {
		return true
	}
	return issued < limit
}
