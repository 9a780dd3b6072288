package driving

import (
	"context"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// ProxyOptions selects the app and credentials of a proxy.
type ProxyOptions struct {
	// AppID is the app identity. Empty selects the default app.
	AppID string
	// UserID loads stored credentials and enables token persistence.
	UserID string
	// Inline credentials are used when no user record is found.
	Inline *domain.InlineCredentials
}

// ProxyFactory builds proxies bound to one authorization.
type ProxyFactory interface {
	// NewProxy fails with *domain.CredentialResolutionError before any
	// HTTP call if no usable authorization can be built.
	NewProxy(ctx context.Context, opts ProxyOptions) (ProxyService, error)
}

// ProxyService issues requests on behalf of one authorization.
type ProxyService interface {
	// Request resolves the descriptor and returns a lazy page sequence.
	// Unresolvable resources fail with *domain.UnknownResourceError.
	Request(ctx context.Context, desc domain.RequestDescriptor) (PageIterator, error)

	// SimpleRequest issues one call without pagination. I/O failures are
	// reported in the returned page, never as an error.
	SimpleRequest(ctx context.Context, desc domain.RequestDescriptor) *domain.PageResult

	// AppID returns the app the proxy is bound to.
	AppID() string
}

// PageIterator is a pull-based page sequence. It is not restartable.
type PageIterator interface {
	// Next issues at most one call and reports whether a page is available.
	Next(ctx context.Context) bool
	// Page returns the page produced by the last successful Next.
	Page() *domain.PageResult
	// Done reports whether the sequence has terminated.
	Done() bool
	// State returns the current cursor state.
	State() domain.PaginationState
	// StopReason explains why the sequence terminated.
	StopReason() domain.StopReason
	// Stop releases the sequence early. Next returns false afterwards.
	Stop()
}

// AccessChecker reports whether a user can make authenticated calls.
type AccessChecker interface {
	// IsAccessGranted is true if the app is in fake mode or a stored
	// access token exists for (user, app).
	IsAccessGranted(ctx context.Context, userID, appID string) (bool, error)
}
