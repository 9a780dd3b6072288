package driven

import (
	"context"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// TokenRefresher builds token sources that refresh expired access tokens
// using the app's OAuth client.
//
// The returned source must reuse a token until it expires. It is owned by
// one authorization and must not be shared between users.
type TokenRefresher interface {
	TokenSource(ctx context.Context, app domain.AppConfig, tok domain.Token) domain.TokenSource
}
