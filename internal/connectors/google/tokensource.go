package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.TokenRefresher = (*Refresher)(nil)

// Refresher builds refreshing token sources from app OAuth clients.
type Refresher struct{}

// NewRefresher creates a Refresher.
func NewRefresher() *Refresher {
	return &Refresher{}
}

// TokenSource returns a source that reuses tok until it expires and then
// refreshes it with the app's client credentials.
func (r *Refresher) TokenSource(ctx context.Context, app domain.AppConfig, tok domain.Token) domain.TokenSource {
	cfg := OAuthConfig(app)
	return &oauth2Source{
		ts: cfg.TokenSource(ctx, &oauth2.Token{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       tok.Expiry,
		}),
	}
}

type oauth2Source struct {
	ts oauth2.TokenSource
}

func (s *oauth2Source) Token() (domain.Token, error) {
	t, err := s.ts.Token()
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	return domain.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}, nil
}

// TokenSourceAdapter adapts a domain.Authorization to oauth2.TokenSource.
// Every token handed to an HTTP client goes through the authorization, so
// silent refreshes are recorded there.
type TokenSourceAdapter struct {
	auth *domain.Authorization
}

// NewTokenSource creates an oauth2.TokenSource from an authorization.
func NewTokenSource(auth *domain.Authorization) oauth2.TokenSource {
	return &TokenSourceAdapter{auth: auth}
}

// Token implements oauth2.TokenSource interface.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	tok, err := t.auth.Token()
	if err != nil {
		return nil, err
	}

	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       tok.Expiry,
	}, nil
}
