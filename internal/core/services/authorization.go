package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driven"
)

// AuthOptions selects where an authorization's tokens come from.
type AuthOptions struct {
	// UserID looks up stored credentials and marks the authorization as
	// belonging to the user.
	UserID string
	// Inline credentials are used when no stored record is usable.
	Inline *domain.InlineCredentials
}

// AuthorizationLoader builds the authorization of a logical request.
// Loading never writes to the credential store.
type AuthorizationLoader struct {
	store     driven.CredentialStore
	refresher driven.TokenRefresher
}

// NewAuthorizationLoader creates a loader. A nil refresher produces
// authorizations that never refresh.
func NewAuthorizationLoader(store driven.CredentialStore, refresher driven.TokenRefresher) *AuthorizationLoader {
	return &AuthorizationLoader{store: store, refresher: refresher}
}

// Load resolves the tokens for app.
//
// Fake apps get a fabricated token. Live apps use the stored record of
// opts.UserID when present, then inline credentials; with neither, Load
// fails with *domain.CredentialResolutionError.
func (l *AuthorizationLoader) Load(ctx context.Context, app domain.AppConfig, opts AuthOptions) (*domain.Authorization, error) {
	if app.Fake {
		return domain.NewFakeAuthorization(app.ID, opts.UserID), nil
	}

	var (
		tok   domain.Token
		found bool
	)
	if opts.UserID != "" && l.store != nil {
		rec, err := l.store.Get(ctx, opts.UserID, app.ID)
		if err != nil {
			return nil, &domain.CredentialResolutionError{
				AppID:  app.ID,
				UserID: opts.UserID,
				Reason: fmt.Sprintf("read credential store: %v", err),
			}
		}
		if rec.Usable() {
			tok, found = rec.Token(), true
		}
	}

	if !found && opts.Inline.Usable() {
		tok, found = opts.Inline.Token(), true
	}

	if !found {
		reason := "no inline credentials supplied"
		if opts.UserID != "" {
			reason = "no stored credentials and no inline credentials supplied"
		}
		return nil, &domain.CredentialResolutionError{AppID: app.ID, UserID: opts.UserID, Reason: reason}
	}

	var source domain.TokenSource
	if l.refresher != nil {
		// The source outlives the call that built it.
		source = l.refresher.TokenSource(context.WithoutCancel(ctx), app, tok)
	}
	return domain.NewAuthorization(app.ID, opts.UserID, tok, source), nil
}
