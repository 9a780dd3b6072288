package domain

import (
	"strings"
	"sync"
	"time"
)

// FakeAccessTokenPrefix marks access tokens fabricated for fake mode.
const FakeAccessTokenPrefix = "fake-access-token:"

// Token is the (access, refresh, expiry) triple of an OAuth2 grant.
type Token struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// IsFake returns true if the access token was fabricated for fake mode.
func (t Token) IsFake() bool {
	return strings.HasPrefix(t.AccessToken, FakeAccessTokenPrefix)
}

// TokenSource hands out a valid token, refreshing it when needed.
type TokenSource interface {
	Token() (Token, error)
}

// Authorization is the live credential state of one logical request.
//
// It remembers the access token it was constructed with so that a silent
// refresh can be detected at any point of a page sequence, no matter how
// many refreshes happened before. An Authorization must not be shared
// between requests of different users.
type Authorization struct {
	AppID  string
	UserID string
	Fake   bool

	initial Token
	source  TokenSource

	mu        sync.Mutex
	current   Token
	persisted string
}

// NewAuthorization creates an authorization from a token triple.
// A nil source means the token is handed out as is and never refreshed.
func NewAuthorization(appID, userID string, tok Token, source TokenSource) *Authorization {
	return &Authorization{
		AppID:   appID,
		UserID:  userID,
		initial: tok,
		current: tok,
		source:  source,
	}
}

// NewFakeAuthorization fabricates an authorization for fake mode.
func NewFakeAuthorization(appID, userID string) *Authorization {
	a := NewAuthorization(appID, userID, Token{AccessToken: FakeAccessTokenPrefix + appID}, nil)
	a.Fake = true
	return a
}

// Token returns a usable token, refreshing through the source if needed,
// and records it as the current token.
func (a *Authorization) Token() (Token, error) {
	if a.source == nil {
		return a.Current(), nil
	}
	tok, err := a.source.Token()
	if err != nil {
		return Token{}, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = a.Current().RefreshToken
	}

	a.mu.Lock()
	a.current = tok
	a.mu.Unlock()
	return tok, nil
}

// Initial returns the token captured at construction.
func (a *Authorization) Initial() Token {
	return a.initial
}

// Current returns the latest token handed out.
func (a *Authorization) Current() Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Rotated reports whether the current access token differs from the one
// captured at construction.
func (a *Authorization) Rotated() bool {
	cur := a.Current()
	return cur.AccessToken != "" && cur.AccessToken != a.initial.AccessToken
}

// NeedsPersist reports whether the current token is a rotation that has
// not been written to the credential store yet.
func (a *Authorization) NeedsPersist() bool {
	if !a.Rotated() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current.AccessToken != a.persisted
}

// MarkPersisted records that tok has been written to the credential store.
func (a *Authorization) MarkPersisted(tok Token) {
	a.mu.Lock()
	a.persisted = tok.AccessToken
	a.mu.Unlock()
}

// BelongsToUser returns true if the authorization was loaded for a user,
// which makes its tokens eligible for persistence.
func (a *Authorization) BelongsToUser() bool {
	return a.UserID != ""
}

// Record builds the credential record for the current token.
func (a *Authorization) Record(now time.Time) CredentialRecord {
	cur := a.Current()
	return CredentialRecord{
		UserID:       a.UserID,
		AppID:        a.AppID,
		AccessToken:  cur.AccessToken,
		RefreshToken: cur.RefreshToken,
		Expiry:       cur.Expiry,
		UpdatedAt:    now,
	}
}
