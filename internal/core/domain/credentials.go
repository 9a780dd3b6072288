package domain

import "time"

// CredentialRecord stores the OAuth tokens a user granted to one app.
// Records are keyed by (UserID, AppID) and outlive any single request.
//
// Records are written by the request executor when a token is silently
// refreshed, and deleted when the remote API reports them invalid.
type CredentialRecord struct {
	// UserID is the portal user the tokens belong to.
	UserID string `json:"user_id"`
	// AppID is the app identity the tokens were granted to ("Google", "OEC").
	AppID string `json:"app_id"`

	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// Expiry is when the access token expires. Zero means unknown.
	Expiry time.Time `json:"expiry,omitempty"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasAccessToken returns true if the record carries a non-empty access token.
func (c *CredentialRecord) HasAccessToken() bool {
	return c != nil && c.AccessToken != ""
}

// Usable returns true if either token can be used to authenticate.
func (c *CredentialRecord) Usable() bool {
	return c != nil && (c.AccessToken != "" || c.RefreshToken != "")
}

// Token returns the token triple held by the record.
func (c *CredentialRecord) Token() Token {
	return Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// InlineCredentials are tokens passed explicitly with a request instead of
// being looked up in the credential store.
type InlineCredentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Usable returns true if either token is set.
func (c *InlineCredentials) Usable() bool {
	return c != nil && (c.AccessToken != "" || c.RefreshToken != "")
}

// Token returns the token triple held by the inline credentials.
func (c *InlineCredentials) Token() Token {
	return Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}
