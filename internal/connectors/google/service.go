package google

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// DefaultScopes are requested when an app configures none.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/spreadsheets",
}

// OAuthConfig builds the OAuth2 client of an app. Endpoints default to
// Google's when the app leaves them empty.
func OAuthConfig(app domain.AppConfig) *oauth2.Config {
	endpoint := google.Endpoint
	if app.AuthURL != "" {
		endpoint.AuthURL = app.AuthURL
	}
	if app.TokenURL != "" {
		endpoint.TokenURL = app.TokenURL
	}

	scopes := app.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	return &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}
}
