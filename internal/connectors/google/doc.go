// Package google provides the Google API infrastructure of the request client.
//
// This package contains the pieces that know about Google specifically:
//   - Registry: resolves (api, version, resource, method) against discovery documents
//   - Refresher: builds refreshing oauth2 token sources from app configuration
//   - NewTokenSource: adapts a domain.Authorization to oauth2.TokenSource
//   - Error parsing for the Google JSON error envelope (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
// The registry is built once at startup with the embedded documents:
//
//	reg, err := google.NewRegistry(google.WithLogger(log))
//	method, err := reg.Resolve(ctx, "drive", "v3", "files", "list")
//
// Live transports authenticate through the authorization's token source:
//
//	client := oauth2.NewClient(ctx, google.NewTokenSource(auth))
//
// # OAuth2 Scopes
//
// The default scopes cover the embedded APIs:
//   - https://www.googleapis.com/auth/userinfo.email (non-sensitive)
//   - https://www.googleapis.com/auth/drive (restricted)
//   - https://www.googleapis.com/auth/calendar (sensitive)
//   - https://www.googleapis.com/auth/spreadsheets (sensitive)
package google
