// Package transport provides the HTTP strategies used by the request
// executor.
//
// Live issues real calls, attaching the bearer token of the request's
// authorization through an oauth2 transport. Fixture answers from canned
// JSON bodies for apps in fake mode. RateLimited wraps either one with a
// per-app token bucket.
//
// None of the transports retry.
package transport
