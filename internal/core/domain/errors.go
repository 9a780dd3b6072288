package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnknownApp indicates no configuration exists for an app identity.
	ErrUnknownApp = errors.New("unknown app")

	// Authentication Errors.

	// ErrAuthRequired indicates a live request has no usable credentials.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the remote API rejected the credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Request Errors.

	// ErrUnknownResource indicates an (api, version, resource, method) tuple did not resolve.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrTransport indicates the HTTP call could not be completed.
	ErrTransport = errors.New("transport failure")

	// ErrRemoteAPI indicates the remote API answered with an error status.
	ErrRemoteAPI = errors.New("remote API error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrFixtureNotFound indicates fake mode has no canned response for a request.
	ErrFixtureNotFound = errors.New("fixture not found")
)

// InvalidCredentialsMessage is the error message Google returns alongside
// a 401 when the stored token can no longer be used.
const InvalidCredentialsMessage = "Invalid Credentials"

// CredentialResolutionError is returned when no usable authorization
// could be built for a live request.
type CredentialResolutionError struct {
	AppID  string
	UserID string
	Reason string
}

func (e *CredentialResolutionError) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("credential resolution failed for user %q on app %q: %s", e.UserID, e.AppID, e.Reason)
	}
	return fmt.Sprintf("credential resolution failed on app %q: %s", e.AppID, e.Reason)
}

// Unwrap allows errors.Is(err, ErrAuthRequired).
func (e *CredentialResolutionError) Unwrap() error { return ErrAuthRequired }

// UnknownResourceError is returned when a resource tuple does not resolve
// against the registered discovery metadata.
type UnknownResourceError struct {
	API      string
	Version  string
	Resource string
	Method   string
	Reason   string
}

func (e *UnknownResourceError) Error() string {
	key := strings.Join([]string{e.API, e.Version, e.Resource, e.Method}, "/")
	if e.Reason != "" {
		return fmt.Sprintf("unknown resource %s: %s", key, e.Reason)
	}
	return "unknown resource " + key
}

// Unwrap allows errors.Is(err, ErrUnknownResource).
func (e *UnknownResourceError) Unwrap() error { return ErrUnknownResource }

// TransportFailure wraps a network or deserialization failure that
// happened while executing one page.
type TransportFailure struct {
	URL string
	Err error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("transport failure for %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportFailure) Unwrap() error { return e.Err }

// Is reports ErrTransport as a match so callers need not know the cause.
func (e *TransportFailure) Is(target error) bool { return target == ErrTransport }

// RemoteAPIError describes a response with status >= 400.
type RemoteAPIError struct {
	StatusCode int
	Message    string
	Reason     string
	Body       string
	// Cause is the transport-level error the response was parsed into.
	Cause error
}

func (e *RemoteAPIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote API error %d", e.StatusCode)
}

// Unwrap allows errors.Is(err, ErrRemoteAPI) and exposes Cause. A 401
// also matches ErrAuthInvalid.
func (e *RemoteAPIError) Unwrap() []error {
	errs := []error{ErrRemoteAPI}
	if e.StatusCode == 401 {
		errs = append(errs, ErrAuthInvalid)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
