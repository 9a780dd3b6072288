package google

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
)

// ParseError decodes the Google error envelope of a response with an error
// status. It returns nil for statuses below 400.
func ParseError(status int, header http.Header, body []byte) *googleapi.Error {
	if status < http.StatusBadRequest {
		return nil
	}
	resp := &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
	err := googleapi.CheckResponse(resp)
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr
	}
	return &googleapi.Error{Code: status, Body: string(body)}
}

// ToRemoteError converts a Google API error to the domain error carried
// by an error page.
func ToRemoteError(gerr *googleapi.Error) *domain.RemoteAPIError {
	if gerr == nil {
		return nil
	}
	rerr := &domain.RemoteAPIError{
		StatusCode: gerr.Code,
		Message:    gerr.Message,
		Body:       gerr.Body,
		Cause:      gerr,
	}
	if len(gerr.Errors) > 0 {
		rerr.Reason = gerr.Errors[0].Reason
		if rerr.Message == "" {
			rerr.Message = gerr.Errors[0].Message
		}
	}
	return rerr
}

// IsInvalidCredentials returns true for a 401 carrying the
// "Invalid Credentials" message, which means the stored grant is dead.
func IsInvalidCredentials(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr != nil {
		return gerr.Code == http.StatusUnauthorized && gerr.Message == domain.InvalidCredentialsMessage
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr != nil {
		return gerr.Code == http.StatusTooManyRequests
	}
	return false
}
