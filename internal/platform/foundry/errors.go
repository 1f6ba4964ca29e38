package foundry

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned for non-2xx responses from the Foundry API.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("foundry api: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("foundry api: %s %s: %d", e.Method, e.Path, e.StatusCode)
}

// AuthenticationError indicates the credentials were rejected.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("foundry authentication failed: %s", e.Reason)
}

// statusCode extracts the HTTP status from an APIError chain, or 0.
func statusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return statusCode(err) == http.StatusNotFound
}

// IsConflict checks if an error indicates a duplicate or conflicting
// resource, such as an already-placed bid with the same order name.
func IsConflict(err error) bool {
	return statusCode(err) == http.StatusConflict
}

// IsAuthFailure checks if an error indicates rejected credentials or an
// expired token.
func IsAuthFailure(err error) bool {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}
	return statusCode(err) == http.StatusUnauthorized
}

// isRetryable reports whether a request that failed with err is worth
// retrying. Rate limiting and server-side errors are transient; everything
// else is treated as permanent.
func isRetryable(err error) bool {
	code := statusCode(err)
	return code == http.StatusTooManyRequests || code >= 500
}
