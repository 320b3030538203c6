package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRefreshToken is returned by an explicit refresh request when
	// there is no refresh credential to redeem.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRefreshFailed is returned by an explicit refresh request when
	// the exchange did not produce a new access credential.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// TimeoutError indicates the per-attempt deadline expired before the
// server responded.
type TimeoutError struct{}

func (e *TimeoutError) Error() string {
	return "Request timeout"
}

// NetworkError indicates a connection-level failure (DNS, refused
// connection, reset). Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError is a completed HTTP response with a non-2xx status other
// than a recoverable 401. It carries the status code so callers and the
// retry controller can classify it without parsing the message.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("API error %d: %s", e.Status, e.Message)
}

// Retryable reports whether the failure is server-side and worth
// retrying. Client errors (4xx) will not succeed by retrying unchanged.
func (e *APIError) Retryable() bool {
	return e.Status >= 500
}

// SessionExpiredError indicates a 401 that could not be recovered by a
// token refresh. Credentials have been cleared by the time the caller
// sees this error.
type SessionExpiredError struct{}

func (e *SessionExpiredError) Error() string {
	return "Session expired. Please login again."
}

// retryable classifies an error for the retry controller. Transport
// failures and 5xx responses are transient; everything else propagates
// on first occurrence.
func retryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var toErr *TimeoutError
	if errors.As(err, &toErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return false
}
