package goGuard

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotReady is returned when an operation runs before Build completed.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNoToken is returned when an operation requires a session token and none is held.
	ErrNoToken = errors.New("no session token")
	// ErrTokenExpired is returned when a token is past (or within the buffer of) its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when a token cannot be decoded at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrUnauthorized is returned when the server rejects the current credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLoginRejected is returned when the login endpoint answers with a non-2xx status.
	ErrLoginRejected = errors.New("login rejected")
	// ErrLoginPayloadInvalid is returned when a 2xx login response cannot be parsed.
	ErrLoginPayloadInvalid = errors.New("malformed login response")
	// ErrNetworkUnavailable classifies transport-level failures (DNS, refused
	// connection, timeout) as distinct from semantic auth rejection.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrStorageUnavailable is returned when the persistence backend cannot be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrChangePasswordRejected is returned when the change-password endpoint answers non-2xx.
	ErrChangePasswordRejected = errors.New("change password rejected")
	// ErrRequestRejected is returned when a generic authenticated call answers
	// a non-2xx status other than 401.
	ErrRequestRejected = errors.New("request rejected")
)

// APIError carries the HTTP status and server-provided message of a semantic
// rejection. It wraps the sentinel matching its class so callers can use
// errors.Is while still surfacing the server's message to the user.
type APIError struct {
	StatusCode int
	Message    string

	sentinel error
}

func newAPIError(status int, message string, sentinel error) *APIError {
	return &APIError{
		StatusCode: status,
		Message:    message,
		sentinel:   sentinel,
	}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap exposes the sentinel class of the rejection.
func (e *APIError) Unwrap() error {
	return e.sentinel
}

// UserMessage returns the server's message when present, else a generic
// fallback suitable for direct display.
func (e *APIError) UserMessage() string {
	if e == nil || e.Message == "" {
		return "request failed, please try again"
	}
	return e.Message
}
