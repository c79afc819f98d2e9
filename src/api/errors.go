package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnauthorized = errors.New("authentication failed")
	ErrNotFound     = errors.New("contact not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

// APIError is a failed REST call: a non-2xx response, or a transport failure when StatusCode
// is zero.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	// Body is the (truncated) response body.
	Body      string
	RequestID string
	Err       error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is maps status codes onto the package sentinels so callers can use errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= 500
	case ErrNetwork:
		return e.StatusCode == 0
	}
	return false
}

// Temporary reports whether repeating the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts API errors to user-friendly messages
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return &UserError{
			Message: "Authentication failed",
			Hint:    "Check that MWA_API_TOKEN is set and still valid.",
			Err:     err,
		}
	case errors.Is(err, ErrNotFound):
		return &UserError{
			Message: "Contact not found",
			Hint:    "It may have been deleted by another reviewer. Reload the list.",
			Err:     err,
		}
	case errors.Is(err, ErrRateLimited):
		return &UserError{
			Message: "The contact API is rate limiting requests",
			Hint:    "Wait a moment and retry, or lower MWA_REQUESTS_PER_SECOND.",
			Err:     err,
		}
	case errors.Is(err, ErrNetwork):
		return &UserError{
			Message: "Could not reach the contact API",
			Hint:    "Check MWA_API_URL and your network connection.",
			Err:     err,
		}
	case errors.Is(err, ErrServer):
		return &UserError{
			Message: "The contact API failed",
			Hint:    "This is usually transient. Retry in a few seconds.",
			Err:     err,
		}
	}
	return err
}
