package api

import (
	"fmt"
	"net/http"
)

// ErrorType classifies an API failure for callers that branch on the
// failure class rather than the raw status code.
type ErrorType string

const (
	// ErrorUnauthorized is a 401: the caller needs a (new) session.
	ErrorUnauthorized ErrorType = "unauthorized"

	// ErrorForbidden is a 403: the session lacks permission. Not a
	// session-ending condition.
	ErrorForbidden ErrorType = "forbidden"

	// ErrorNotFound is a 404.
	ErrorNotFound ErrorType = "not_found"

	// ErrorServer is a 500.
	ErrorServer ErrorType = "server_error"

	// ErrorAPI is any other non-2xx response.
	ErrorAPI ErrorType = "api_error"

	// ErrorNetwork is a transport failure with no HTTP response.
	ErrorNetwork ErrorType = "network_error"
)

// APIError is the typed failure every client call resolves to.
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Type, e.StatusCode, e.Message)
}

// Classify maps an HTTP status and server message to an APIError,
// substituting a default message when the server provided none.
func Classify(statusCode int, message string) *APIError {
	var typ ErrorType
	var fallback string

	switch statusCode {
	case http.StatusUnauthorized:
		typ, fallback = ErrorUnauthorized, "Please log in to continue"
	case http.StatusForbidden:
		typ, fallback = ErrorForbidden, "You do not have permission to perform this action"
	case http.StatusNotFound:
		typ, fallback = ErrorNotFound, "Resource not found"
	case http.StatusInternalServerError:
		typ, fallback = ErrorServer, "Internal server error"
	default:
		typ, fallback = ErrorAPI, fmt.Sprintf("Request failed with status %d", statusCode)
	}

	if message == "" {
		message = fallback
	}
	return &APIError{Type: typ, StatusCode: statusCode, Message: message}
}

// NetworkError wraps a transport failure that produced no HTTP response.
func NetworkError(err error) *APIError {
	msg := "Network error. Please check your connection."
	if err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, err)
	}
	return &APIError{Type: ErrorNetwork, Message: msg}
}
