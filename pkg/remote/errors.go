package remote

import (
	"errors"
	"fmt"
)

// ErrNoURL is returned when the client has no server address.
var ErrNoURL = errors.New("remote: server URL required")

// APIError represents an error response from the analysis server.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the server.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("remote: API error %d: %s", e.StatusCode, e.Message)
}

// IsBadRequest returns true if the server rejected the payload (HTTP 400).
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == 400
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request may succeed on a later attempt.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.IsServerError()
}
