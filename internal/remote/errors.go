package remote

import (
	stderrors "errors"
	"fmt"
	"net/http"

	apperrors "github.com/Kamar-Folarin/propsync/internal/errors"
)

// APIError is a non-2xx response from the remote API
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote API error %d", e.StatusCode)
}

// Retryable reports whether the same request may succeed later
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, message string, body []byte) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
	}
}

// AsAPIError extracts an APIError from err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// classify wraps an API error as transient, unauthorized or terminal.
// Rejected credentials are kept apart from terminal errors: the payload may
// be fine once the token is rotated.
func classify(apiErr *APIError) error {
	if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
		return apperrors.NewUnauthorizedError("remote API rejected credentials", apiErr)
	}
	if apiErr.Retryable() {
		return apperrors.NewTransientError("remote request failed", apiErr)
	}
	return apperrors.NewTerminalError("remote request rejected", apiErr)
}
