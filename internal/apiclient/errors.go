package apiclient

import (
	"errors"
	"fmt"
)

// FallbackErrorMessage is shown when the backend supplies no detail.
const FallbackErrorMessage = "API request failed"

var (
	// ErrNetworkFailure wraps transport failures.
	ErrNetworkFailure = errors.New("apiclient: network failure")
	// ErrMalformedResponse wraps a success response whose body is not valid JSON.
	ErrMalformedResponse = errors.New("apiclient: malformed response")
)

// APIError reports a non-2xx, non-401 response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (apiError *APIError) Error() string {
	if apiError.Detail == "" {
		return FallbackErrorMessage
	}
	return apiError.Detail
}

// UserMessage returns the text shown to the user for any request failure.
// API errors show the server detail; everything else collapses to a generic message.
func UserMessage(requestErr error) string {
	var apiError *APIError
	if errors.As(requestErr, &apiError) {
		return apiError.Error()
	}
	return FallbackErrorMessage
}

func newNetworkFailure(method string, path string, cause error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrNetworkFailure, method, path, cause)
}
