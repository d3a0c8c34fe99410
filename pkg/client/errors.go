package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// RequestError reports a Census API request that did not return HTTP 200.
type RequestError struct {
	StatusCode int
	URL        string
	ErrorClass ErrorClass
	// Body holds the start of the response body; the API explains rejected
	// queries there (e.g. "error: unknown variable").
	Body string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := fmt.Sprintf("request error: status %d: url %s", e.StatusCode, e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx and unexpected statuses are answers, not outages.
		return false
	}
}
