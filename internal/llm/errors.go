package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// Provider errors. Callers match these with errors.Is.
var (
	// ErrNotConfigured indicates the client was built without credentials.
	// The feature backed by the client is disabled, not broken.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrProvider indicates a transport failure or 5xx from the provider.
	// Not retried here; the caller decides.
	ErrProvider = errors.New("provider request failed")

	// ErrRateLimited indicates provider backpressure (HTTP 429).
	// Retryable after backoff; no retry is performed at this layer.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrInvalidInput indicates the provider rejected the request payload,
	// typically an input exceeding the model's maximum size.
	ErrInvalidInput = errors.New("input rejected by provider")
)

// maxErrorBody caps how much of a provider error response lands in error messages.
const maxErrorBody = 512

// statusError maps a non-200 provider response to the error taxonomy.
func statusError(statusCode int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d: %s", ErrRateLimited, statusCode, string(body))
	case statusCode == http.StatusBadRequest || statusCode == http.StatusRequestEntityTooLarge ||
		statusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: status %d: %s", ErrInvalidInput, statusCode, string(body))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrProvider, statusCode, string(body))
	}
}
