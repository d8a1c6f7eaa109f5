package speech

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when the subscription key is missing.
	ErrNoAPIKey = errors.New("speech: API key required")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("speech: recognizer closed")

	// ErrQueueFull is returned when audio arrives faster than it is sent.
	ErrQueueFull = errors.New("speech: send queue full")
)

// APIError is a failed handshake or an error frame from the service.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("speech: API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("speech: %s", e.Message)
}

// IsUnauthorized returns true if the key was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
