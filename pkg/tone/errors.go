package tone

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoCredentials is returned when username or password is missing.
	ErrNoCredentials = errors.New("tone: credentials required")

	// ErrEmptyText is returned when asked to analyze empty text.
	ErrEmptyText = errors.New("tone: empty text")

	// ErrNoCategories is returned when a response carries no tone category.
	ErrNoCategories = errors.New("tone: response has no tone categories")
)

// APIError represents an error response from the tone API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Provider   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tone [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tone [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable returns true for rate limits and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tone [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
