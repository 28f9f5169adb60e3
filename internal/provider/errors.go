package provider

import (
	"errors"
	"fmt"
)

// Error codes attached to ProviderError
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
)

var (
	ErrNotFound       = errors.New("data not found")
	ErrCircuitOpen    = errors.New("circuit breaker open")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrUnauthorized   = errors.New("authentication failed")
	ErrInvalidPayload = errors.New("invalid data format")
)

// ProviderError describes a failed provider call
type ProviderError struct {
	Endpoint string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Endpoint, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Endpoint, e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func newProviderError(endpoint, code, message string, err error) *ProviderError {
	return &ProviderError{Endpoint: endpoint, Code: code, Message: message, Err: err}
}
