package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable marks a transient network/provider outage. No
	// local state was written, the whole operation is safe to retry.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	// ErrCapabilityUnsupported means the configured driver lacks a required
	// method. Configuration error, fatal for the call.
	ErrCapabilityUnsupported = errors.New("gateway capability unsupported")

	// ErrUnknownDriver is returned by the registry for an unregistered name.
	ErrUnknownDriver = errors.New("unknown gateway driver")
)

// RejectedError is a provider-side decline (4xx-equivalent). Not retried
// automatically; Raw carries the provider payload for diagnostics.
type RejectedError struct {
	Provider string
	Message  string
	Raw      map[string]any
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway %s rejected request: %s", e.Provider, e.Message)
}

// Unavailable wraps a transport error as a retryable outage.
func Unavailable(provider string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrGatewayUnavailable, provider, err)
}

// IsRejected reports whether err is a provider decline and returns it.
func IsRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
