package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer above the raw HTTP call. Provider
// adapters translate transport and body failures into exactly one of these
// classes; nothing above the Api layer ever sees a net/http error.
var (
	// ErrTransient covers timeouts, connection errors and 5xx responses.
	// The failover loop moves on to the next candidate provider.
	ErrTransient = errors.New("transient provider error")

	// ErrValidation means the response decoded but its shape or content
	// failed validation. Failover treats it like ErrTransient, but it is
	// surfaced separately in metrics: a sustained validation failure
	// usually means the provider changed its API, not an outage.
	ErrValidation = errors.New("response validation failed")

	// ErrRateLimited is a 429 or a provider-specific throttle signal.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrNoProviderAvailable is the terminal failure of one logical call
	// after every configured candidate was tried.
	ErrNoProviderAvailable = errors.New("no provider available")

	// ErrConfiguration indicates an operational misconfiguration (no
	// providers configured for a claimed operation, unknown symbol).
	// Fail fast; do not retry.
	ErrConfiguration = errors.New("explorer misconfigured")
)

// APIError carries the provider and operation a failure belongs to alongside
// its taxonomy class, so errors.Is against the sentinels above keeps working
// through any number of wrapping layers.
type APIError struct {
	Provider  string
	Network   Network
	Operation string
	Kind      error
	Err       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s %s: %v", e.Network, e.Provider, e.Operation, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewAPIError builds a classified provider failure.
func NewAPIError(network Network, providerName, operation string, kind, err error) *APIError {
	return &APIError{
		Provider:  providerName,
		Network:   network,
		Operation: operation,
		Kind:      kind,
		Err:       err,
	}
}

// ErrorClass names the taxonomy class of err for metric labels.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNoProviderAvailable):
		return "no_provider"
	default:
		return "transient"
	}
}
