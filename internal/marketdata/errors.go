package marketdata

import (
	"errors"
	"fmt"
)

// Kind classifies a failure in the fetch path
type Kind string

const (
	// KindNotFound indicates the symbol is unknown to a provider; the
	// chain advances and that provider is not retried for the symbol
	// within the cycle
	KindNotFound Kind = "not_found"
	// KindTransient indicates a retriable failure (timeout, network, 5xx);
	// retry happens by chain advance, not by a local retry loop
	KindTransient Kind = "transient"
	// KindQuotaExceeded indicates provider-reported throttling, handled
	// the same way as a local rate-limiter denial
	KindQuotaExceeded Kind = "quota_exceeded"
	// KindStoreUnavailable indicates a cache read or write failure; the
	// cycle continues in memory
	KindStoreUnavailable Kind = "store_unavailable"
	// KindAllExhausted indicates every provider in the chain was denied
	// or failed; terminal for one symbol only, resolved by synthetic
	// fallback
	KindAllExhausted Kind = "all_providers_exhausted"
)

// FetchError is a structured error from a provider fetch operation
type FetchError struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNotFound creates a not_found error for a symbol unknown to the provider
func NewNotFound(provider, ticker string) *FetchError {
	return &FetchError{
		Provider: provider,
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("symbol %s not found", ticker),
	}
}

// NewTransient creates a transient error from an underlying cause
func NewTransient(provider string, cause error) *FetchError {
	return &FetchError{
		Provider: provider,
		Kind:     KindTransient,
		Message:  "transient failure",
		Cause:    cause,
	}
}

// NewQuotaExceeded creates a quota_exceeded error; statusCode is zero when
// the provider signals throttling in-band rather than with HTTP 429
func NewQuotaExceeded(provider string, statusCode int) *FetchError {
	return &FetchError{
		Provider:   provider,
		Kind:       KindQuotaExceeded,
		StatusCode: statusCode,
		Message:    "provider quota exceeded",
	}
}

// ClassifyStatus maps a non-success HTTP status code into the failure taxonomy
func ClassifyStatus(provider string, statusCode int) *FetchError {
	switch {
	case statusCode == 429:
		return NewQuotaExceeded(provider, statusCode)
	case statusCode == 404:
		return &FetchError{
			Provider:   provider,
			Kind:       KindNotFound,
			StatusCode: statusCode,
			Message:    "symbol not found",
		}
	case statusCode >= 500:
		return &FetchError{
			Provider:   provider,
			Kind:       KindTransient,
			StatusCode: statusCode,
			Message:    "server returned an error",
		}
	default:
		return &FetchError{
			Provider:   provider,
			Kind:       KindTransient,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		}
	}
}

// Classify extracts the failure kind from an error. Errors that carry no
// kind, including context deadline errors from the per-call timeout,
// classify as transient.
func Classify(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}
