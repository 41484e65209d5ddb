package provider

import (
	"context"
	"fmt"

	"stockdigest/internal/marketdata"
)

// ID identifies one of the supported market-data providers. The set is
// closed: configuration validation rejects anything outside it, and
// construction happens through an explicit switch rather than a name
// registry.
type ID string

const (
	// Yahoo is the primary quote source (public endpoint, no credential).
	Yahoo ID = "yahoo"
	// AlphaVantage is the secondary quote source (keyed free tier).
	AlphaVantage ID = "alphavantage"
)

// ParseID validates a configured provider name against the closed set.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case Yahoo, AlphaVantage:
		return ID(s), nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// Provider is the capability every market-data source implements: fetch
// one symbol's current snapshot, normalized to a marketdata.Record, or a
// typed failure. Providers are transport and normalization only; cache
// and rate-limit decisions belong to the coordinator.
type Provider interface {
	// ID returns the provider's tag in the closed provider set.
	ID() ID

	// Fetch retrieves the current snapshot for ticker. Failures are
	// *marketdata.FetchError values classified not_found, transient, or
	// quota_exceeded. Fetch makes exactly one request: there is no
	// internal retry, the caller advances the chain instead.
	Fetch(ctx context.Context, ticker string) (marketdata.Record, error)
}
