package provider

import (
	"resty.dev/v3"
)

// NewHTTPClient creates the HTTP client the provider adapters share. No
// retry policy is attached: a failed call advances the provider chain
// instead of being retried in place, so one symbol never consumes more
// than one unit of a provider's budget per cycle.
func NewHTTPClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
}
