package testutil

import (
	"context"

	"stockdigest/internal/marketdata"
	"stockdigest/internal/provider"
)

// MockProvider is a mock implementation of the Provider interface for testing
type MockProvider struct {
	IDValue   provider.ID
	FetchFunc func(ctx context.Context, ticker string) (marketdata.Record, error)
}

// ID implements the Provider interface
func (m *MockProvider) ID() provider.ID {
	if m.IDValue != "" {
		return m.IDValue
	}
	return "mock"
}

// Fetch implements the Provider interface
func (m *MockProvider) Fetch(ctx context.Context, ticker string) (marketdata.Record, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker)
	}
	return marketdata.Record{}, nil
}

// NewMockProvider creates a simple mock provider that returns the same
// record or error for every symbol
func NewMockProvider(id provider.ID, rec marketdata.Record, err error) provider.Provider {
	return &MockProvider{
		IDValue: id,
		FetchFunc: func(ctx context.Context, ticker string) (marketdata.Record, error) {
			return rec, err
		},
	}
}
