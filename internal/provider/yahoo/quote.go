package yahoo

import (
	"context"
	"fmt"
	"time"

	"resty.dev/v3"

	"stockdigest/internal/marketdata"
	"stockdigest/internal/provider"
)

// quoteResponse mirrors the Yahoo Finance v7 quote payload, limited to
// the fields the digest consumes.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol              string  `json:"symbol"`
			RegularMarketPrice  float64 `json:"regularMarketPrice"`
			RegularMarketChange float64 `json:"regularMarketChange"`
			RegularMarketVolume int64   `json:"regularMarketVolume"`
			RegularMarketTime   int64   `json:"regularMarketTime"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Quote fetches stock snapshots from the Yahoo Finance public quote API.
type Quote struct {
	client *resty.Client
}

// NewQuote creates the Yahoo quote provider against baseURL.
func NewQuote(baseURL string) *Quote {
	return &Quote{client: provider.NewHTTPClient(baseURL)}
}

// ID implements provider.Provider.
func (q *Quote) ID() provider.ID {
	return provider.Yahoo
}

// Fetch retrieves the current snapshot for ticker. An empty result set
// means Yahoo does not know the symbol.
func (q *Quote) Fetch(ctx context.Context, ticker string) (marketdata.Record, error) {
	var result quoteResponse

	resp, err := q.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbols": ticker,
			"fields":  "regularMarketPrice,regularMarketChange,regularMarketVolume",
		}).
		SetResult(&result).
		Get("/v7/finance/quote")

	if err != nil {
		return marketdata.Record{}, marketdata.NewTransient(string(provider.Yahoo),
			fmt.Errorf("failed to fetch quote for %s: %w", ticker, err))
	}

	if !resp.IsSuccess() {
		return marketdata.Record{}, marketdata.ClassifyStatus(string(provider.Yahoo), resp.StatusCode())
	}

	if len(result.QuoteResponse.Result) == 0 {
		return marketdata.Record{}, marketdata.NewNotFound(string(provider.Yahoo), ticker)
	}

	quote := result.QuoteResponse.Result[0]
	if quote.RegularMarketPrice == 0 {
		return marketdata.Record{}, marketdata.NewTransient(string(provider.Yahoo),
			fmt.Errorf("no price in response for %s", ticker))
	}

	observed := time.Now().UTC()
	if quote.RegularMarketTime > 0 {
		observed = time.Unix(quote.RegularMarketTime, 0).UTC()
	}

	return marketdata.Record{
		Symbol:     ticker,
		Price:      quote.RegularMarketPrice,
		Change:     quote.RegularMarketChange,
		Volume:     quote.RegularMarketVolume,
		ObservedAt: observed,
		Provenance: string(provider.Yahoo),
	}, nil
}
