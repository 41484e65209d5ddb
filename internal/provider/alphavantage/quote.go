package alphavantage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"

	"stockdigest/internal/marketdata"
	"stockdigest/internal/provider"
)

// GlobalQuoteResponse represents the AlphaVantage API response for stock
// quotes. Note and Information are set instead of Global Quote when the
// API throttles a key; AlphaVantage reports that with a 200 status.
type GlobalQuoteResponse struct {
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// Quote fetches market snapshots from the AlphaVantage GLOBAL_QUOTE endpoint
type Quote struct {
	apiKey string
	client *resty.Client
}

// NewQuote creates an AlphaVantage quote adapter
func NewQuote(apiKey, baseURL string) *Quote {
	return &Quote{
		apiKey: apiKey,
		client: provider.NewHTTPClient(baseURL),
	}
}

// ID identifies this adapter in the provider chain
func (q *Quote) ID() provider.ID {
	return provider.AlphaVantage
}

// Fetch retrieves the current market snapshot for a single symbol
func (q *Quote) Fetch(ctx context.Context, ticker string) (marketdata.Record, error) {
	var result GlobalQuoteResponse

	resp, err := q.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":   q.apiKey,
			"function": "GLOBAL_QUOTE",
			"symbol":   ticker,
		}).
		SetResult(&result).
		Get("")

	if err != nil {
		return marketdata.Record{}, marketdata.NewTransient(string(provider.AlphaVantage),
			fmt.Errorf("failed to fetch quote for %s: %w", ticker, err))
	}

	if !resp.IsSuccess() {
		return marketdata.Record{}, marketdata.ClassifyStatus(string(provider.AlphaVantage), resp.StatusCode())
	}

	if result.Note != "" || result.Information != "" {
		return marketdata.Record{}, marketdata.NewQuotaExceeded(string(provider.AlphaVantage), 0)
	}

	if result.GlobalQuote.Price == "" {
		return marketdata.Record{}, marketdata.NewNotFound(string(provider.AlphaVantage), ticker)
	}

	price, err := strconv.ParseFloat(result.GlobalQuote.Price, 64)
	if err != nil {
		return marketdata.Record{}, marketdata.NewTransient(string(provider.AlphaVantage),
			fmt.Errorf("failed to parse price %q: %w", result.GlobalQuote.Price, err))
	}

	var change float64
	if result.GlobalQuote.Change != "" {
		change, err = strconv.ParseFloat(result.GlobalQuote.Change, 64)
		if err != nil {
			return marketdata.Record{}, marketdata.NewTransient(string(provider.AlphaVantage),
				fmt.Errorf("failed to parse change %q: %w", result.GlobalQuote.Change, err))
		}
	}

	var volume int64
	if result.GlobalQuote.Volume != "" {
		volume, err = strconv.ParseInt(result.GlobalQuote.Volume, 10, 64)
		if err != nil {
			return marketdata.Record{}, marketdata.NewTransient(string(provider.AlphaVantage),
				fmt.Errorf("failed to parse volume %q: %w", result.GlobalQuote.Volume, err))
		}
	}

	observed := time.Now().UTC()
	if result.GlobalQuote.LatestTradingDay != "" {
		if day, err := time.Parse("2006-01-02", result.GlobalQuote.LatestTradingDay); err == nil {
			observed = day
		}
	}

	return marketdata.Record{
		Symbol:     ticker,
		Price:      price,
		Change:     change,
		Volume:     volume,
		ObservedAt: observed,
		Provenance: string(provider.AlphaVantage),
	}, nil
}
