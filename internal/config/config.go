package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stockdigest/internal/provider"
)

// SymbolConfig holds one symbol of the tracked universe.
type SymbolConfig struct {
	Ticker string `mapstructure:"ticker"`
	Sector string `mapstructure:"sector"`
}

// Config holds all configuration for the stockdigest application.
type Config struct {
	// Cache behaviour
	TTLHours         float64 `mapstructure:"ttl_hours"`
	StaleMaxAgeHours float64 `mapstructure:"stale_max_age_hours"`
	CachePath        string  `mapstructure:"cache_path"`

	// Fetch behaviour
	MaxParallelFetches  int      `mapstructure:"max_parallel_fetches"`
	FetchTimeoutSeconds int      `mapstructure:"fetch_timeout_seconds"`
	ProviderPriority    []string `mapstructure:"provider_priority"`

	// Yahoo Finance endpoint and budget
	YahooBaseURL       string `mapstructure:"yahoo_base_url"`
	YahooRateCeiling   int    `mapstructure:"yahoo_rate_ceiling"`
	YahooWindowSeconds int    `mapstructure:"yahoo_window_seconds"`

	// AlphaVantage endpoint, credential and budget
	AlphavantageAPIKey        string `mapstructure:"alphavantage_api_key"`
	AlphavantageBaseURL       string `mapstructure:"alphavantage_base_url"`
	AlphavantageRateCeiling   int    `mapstructure:"alphavantage_rate_ceiling"`
	AlphavantageWindowSeconds int    `mapstructure:"alphavantage_window_seconds"`

	// Symbols to track (config file only; the -symbols flag overrides)
	Symbols []SymbolConfig `mapstructure:"symbols"`
}

// TTL is the freshness horizon for cached entries.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.TTLHours * float64(time.Hour))
}

// StaleMaxAge is the ceiling for serving expired entries; zero means
// stale entries stay servable indefinitely.
func (c *Config) StaleMaxAge() time.Duration {
	return time.Duration(c.StaleMaxAgeHours * float64(time.Hour))
}

// FetchTimeout bounds a single provider call.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// Chain returns the provider priority as parsed IDs. Load has already
// validated every element, so unknown names cannot appear here.
func (c *Config) Chain() []provider.ID {
	ids := make([]provider.ID, 0, len(c.ProviderPriority))
	for _, name := range c.ProviderPriority {
		id, err := provider.ParseID(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables (all optional, defaults shown below):
//   - TTL_HOURS
//   - STALE_MAX_AGE_HOURS
//   - CACHE_PATH
//   - MAX_PARALLEL_FETCHES
//   - FETCH_TIMEOUT_SECONDS
//   - PROVIDER_PRIORITY (comma separated)
//   - YAHOO_BASE_URL
//   - YAHOO_RATE_CEILING
//   - YAHOO_WINDOW_SECONDS
//   - ALPHAVANTAGE_API_KEY (required when alphavantage is in the chain)
//   - ALPHAVANTAGE_BASE_URL
//   - ALPHAVANTAGE_RATE_CEILING
//   - ALPHAVANTAGE_WINDOW_SECONDS
func Load() (*Config, error) {
	v := viper.New()

	// Set up environment variable support
	v.SetEnvPrefix("") // No prefix, use full names
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ttl_hours", 24.0)
	v.SetDefault("stale_max_age_hours", 0.0)
	v.SetDefault("cache_path", "cache/stockdigest.db")
	v.SetDefault("max_parallel_fetches", 4)
	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("provider_priority", []string{"yahoo", "alphavantage"})
	v.SetDefault("yahoo_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo_rate_ceiling", 100)
	v.SetDefault("yahoo_window_seconds", 3600)
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("alphavantage_rate_ceiling", 25)
	v.SetDefault("alphavantage_window_seconds", 86400)
	v.SetDefault("symbols", defaultUniverse())

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.stockdigest")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	// Bind environment variables
	v.BindEnv("ttl_hours", "TTL_HOURS")
	v.BindEnv("stale_max_age_hours", "STALE_MAX_AGE_HOURS")
	v.BindEnv("cache_path", "CACHE_PATH")
	v.BindEnv("max_parallel_fetches", "MAX_PARALLEL_FETCHES")
	v.BindEnv("fetch_timeout_seconds", "FETCH_TIMEOUT_SECONDS")
	v.BindEnv("provider_priority", "PROVIDER_PRIORITY")
	v.BindEnv("yahoo_base_url", "YAHOO_BASE_URL")
	v.BindEnv("yahoo_rate_ceiling", "YAHOO_RATE_CEILING")
	v.BindEnv("yahoo_window_seconds", "YAHOO_WINDOW_SECONDS")
	v.BindEnv("alphavantage_api_key", "ALPHAVANTAGE_API_KEY")
	v.BindEnv("alphavantage_base_url", "ALPHAVANTAGE_BASE_URL")
	v.BindEnv("alphavantage_rate_ceiling", "ALPHAVANTAGE_RATE_CEILING")
	v.BindEnv("alphavantage_window_seconds", "ALPHAVANTAGE_WINDOW_SECONDS")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

func validate(c *Config) error {
	var problems []string

	if c.TTLHours <= 0 {
		problems = append(problems, "ttl_hours must be positive")
	}
	if c.StaleMaxAgeHours < 0 {
		problems = append(problems, "stale_max_age_hours must not be negative")
	}
	if c.CachePath == "" {
		problems = append(problems, "cache_path must not be empty")
	}
	if c.MaxParallelFetches < 1 {
		problems = append(problems, "max_parallel_fetches must be at least 1")
	}
	if c.FetchTimeoutSeconds < 1 {
		problems = append(problems, "fetch_timeout_seconds must be at least 1")
	}

	if len(c.ProviderPriority) == 0 {
		problems = append(problems, "provider_priority must not be empty")
	}
	seen := make(map[string]bool, len(c.ProviderPriority))
	for _, name := range c.ProviderPriority {
		if _, err := provider.ParseID(name); err != nil {
			problems = append(problems, fmt.Sprintf("unknown provider %q in provider_priority", name))
			continue
		}
		if seen[name] {
			problems = append(problems, fmt.Sprintf("duplicate provider %q in provider_priority", name))
		}
		seen[name] = true
	}

	if seen[string(provider.AlphaVantage)] && c.AlphavantageAPIKey == "" {
		problems = append(problems, "ALPHAVANTAGE_API_KEY is required when alphavantage is in provider_priority")
	}

	if c.YahooRateCeiling > 0 && c.YahooWindowSeconds < 1 {
		problems = append(problems, "yahoo_window_seconds must be at least 1 when a ceiling is set")
	}
	if c.AlphavantageRateCeiling > 0 && c.AlphavantageWindowSeconds < 1 {
		problems = append(problems, "alphavantage_window_seconds must be at least 1 when a ceiling is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func defaultUniverse() []map[string]string {
	return []map[string]string{
		{"ticker": "AAPL", "sector": "Technology"},
		{"ticker": "MSFT", "sector": "Technology"},
		{"ticker": "GOOGL", "sector": "Technology"},
		{"ticker": "AMZN", "sector": "Consumer Cyclical"},
		{"ticker": "TSLA", "sector": "Consumer Cyclical"},
		{"ticker": "NFLX", "sector": "Communication Services"},
	}
}
