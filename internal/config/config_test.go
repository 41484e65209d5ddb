package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"stockdigest/internal/provider"
)

// knownEnvVars lists every variable Load reads, so tests can start from
// a clean environment.
var knownEnvVars = []string{
	"TTL_HOURS",
	"STALE_MAX_AGE_HOURS",
	"CACHE_PATH",
	"MAX_PARALLEL_FETCHES",
	"FETCH_TIMEOUT_SECONDS",
	"PROVIDER_PRIORITY",
	"YAHOO_BASE_URL",
	"YAHOO_RATE_CEILING",
	"YAHOO_WINDOW_SECONDS",
	"ALPHAVANTAGE_API_KEY",
	"ALPHAVANTAGE_BASE_URL",
	"ALPHAVANTAGE_RATE_CEILING",
	"ALPHAVANTAGE_WINDOW_SECONDS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range knownEnvVars {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALPHAVANTAGE_API_KEY", "test_key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.TTLHours != 24 {
		t.Errorf("TTLHours = %v, want 24", cfg.TTLHours)
	}
	if cfg.StaleMaxAgeHours != 0 {
		t.Errorf("StaleMaxAgeHours = %v, want 0", cfg.StaleMaxAgeHours)
	}
	if cfg.CachePath != "cache/stockdigest.db" {
		t.Errorf("CachePath = %q, want cache/stockdigest.db", cfg.CachePath)
	}
	if cfg.MaxParallelFetches != 4 {
		t.Errorf("MaxParallelFetches = %d, want 4", cfg.MaxParallelFetches)
	}
	if cfg.FetchTimeoutSeconds != 10 {
		t.Errorf("FetchTimeoutSeconds = %d, want 10", cfg.FetchTimeoutSeconds)
	}
	if cfg.YahooBaseURL != "https://query1.finance.yahoo.com" {
		t.Errorf("YahooBaseURL = %q, want production default", cfg.YahooBaseURL)
	}
	if cfg.AlphavantageBaseURL != "https://www.alphavantage.co/query" {
		t.Errorf("AlphavantageBaseURL = %q, want production default", cfg.AlphavantageBaseURL)
	}

	wantChain := []provider.ID{provider.Yahoo, provider.AlphaVantage}
	chain := cfg.Chain()
	if len(chain) != len(wantChain) {
		t.Fatalf("Chain() = %v, want %v", chain, wantChain)
	}
	for i := range wantChain {
		if chain[i] != wantChain[i] {
			t.Errorf("Chain()[%d] = %q, want %q", i, chain[i], wantChain[i])
		}
	}

	if len(cfg.Symbols) == 0 {
		t.Fatal("Symbols is empty, want default universe")
	}
	if cfg.Symbols[0].Ticker != "AAPL" || cfg.Symbols[0].Sector != "Technology" {
		t.Errorf("Symbols[0] = %+v, want AAPL/Technology", cfg.Symbols[0])
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)

	envVars := map[string]string{
		"TTL_HOURS":                   "6.5",
		"STALE_MAX_AGE_HOURS":         "72",
		"CACHE_PATH":                  "/tmp/test-digest.db",
		"MAX_PARALLEL_FETCHES":        "8",
		"FETCH_TIMEOUT_SECONDS":       "5",
		"PROVIDER_PRIORITY":           "alphavantage,yahoo",
		"YAHOO_BASE_URL":              "https://test.yahoo.example",
		"YAHOO_RATE_CEILING":          "10",
		"YAHOO_WINDOW_SECONDS":        "60",
		"ALPHAVANTAGE_API_KEY":        "test_alphavantage_key",
		"ALPHAVANTAGE_BASE_URL":       "https://test.alphavantage.example",
		"ALPHAVANTAGE_RATE_CEILING":   "3",
		"ALPHAVANTAGE_WINDOW_SECONDS": "120",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.TTLHours != 6.5 {
		t.Errorf("TTLHours = %v, want 6.5", cfg.TTLHours)
	}
	if cfg.StaleMaxAgeHours != 72 {
		t.Errorf("StaleMaxAgeHours = %v, want 72", cfg.StaleMaxAgeHours)
	}
	if cfg.CachePath != "/tmp/test-digest.db" {
		t.Errorf("CachePath = %q, want /tmp/test-digest.db", cfg.CachePath)
	}
	if cfg.MaxParallelFetches != 8 {
		t.Errorf("MaxParallelFetches = %d, want 8", cfg.MaxParallelFetches)
	}
	if cfg.FetchTimeoutSeconds != 5 {
		t.Errorf("FetchTimeoutSeconds = %d, want 5", cfg.FetchTimeoutSeconds)
	}
	if cfg.YahooBaseURL != "https://test.yahoo.example" {
		t.Errorf("YahooBaseURL = %q, want override", cfg.YahooBaseURL)
	}
	if cfg.YahooRateCeiling != 10 {
		t.Errorf("YahooRateCeiling = %d, want 10", cfg.YahooRateCeiling)
	}
	if cfg.AlphavantageAPIKey != "test_alphavantage_key" {
		t.Errorf("AlphavantageAPIKey = %q, want test_alphavantage_key", cfg.AlphavantageAPIKey)
	}

	wantChain := []provider.ID{provider.AlphaVantage, provider.Yahoo}
	chain := cfg.Chain()
	if len(chain) != 2 || chain[0] != wantChain[0] || chain[1] != wantChain[1] {
		t.Errorf("Chain() = %v, want %v", chain, wantChain)
	}
}

func TestLoad_YahooOnlyChainNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROVIDER_PRIORITY", "yahoo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	chain := cfg.Chain()
	if len(chain) != 1 || chain[0] != provider.Yahoo {
		t.Errorf("Chain() = %v, want [yahoo]", chain)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    map[string]string
		wantErrText string
	}{
		{
			name:        "missing alphavantage key",
			setupEnv:    map[string]string{},
			wantErrText: "ALPHAVANTAGE_API_KEY",
		},
		{
			name: "zero ttl",
			setupEnv: map[string]string{
				"ALPHAVANTAGE_API_KEY": "test",
				"TTL_HOURS":            "0",
			},
			wantErrText: "ttl_hours",
		},
		{
			name: "negative stale max age",
			setupEnv: map[string]string{
				"ALPHAVANTAGE_API_KEY": "test",
				"STALE_MAX_AGE_HOURS":  "-1",
			},
			wantErrText: "stale_max_age_hours",
		},
		{
			name: "zero workers",
			setupEnv: map[string]string{
				"ALPHAVANTAGE_API_KEY": "test",
				"MAX_PARALLEL_FETCHES": "0",
			},
			wantErrText: "max_parallel_fetches",
		},
		{
			name: "zero fetch timeout",
			setupEnv: map[string]string{
				"ALPHAVANTAGE_API_KEY":  "test",
				"FETCH_TIMEOUT_SECONDS": "0",
			},
			wantErrText: "fetch_timeout_seconds",
		},
		{
			name: "unknown provider",
			setupEnv: map[string]string{
				"PROVIDER_PRIORITY": "yahoo,bloomberg",
			},
			wantErrText: "unknown provider",
		},
		{
			name: "duplicate provider",
			setupEnv: map[string]string{
				"PROVIDER_PRIORITY": "yahoo,yahoo",
			},
			wantErrText: "duplicate provider",
		},
		{
			name: "blank provider names",
			setupEnv: map[string]string{
				"PROVIDER_PRIORITY": ",",
			},
			wantErrText: "unknown provider",
		},
		{
			name: "zero yahoo window with ceiling",
			setupEnv: map[string]string{
				"ALPHAVANTAGE_API_KEY": "test",
				"YAHOO_WINDOW_SECONDS": "0",
			},
			wantErrText: "yahoo_window_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.setupEnv {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErrText) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrText)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		TTLHours:            24,
		StaleMaxAgeHours:    0.5,
		FetchTimeoutSeconds: 10,
	}

	if got := cfg.TTL(); got != 24*time.Hour {
		t.Errorf("TTL() = %v, want 24h", got)
	}
	if got := cfg.StaleMaxAge(); got != 30*time.Minute {
		t.Errorf("StaleMaxAge() = %v, want 30m", got)
	}
	if got := cfg.FetchTimeout(); got != 10*time.Second {
		t.Errorf("FetchTimeout() = %v, want 10s", got)
	}

	zero := &Config{}
	if got := zero.StaleMaxAge(); got != 0 {
		t.Errorf("StaleMaxAge() = %v, want 0", got)
	}
}

func TestConfig_ChainPreservesOrder(t *testing.T) {
	cfg := &Config{ProviderPriority: []string{"alphavantage", "yahoo"}}

	chain := cfg.Chain()
	if len(chain) != 2 {
		t.Fatalf("Chain() returned %d elements, want 2", len(chain))
	}
	if chain[0] != provider.AlphaVantage || chain[1] != provider.Yahoo {
		t.Errorf("Chain() = %v, want [alphavantage yahoo]", chain)
	}
}
