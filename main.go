package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"stockdigest/internal/batch"
	"stockdigest/internal/cache"
	"stockdigest/internal/config"
	"stockdigest/internal/coordinator"
	"stockdigest/internal/marketdata"
	"stockdigest/internal/provider"
	"stockdigest/internal/provider/alphavantage"
	"stockdigest/internal/provider/yahoo"
	"stockdigest/internal/ratelimit"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "comma separated tickers overriding the configured universe")
	forceRefresh := flag.Bool("force-refresh", false, "refetch every symbol even when its cache entry is fresh")
	purgeOlderThan := flag.Duration("purge-older-than", 0, "delete cache entries not refreshed within this duration, then exit")
	statusFlag := flag.Bool("status", false, "print cache and budget status, then exit")
	flag.Parse()

	logger := newLogger()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open the persistent cache; a broken store degrades to memory
	store := cache.Open(cfg.CachePath, logger)
	defer store.Close()

	if *purgeOlderThan > 0 {
		n, err := store.Purge(*purgeOlderThan)
		if err != nil {
			log.Fatalf("Purge failed: %v", err)
		}
		fmt.Printf("Purged %d cache entries older than %s\n", n, *purgeOlderThan)
		return
	}

	// Budget usage is shared across runs through a sidecar file, so a
	// sequence of daily invocations cannot overrun a provider's window.
	limiter := ratelimit.New(budgetsFromConfig(cfg))
	budgetStatePath := filepath.Join(filepath.Dir(cfg.CachePath), "budget_state.json")
	if err := limiter.LoadState(budgetStatePath); err != nil {
		logger.Warn("budget state unreadable, starting with full budgets",
			"path", budgetStatePath, "error", err)
	}

	if *statusFlag {
		printStatus(cfg, store.Stats(), limiter.Snapshot())
		return
	}

	coord := coordinator.New(store, limiter, buildChain(cfg), coordinator.Options{
		TTL:          cfg.TTL(),
		StaleMaxAge:  cfg.StaleMaxAge(),
		FetchTimeout: cfg.FetchTimeout(),
		ForceRefresh: *forceRefresh,
	}, logger)

	orchestrator := batch.New(coord, cfg.MaxParallelFetches, logger)

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	fmt.Println("Fetching market data...")
	fmt.Println("================================================")

	outcomes, stats := orchestrator.Run(ctx, universe(cfg, *symbolsFlag))

	printReport(outcomes, stats)

	if st := store.Stats(); st.Degraded {
		logger.Warn("cache store is degraded, entries from this cycle may not persist",
			"path", st.Path)
	}

	if err := limiter.SaveState(budgetStatePath); err != nil {
		logger.Warn("budget state not saved, the next run starts with full budgets",
			"path", budgetStatePath, "error", err)
	}
}

// newLogger builds the process logger. Set DEBUG to any value to see
// chain traversal details.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildChain constructs provider adapters in configured priority order.
func buildChain(cfg *config.Config) []provider.Provider {
	var chain []provider.Provider
	for _, id := range cfg.Chain() {
		switch id {
		case provider.Yahoo:
			chain = append(chain, yahoo.NewQuote(cfg.YahooBaseURL))
		case provider.AlphaVantage:
			chain = append(chain, alphavantage.NewQuote(cfg.AlphavantageAPIKey, cfg.AlphavantageBaseURL))
		}
	}
	return chain
}

func budgetsFromConfig(cfg *config.Config) map[provider.ID]ratelimit.Budget {
	return map[provider.ID]ratelimit.Budget{
		provider.Yahoo: {
			Ceiling: cfg.YahooRateCeiling,
			Window:  time.Duration(cfg.YahooWindowSeconds) * time.Second,
		},
		provider.AlphaVantage: {
			Ceiling: cfg.AlphavantageRateCeiling,
			Window:  time.Duration(cfg.AlphavantageWindowSeconds) * time.Second,
		},
	}
}

// universe resolves the symbol list for this cycle. A -symbols override
// carries no sector information; the coordinator fills sectors in.
func universe(cfg *config.Config, override string) []marketdata.Symbol {
	if override != "" {
		var syms []marketdata.Symbol
		for _, raw := range strings.Split(override, ",") {
			ticker := strings.ToUpper(strings.TrimSpace(raw))
			if ticker == "" {
				continue
			}
			syms = append(syms, marketdata.Symbol{Ticker: ticker})
		}
		return syms
	}

	syms := make([]marketdata.Symbol, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		ticker := strings.ToUpper(strings.TrimSpace(s.Ticker))
		if ticker == "" {
			continue
		}
		syms = append(syms, marketdata.Symbol{Ticker: ticker, Sector: s.Sector})
	}
	return syms
}

func printReport(outcomes map[string]marketdata.Outcome, stats batch.Stats) {
	tickers := make([]string, 0, len(outcomes))
	for t := range outcomes {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, t := range tickers {
		out := outcomes[t]
		fmt.Printf("%s: $%.2f (%+.2f) [%s]\n", t, out.Record.Price, out.Record.Change, out.Class)
	}

	fmt.Println("================================================")
	fmt.Printf("Cycle complete in %s: %d symbols, %d fresh, %d refreshed, %d stale, %d synthetic\n",
		stats.Duration.Round(time.Millisecond), stats.Symbols,
		stats.FreshCache, stats.Refreshed, stats.StaleCache, stats.Synthetic)

	if stats.RateLimited > 0 {
		fmt.Printf("Rate limiter denials: %d\n", stats.RateLimited)
	}

	kinds := make([]string, 0, len(stats.Failures))
	for kind := range stats.Failures {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Printf("Failures (%s): %d\n", kind, stats.Failures[marketdata.Kind(kind)])
	}

	names := make([]string, 0, len(stats.Providers))
	for name := range stats.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ps := stats.Providers[name]
		fmt.Printf("Provider %s: %d attempts, %d successes\n", name, ps.Attempts, ps.Successes)
	}
}

func printStatus(cfg *config.Config, st cache.Stats, budgets map[provider.ID]ratelimit.BudgetState) {
	fmt.Printf("Cache store: %s\n", st.Path)
	fmt.Printf("  entries: %d\n", st.Entries)
	fmt.Printf("  hits: %d  misses: %d\n", st.Hits, st.Misses)
	if st.Degraded {
		fmt.Println("  mode: degraded (in-memory)")
	} else {
		fmt.Println("  mode: durable")
	}

	for _, id := range cfg.Chain() {
		b, ok := budgets[id]
		if !ok {
			fmt.Printf("Budget %s: unlimited\n", id)
			continue
		}
		fmt.Printf("Budget %s: %d/%d used in current window, %d remaining\n",
			id, b.Calls, b.Ceiling, b.Remaining)
	}
}
