package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stockdigest/internal/marketdata"
)

// Resolver resolves a single symbol to an outcome.
type Resolver interface {
	Fetch(ctx context.Context, sym marketdata.Symbol) marketdata.Outcome
}

// ProviderStats counts chain activity for one provider across a cycle
type ProviderStats struct {
	Attempts  int
	Successes int
}

// Stats summarizes one batch cycle
type Stats struct {
	Symbols     int
	FreshCache  int
	Refreshed   int
	StaleCache  int
	Synthetic   int
	RateLimited int
	Failures    map[marketdata.Kind]int
	Providers   map[string]ProviderStats
	Duration    time.Duration
}

func newStats() Stats {
	return Stats{
		Failures:  make(map[marketdata.Kind]int),
		Providers: make(map[string]ProviderStats),
	}
}

func (s *Stats) observe(out marketdata.Outcome) {
	s.Symbols++

	switch out.Class {
	case marketdata.ClassFreshCache:
		s.FreshCache++
	case marketdata.ClassRefreshed:
		s.Refreshed++
		ps := s.Providers[out.Record.Provenance]
		ps.Attempts++
		ps.Successes++
		s.Providers[out.Record.Provenance] = ps
	case marketdata.ClassStaleCache:
		s.StaleCache++
	case marketdata.ClassSyntheticFallback:
		s.Synthetic++
	}

	for _, a := range out.Attempts {
		if a.Denied {
			s.RateLimited++
			continue
		}
		s.Failures[a.Kind]++
		ps := s.Providers[a.Provider]
		ps.Attempts++
		s.Providers[a.Provider] = ps
	}
}

// Orchestrator runs one fetch cycle over a symbol universe. Symbols are
// resolved concurrently through a bounded worker pool so a large
// universe cannot stampede the providers.
type Orchestrator struct {
	resolver Resolver
	workers  int
	logger   *slog.Logger
}

// New creates an Orchestrator. workers caps how many symbols are
// resolved in parallel; values below one run a single worker.
func New(resolver Resolver, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		resolver: resolver,
		workers:  workers,
		logger:   logger,
	}
}

type result struct {
	ticker  string
	outcome marketdata.Outcome
}

// Run resolves every symbol and returns a total mapping: each input
// ticker has exactly one outcome, whatever happened on the way.
// Duplicate tickers collapse to a single resolution.
func (o *Orchestrator) Run(ctx context.Context, symbols []marketdata.Symbol) (map[string]marketdata.Outcome, Stats) {
	start := time.Now()
	symbols = dedupe(symbols)

	jobs := make(chan marketdata.Symbol, len(symbols))
	results := make(chan result, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				results <- result{
					ticker:  sym.Ticker,
					outcome: o.resolver.Fetch(ctx, sym),
				}
			}
		}()
	}

	for _, sym := range symbols {
		jobs <- sym
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make(map[string]marketdata.Outcome, len(symbols))
	stats := newStats()

	for r := range results {
		outcomes[r.ticker] = r.outcome
		stats.observe(r.outcome)
		o.logger.Debug("symbol resolved",
			"symbol", r.ticker, "class", r.outcome.Class, "price", r.outcome.Record.Price)
	}

	stats.Duration = time.Since(start)

	o.logger.Info("cycle complete",
		"symbols", stats.Symbols,
		"fresh_cache", stats.FreshCache,
		"refreshed", stats.Refreshed,
		"stale_cache", stats.StaleCache,
		"synthetic", stats.Synthetic,
		"rate_limited", stats.RateLimited,
		"duration", stats.Duration)

	return outcomes, stats
}

func dedupe(symbols []marketdata.Symbol) []marketdata.Symbol {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]marketdata.Symbol, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s.Ticker]; ok {
			continue
		}
		seen[s.Ticker] = struct{}{}
		out = append(out, s)
	}
	return out
}
