package coordinator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"stockdigest/internal/cache"
	"stockdigest/internal/marketdata"
	"stockdigest/internal/provider"
	"stockdigest/internal/ratelimit"
)

// Options tune how the coordinator resolves a symbol. Zero values mean
// no stale-age limit and no per-call timeout.
type Options struct {
	TTL          time.Duration
	StaleMaxAge  time.Duration
	FetchTimeout time.Duration
	ForceRefresh bool
}

// Coordinator resolves one symbol at a time through the cache and the
// provider chain. Resolution always produces an outcome: a fresh cached
// record, a refreshed record written back to the store, a stale cached
// record when every provider fails, or a synthesized record when there
// is nothing to serve at all.
type Coordinator struct {
	store   cache.Store
	limiter *ratelimit.Limiter
	chain   []provider.Provider
	opts    Options
	logger  *slog.Logger
	group   singleflight.Group
}

// New creates a Coordinator over the given store, limiter and provider
// chain. Chain order is fixed: providers are tried in slice order.
func New(store cache.Store, limiter *ratelimit.Limiter, chain []provider.Provider, opts Options, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		limiter: limiter,
		chain:   chain,
		opts:    opts,
		logger:  logger,
	}
}

// Fetch resolves a symbol to an outcome. Concurrent calls for the same
// ticker collapse into a single resolution; every caller receives the
// shared result, so at most one provider request per ticker is in
// flight at any moment.
func (c *Coordinator) Fetch(ctx context.Context, sym marketdata.Symbol) marketdata.Outcome {
	v, _, _ := c.group.Do(sym.Ticker, func() (any, error) {
		return c.resolve(ctx, sym), nil
	})
	return v.(marketdata.Outcome)
}

func (c *Coordinator) resolve(ctx context.Context, sym marketdata.Symbol) marketdata.Outcome {
	now := time.Now().UTC()

	entry, cached, err := c.store.Get(sym.Ticker)
	if err != nil {
		c.logger.Warn("cache read failed, continuing without cached entry",
			"symbol", sym.Ticker, "error", err)
	}

	if cached && !c.opts.ForceRefresh && entry.Fresh(now, c.opts.TTL) {
		return marketdata.Outcome{
			Record: entry.Record,
			Class:  marketdata.ClassFreshCache,
		}
	}

	attempts := make([]marketdata.Attempt, 0, len(c.chain))

	for _, p := range c.chain {
		if ctx.Err() != nil {
			break
		}

		id := p.ID()

		if !c.limiter.TryAcquire(id) {
			c.logger.Debug("rate budget exhausted, advancing chain",
				"provider", id, "symbol", sym.Ticker)
			attempts = append(attempts, marketdata.Attempt{Provider: string(id), Denied: true})
			continue
		}

		rec, err := c.fetchFrom(ctx, p, sym.Ticker)
		if err != nil {
			kind := marketdata.Classify(err)
			c.logger.Warn("provider fetch failed",
				"provider", id, "symbol", sym.Ticker, "kind", kind, "error", err)
			attempts = append(attempts, marketdata.Attempt{Provider: string(id), Kind: kind})
			continue
		}

		if rec.Sector == "" {
			rec.Sector = sectorOf(sym)
		}

		if err := c.store.Put(sym.Ticker, cache.Entry{Record: rec, LastRefreshed: now}); err != nil {
			c.logger.Warn("cache write failed, serving record uncached",
				"symbol", sym.Ticker, "error", err)
		}

		return marketdata.Outcome{
			Record:   rec,
			Class:    marketdata.ClassRefreshed,
			Attempts: attempts,
		}
	}

	if cached && c.staleServable(entry, now) {
		c.logger.Info("all providers exhausted, serving stale cache",
			"symbol", sym.Ticker, "last_refreshed", entry.LastRefreshed)
		return marketdata.Outcome{
			Record:   entry.Record,
			Class:    marketdata.ClassStaleCache,
			Attempts: attempts,
		}
	}

	c.logger.Info("all providers exhausted, synthesizing fallback record",
		"symbol", sym.Ticker)
	return marketdata.Outcome{
		Record:   marketdata.Synthesize(sym.Ticker, sectorOf(sym), now),
		Class:    marketdata.ClassSyntheticFallback,
		Kind:     marketdata.KindAllExhausted,
		Attempts: attempts,
	}
}

// fetchFrom performs a single provider call bounded by the per-call
// timeout. A timeout surfaces as a transient failure and the chain
// advances.
func (c *Coordinator) fetchFrom(ctx context.Context, p provider.Provider, ticker string) (marketdata.Record, error) {
	if c.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
	}
	return p.Fetch(ctx, ticker)
}

// staleServable reports whether an expired entry may still be served.
// A zero StaleMaxAge keeps stale entries servable indefinitely.
func (c *Coordinator) staleServable(e cache.Entry, now time.Time) bool {
	if c.opts.StaleMaxAge <= 0 {
		return true
	}
	return now.Sub(e.LastRefreshed) < c.opts.StaleMaxAge
}

func sectorOf(sym marketdata.Symbol) string {
	if sym.Sector != "" {
		return sym.Sector
	}
	return marketdata.SectorFor(sym.Ticker)
}
