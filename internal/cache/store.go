package cache

import (
	"errors"
	"io"
	"time"

	"stockdigest/internal/marketdata"
)

// ErrUnavailable marks a store operation that could not reach the durable
// backend. The operation still took effect in memory, so for the rest of
// the cycle callers keep working; the entry just will not survive a
// restart.
var ErrUnavailable = errors.New("cache store unavailable")

// Entry is the stored form of one symbol's snapshot: the record plus the
// refresh timestamp freshness decisions are made against. The embedded
// record keeps the on-disk encoding a single flat JSON object per symbol.
type Entry struct {
	marketdata.Record
	LastRefreshed time.Time `json:"last_refreshed"`
}

// Fresh reports whether the entry is still within ttl as of asOf.
func (e Entry) Fresh(asOf time.Time, ttl time.Duration) bool {
	return asOf.Sub(e.LastRefreshed) < ttl
}

// Store is the durable symbol-keyed cache consulted before any provider
// call. Implementations are safe for concurrent use from many fetch
// paths; writes for the same symbol are serialized, and entries are only
// ever removed by an explicit Purge.
type Store interface {
	// Get returns the entry for ticker, if present. Lookup only: the
	// cache contents are never modified by a read.
	Get(ticker string) (Entry, bool, error)

	// Put upserts the entry for ticker. When Put returns nil the entry
	// is durable across a process restart. LastRefreshed never moves
	// backward for a symbol, whatever the write order.
	Put(ticker string, e Entry) error

	// Purge removes entries whose LastRefreshed is older than olderThan
	// and returns how many were removed. This is the only deletion path;
	// it is operator-initiated, never automatic.
	Purge(olderThan time.Duration) (int, error)

	// Stats reports the store's counters for the status report.
	Stats() Stats

	io.Closer
}

// Stats is the store's observability snapshot. Hits and Misses count Get
// results since the store was opened; Degraded is set once any operation
// has fallen back to memory-only mode.
type Stats struct {
	Entries  int
	Hits     int64
	Misses   int64
	Degraded bool
	Path     string
}
