package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore is a map-backed Store used when no durable backend is
// available, and in tests. Same contract as BoltStore minus durability,
// so its Stats always report Degraded.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for ticker, if present.
func (s *MemoryStore) Get(ticker string) (Entry, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[ticker]
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return e, ok, nil
}

// Put upserts the entry for ticker, clamping LastRefreshed so it never
// moves backward.
func (s *MemoryStore) Put(ticker string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[ticker]; ok && e.LastRefreshed.Before(prev.LastRefreshed) {
		e.LastRefreshed = prev.LastRefreshed
	}
	s.entries[ticker] = e
	return nil
}

// Purge removes entries whose LastRefreshed is older than olderThan.
func (s *MemoryStore) Purge(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.entries {
		if e.LastRefreshed.Before(cutoff) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Stats reports entry and hit counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()

	return Stats{
		Entries:  n,
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Degraded: true,
	}
}

// Close is a no-op; there is nothing to flush.
func (s *MemoryStore) Close() error {
	return nil
}
