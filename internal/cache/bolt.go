package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// BoltStore is the bbolt-backed Store: one bucket, one flat JSON value
// per symbol. Commits are fsynced, so a nil Put means the entry survives
// a process restart. If the backend starts failing mid-run the store
// degrades to an in-memory overlay and the cycle keeps going.
type BoltStore struct {
	db     *bolt.DB
	path   string
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	// overlay holds entries that could not be written durably
	overlayMu sync.RWMutex
	overlay   map[string]Entry
	degraded  atomic.Bool
}

// Open returns a usable Store for path, whatever state the file is in. A
// corrupted or unopenable file is moved aside and recreated; if even that
// fails the returned Store is memory-only. Startup never fails because of
// cache state, it only starts colder.
func Open(path string, logger *slog.Logger) Store {
	s, err := OpenBolt(path, logger)
	if err == nil {
		return s
	}
	logger.Warn("cache store unusable, starting with an empty in-memory cache",
		"path", path, "error", err)
	return NewMemory()
}

// OpenBolt opens or creates the bbolt file at path, recreating it once if
// the existing file cannot be opened.
func OpenBolt(path string, logger *slog.Logger) (*BoltStore, error) {
	db, err := openDB(path)
	if err != nil {
		logger.Warn("cache file unreadable, recreating empty",
			"path", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil {
			return nil, fmt.Errorf("open cache %s: %w", path, err)
		}
		db, err = openDB(path)
		if err != nil {
			return nil, fmt.Errorf("recreate cache %s: %w", path, err)
		}
	}
	return &BoltStore{
		db:      db,
		path:    path,
		logger:  logger,
		overlay: make(map[string]Entry),
	}, nil
}

func openDB(path string) (*bolt.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, berr := tx.CreateBucketIfNotExists(bucketRecords)
		return berr
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Get returns the entry for ticker. Overlay entries win over the file:
// anything in the overlay is a newer write that could not reach disk.
func (s *BoltStore) Get(ticker string) (Entry, bool, error) {
	s.overlayMu.RLock()
	if e, ok := s.overlay[ticker]; ok {
		s.overlayMu.RUnlock()
		s.hits.Add(1)
		return e, true, nil
	}
	s.overlayMu.RUnlock()

	var e Entry
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(ticker))
		if raw == nil {
			return nil
		}
		if uerr := json.Unmarshal(raw, &e); uerr != nil {
			// An unreadable row reads as absent rather than poisoning
			// the fetch path; Purge removes such rows.
			s.logger.Warn("cache entry unreadable, treating as absent",
				"symbol", ticker, "error", uerr)
			return nil
		}
		found = true
		return nil
	})
	if err != nil {
		s.misses.Add(1)
		s.degraded.Store(true)
		return Entry{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if found {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return e, found, nil
}

// Put upserts the entry for ticker. bbolt serializes write transactions,
// which also serializes writes for the same symbol; LastRefreshed is
// clamped so it never moves backward. On a failed transaction the entry
// lands in the in-memory overlay and Put reports ErrUnavailable. A later
// durable write for the symbol supersedes its overlay entry, so reads go
// back to the file once the backend recovers.
func (s *BoltStore) Put(ticker string, e Entry) error {
	s.overlayMu.RLock()
	if prev, ok := s.overlay[ticker]; ok && e.LastRefreshed.Before(prev.LastRefreshed) {
		e.LastRefreshed = prev.LastRefreshed
	}
	s.overlayMu.RUnlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return bolt.ErrBucketNotFound
		}
		key := []byte(ticker)
		if raw := b.Get(key); raw != nil {
			var prev Entry
			if json.Unmarshal(raw, &prev) == nil && e.LastRefreshed.Before(prev.LastRefreshed) {
				e.LastRefreshed = prev.LastRefreshed
			}
		}
		buf, merr := json.Marshal(e)
		if merr != nil {
			return merr
		}
		return b.Put(key, buf)
	})
	if err == nil {
		// The symbol's latest completed write is on disk now; an overlay
		// entry left by an earlier failed Put must not shadow it.
		s.overlayMu.Lock()
		delete(s.overlay, ticker)
		s.overlayMu.Unlock()
		return nil
	}

	// Durable write failed: keep the entry in memory so the rest of the
	// cycle still sees it, and report the degradation to the caller.
	s.overlayMu.Lock()
	if prev, ok := s.overlay[ticker]; ok && e.LastRefreshed.Before(prev.LastRefreshed) {
		e.LastRefreshed = prev.LastRefreshed
	}
	s.overlay[ticker] = e
	s.overlayMu.Unlock()
	s.degraded.Store(true)
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// Purge removes entries whose LastRefreshed is older than olderThan.
// Rows that no longer unmarshal are removed as well.
func (s *BoltStore) Purge(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var e Entry
			if json.Unmarshal(v, &e) != nil || e.LastRefreshed.Before(cutoff) {
				if derr := c.Delete(); derr != nil {
					return derr
				}
				removed++
			}
		}
		return nil
	})

	s.overlayMu.Lock()
	for k, e := range s.overlay {
		if e.LastRefreshed.Before(cutoff) {
			delete(s.overlay, k)
			removed++
		}
	}
	s.overlayMu.Unlock()

	if err != nil {
		s.degraded.Store(true)
		return removed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return removed, nil
}

// Stats reports entry and hit counters. Overlay entries that shadow a
// stored symbol are not double counted.
func (s *BoltStore) Stats() Stats {
	s.overlayMu.RLock()
	overlay := make([]string, 0, len(s.overlay))
	for k := range s.overlay {
		overlay = append(overlay, k)
	}
	s.overlayMu.RUnlock()

	entries := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		if b == nil {
			return nil
		}
		entries = b.Stats().KeyN
		for _, k := range overlay {
			if b.Get([]byte(k)) == nil {
				entries++
			}
		}
		return nil
	})
	if err != nil {
		entries = len(overlay)
	}

	return Stats{
		Entries:  entries,
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Degraded: s.degraded.Load(),
		Path:     s.path,
	}
}

// Close flushes and closes the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
