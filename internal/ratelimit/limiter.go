package ratelimit

import (
	"sync"
	"time"

	"stockdigest/internal/provider"
)

// Budget configures one provider's call allowance: Ceiling calls per
// Window. A Ceiling or Window of zero or less means unlimited.
type Budget struct {
	Ceiling int
	Window  time.Duration
}

// BudgetState is a read-only snapshot of one provider's current window.
type BudgetState struct {
	Calls       int
	Ceiling     int
	Remaining   int
	WindowStart time.Time
}

// Limiter tracks per-provider call budgets over fixed windows. TryAcquire
// is non-blocking: a denial routes the caller to the next provider in the
// chain, it never queues a wait. The Limiter is the sole owner of budget
// state.
type Limiter struct {
	mu      sync.Mutex
	budgets map[provider.ID]*budget
}

type budget struct {
	ceiling     int
	window      time.Duration
	calls       int
	windowStart time.Time
}

// New creates a Limiter from per-provider budgets. Providers absent from
// the map, or configured unlimited, are always granted.
func New(budgets map[provider.ID]Budget) *Limiter {
	l := &Limiter{budgets: make(map[provider.ID]*budget, len(budgets))}
	for id, b := range budgets {
		if b.Ceiling <= 0 || b.Window <= 0 {
			continue
		}
		l.budgets[id] = &budget{ceiling: b.Ceiling, window: b.Window}
	}
	return l
}

// TryAcquire consumes one call from the provider's current window and
// reports whether the call may proceed. Once the ceiling is reached every
// further acquisition is denied until the window has fully elapsed, at
// which point the counter resets.
func (l *Limiter) TryAcquire(id provider.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.budgets[id]
	if !ok {
		// No budget configured for this provider, allow the call
		return true
	}

	now := time.Now()
	if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
		b.windowStart = now
		b.calls = 0
	}

	if b.calls >= b.ceiling {
		return false
	}
	b.calls++
	return true
}

// Snapshot reports each provider's current window usage. A window that
// has already elapsed shows as unused.
func (l *Limiter) Snapshot() map[provider.ID]BudgetState {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	out := make(map[provider.ID]BudgetState, len(l.budgets))
	for id, b := range l.budgets {
		calls := b.calls
		if b.windowStart.IsZero() || now.Sub(b.windowStart) >= b.window {
			calls = 0
		}
		out[id] = BudgetState{
			Calls:       calls,
			Ceiling:     b.ceiling,
			Remaining:   b.ceiling - calls,
			WindowStart: b.windowStart,
		}
	}
	return out
}
