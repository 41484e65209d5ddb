package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// windowState is the persisted form of one provider's current window.
type windowState struct {
	Calls       int       `json:"calls"`
	WindowStart time.Time `json:"window_start"`
}

// LoadState restores window usage persisted by a previous run, so a
// sequence of short-lived processes shares one budget instead of each
// starting with a full one. A missing file is a fresh start, not an
// error. Only providers with a configured budget are restored; a window
// that has elapsed in the meantime resets on the next TryAcquire.
func (l *Limiter) LoadState(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read budget state %s: %w", path, err)
	}

	var states map[string]windowState
	if err := json.Unmarshal(raw, &states); err != nil {
		return fmt.Errorf("parse budget state %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.budgets {
		st, ok := states[string(id)]
		if !ok {
			continue
		}
		b.calls = st.Calls
		b.windowStart = st.WindowStart
	}
	return nil
}

// SaveState persists current window usage for LoadState in a later run.
func (l *Limiter) SaveState(path string) error {
	l.mu.Lock()
	states := make(map[string]windowState, len(l.budgets))
	for id, b := range l.budgets {
		states[string(id)] = windowState{Calls: b.calls, WindowStart: b.windowStart}
	}
	l.mu.Unlock()

	buf, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("encode budget state: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("write budget state %s: %w", path, err)
	}
	return nil
}
