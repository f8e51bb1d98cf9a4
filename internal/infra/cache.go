package infra

import (
	"time"
)

// MemoKey identifies one memoized call: the operation name plus the full set of
// effective arguments (defaults applied). Args must be comparable, typically a
// small struct of strings, ints and bools.
type MemoKey struct {
	Op   string
	Args any
}

// memoEntry is a stored result together with the time it was computed
type memoEntry struct {
	storedAt time.Time
	value    any
}

// Memo caches operation results keyed by MemoKey with optional time-based refresh.
//
// Memo performs no locking. It is owned by a single client and must not be used
// from more than one goroutine at a time.
type Memo struct {
	entries map[MemoKey]memoEntry
	enabled bool
	refresh time.Duration // zero means entries never go stale
	now     func() time.Time
}

// MemoOption configures a Memo
type MemoOption func(*Memo)

// WithRefreshInterval makes entries older than d recompute on the next read
func WithRefreshInterval(d time.Duration) MemoOption {
	return func(m *Memo) {
		m.refresh = d
	}
}

// WithClock replaces the time source, for tests
func WithClock(now func() time.Time) MemoOption {
	return func(m *Memo) {
		m.now = now
	}
}

// NewMemo creates an empty memo. A disabled memo never stores anything.
func NewMemo(enabled bool, opts ...MemoOption) *Memo {
	m := &Memo{
		entries: make(map[MemoKey]memoEntry),
		enabled: enabled,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCompute returns the stored value for key, calling compute on a miss or when
// the stored value is older than the refresh interval. Failed computations are
// never stored. The hit result reports whether compute was skipped.
func (m *Memo) GetOrCompute(key MemoKey, compute func() (any, error)) (value any, hit bool, err error) {
	if !m.enabled {
		value, err = compute()
		return value, false, err
	}

	now := m.now()
	if entry, ok := m.entries[key]; ok {
		if m.refresh <= 0 || now.Sub(entry.storedAt) <= m.refresh {
			return entry.value, true, nil
		}
	}

	value, err = compute()
	if err != nil {
		return nil, false, err
	}
	m.entries[key] = memoEntry{storedAt: now, value: value}
	return value, false, nil
}

// SetEnabled turns memoization on or off. Existing entries are kept.
func (m *Memo) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// Enabled reports whether the memo stores results
func (m *Memo) Enabled() bool {
	return m.enabled
}

// SetRefreshInterval changes the staleness threshold; zero disables refresh
func (m *Memo) SetRefreshInterval(d time.Duration) {
	m.refresh = d
}

// Clear drops every entry for every operation
func (m *Memo) Clear() {
	clear(m.entries)
}

// Len returns the number of stored entries
func (m *Memo) Len() int {
	return len(m.entries)
}
