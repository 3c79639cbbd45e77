// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor

import (
	"sync"
	"time"
)

// aggregateKey is the fixed key for fleet-wide degraded-instance alerts.
const aggregateKey = "fleet.instance_health"

// Ledger is a keyed store of suppression expiry timestamps.
//
// A key present with an expiry in the future blocks re-emission of that
// condition; a key absent or expired permits emission. Entries are removed
// outright when the underlying condition clears so a key that recovers and
// later re-degrades is not blocked by stale history.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	nowFunc func() time.Time // for testing
}

// NewLedger creates an empty suppression ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// Suppressed reports whether key has an unexpired entry.
func (l *Ledger) Suppressed(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.entries[key]
	if !ok {
		return false
	}
	return l.nowFunc().Before(until)
}

// Suppress sets or refreshes key's expiry to now plus window, returning the
// expiry so callers can advise consumers when to expect the next repeat.
func (l *Ledger) Suppress(key string, window time.Duration) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	until := l.nowFunc().Add(window)
	l.entries[key] = until
	return until
}

// Clear deletes key's entry regardless of expiry. Called when the
// underlying condition clears.
func (l *Ledger) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Len returns the number of entries, expired ones included.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SetNowFunc overrides the time source (for testing).
func (l *Ledger) SetNowFunc(fn func() time.Time) {
	l.mu.Lock()
	l.nowFunc = fn
	l.mu.Unlock()
}
