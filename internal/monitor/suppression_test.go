// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor_test

import (
	"testing"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/monitor"
	"github.com/stretchr/testify/assert"
)

func TestLedgerStartsEmpty(t *testing.T) {
	l := monitor.NewLedger()
	assert.False(t, l.Suppressed("any"))
	assert.Equal(t, 0, l.Len())
}

func TestLedgerSuppressAndExpiry(t *testing.T) {
	now := time.Now()
	l := monitor.NewLedger()
	l.SetNowFunc(func() time.Time { return now })

	until := l.Suppress("hetzner", 30*time.Minute)
	assert.Equal(t, now.Add(30*time.Minute), until)
	assert.True(t, l.Suppressed("hetzner"))
	assert.False(t, l.Suppressed("vultr"))

	tests := []struct {
		name     string
		elapsed  time.Duration
		wantHeld bool
	}{
		{"just before expiry", 29 * time.Minute, true},
		{"at exact expiry", 30 * time.Minute, false},
		{"after expiry", 31 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l.SetNowFunc(func() time.Time { return now.Add(tt.elapsed) })
			assert.Equal(t, tt.wantHeld, l.Suppressed("hetzner"))
		})
	}
}

func TestLedgerClearRemovesEntry(t *testing.T) {
	now := time.Now()
	l := monitor.NewLedger()
	l.SetNowFunc(func() time.Time { return now })

	l.Suppress("vultr", time.Hour)
	assert.Equal(t, 1, l.Len())

	l.Clear("vultr")
	assert.False(t, l.Suppressed("vultr"))
	assert.Equal(t, 0, l.Len())

	// Clearing an absent key is a no-op.
	l.Clear("vultr")
	assert.Equal(t, 0, l.Len())
}

func TestLedgerSuppressRefreshesExpiry(t *testing.T) {
	now := time.Now()
	l := monitor.NewLedger()
	l.SetNowFunc(func() time.Time { return now })

	l.Suppress("k", 10*time.Minute)

	later := now.Add(9 * time.Minute)
	l.SetNowFunc(func() time.Time { return later })
	l.Suppress("k", 10*time.Minute)

	// The refreshed entry outlives the original expiry.
	l.SetNowFunc(func() time.Time { return now.Add(15 * time.Minute) })
	assert.True(t, l.Suppressed("k"))
}
