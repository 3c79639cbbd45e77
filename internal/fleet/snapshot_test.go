// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package fleet_test

import (
	"testing"

	"github.com/gatewayforge/fleetwatch/internal/fleet"
	"github.com/stretchr/testify/assert"
)

func TestCriticalAlerts(t *testing.T) {
	s := &fleet.StatusSnapshot{ActiveAlerts: []fleet.Alert{
		{Severity: fleet.SeverityInfo, Message: "rolling upgrade in progress"},
		{Severity: fleet.SeverityCritical, Message: "pair 12 lost both instances"},
		{Severity: fleet.SeverityWarning, Message: "disk pressure on node 3"},
		{Severity: fleet.SeverityCritical, Message: "provider API unreachable"},
	}}

	critical := s.CriticalAlerts()
	assert.Len(t, critical, 2)
	for _, a := range critical {
		assert.Equal(t, fleet.SeverityCritical, a.Severity)
	}
}

func TestCriticalAlertsEmpty(t *testing.T) {
	s := &fleet.StatusSnapshot{}
	assert.Empty(t, s.CriticalAlerts())

	s.ActiveAlerts = []fleet.Alert{{Severity: fleet.SeverityWarning, Message: "noise"}}
	assert.Empty(t, s.CriticalAlerts())
}

func TestUnhealthy(t *testing.T) {
	tests := []struct {
		name     string
		degraded int
		failed   int
		want     bool
	}{
		{"all clear", 0, 0, false},
		{"degraded only", 1, 0, true},
		{"failed only", 0, 1, true},
		{"both", 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fleet.StatusSnapshot{DegradedInstances: tt.degraded, FailedInstances: tt.failed}
			assert.Equal(t, tt.want, s.Unhealthy())
		})
	}
}
