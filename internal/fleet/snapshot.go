// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

// Package fleet defines the aggregate fleet-status vocabulary shared by the
// monitor, the fleet-management API client, and downstream consumers.
package fleet

import "time"

// AlertSeverity classifies an active fleet alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is a single active alert carried inside a status snapshot.
type Alert struct {
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// ProviderSummary aggregates health for all instances on one VPS provider.
type ProviderSummary struct {
	Provider          string `json:"provider"`
	TotalInstances    int    `json:"total_instances"`
	ActiveInstances   int    `json:"active_instances"`
	DegradedInstances int    `json:"degraded_instances"`
	HealthScore       int    `json:"health_score"` // 0-100
}

// CostSummary compares actual monthly spend against the projection.
type CostSummary struct {
	MonthlyActualUSD    float64 `json:"monthly_actual_usd"`
	MonthlyProjectedUSD float64 `json:"monthly_projected_usd"`
	DeviationPct        float64 `json:"deviation_pct"` // signed; positive means over projection
}

// StatusSnapshot is one consistent read of aggregate fleet state.
//
// Snapshots are immutable once fetched: the sweep that fetched a snapshot
// owns it exclusively and nothing else may mutate it.
type StatusSnapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	CapturedAt time.Time `json:"captured_at"`

	TotalInstances         int `json:"total_instances"`
	ActivePairs            int `json:"active_pairs"`
	DegradedInstances      int `json:"degraded_instances"`
	FailedInstances        int `json:"failed_instances"`
	BootstrappingInstances int `json:"bootstrapping_instances"`

	AvgHealthScore float64 `json:"avg_health_score"`

	Cost       CostSummary                `json:"cost"`
	ByProvider map[string]ProviderSummary `json:"by_provider"`

	ActiveAlerts []Alert `json:"active_alerts"`
}

// CriticalAlerts returns the subset of active alerts at critical severity.
func (s *StatusSnapshot) CriticalAlerts() []Alert {
	var out []Alert
	for _, a := range s.ActiveAlerts {
		if a.Severity == SeverityCritical {
			out = append(out, a)
		}
	}
	return out
}

// Unhealthy reports whether the snapshot shows any degraded or failed
// instances. The recovery rule fires on the edge from unhealthy to healthy.
func (s *StatusSnapshot) Unhealthy() bool {
	return s.DegradedInstances > 0 || s.FailedInstances > 0
}
