// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor_test

import (
	"testing"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/fleet"
	"github.com/gatewayforge/fleetwatch/internal/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthySnapshot() *fleet.StatusSnapshot {
	return &fleet.StatusSnapshot{
		SnapshotID:     "snap-1",
		CapturedAt:     time.Now(),
		TotalInstances: 40,
		ActivePairs:    20,
		ByProvider: map[string]fleet.ProviderSummary{
			"hetzner": {Provider: "hetzner", TotalInstances: 25, ActiveInstances: 25, HealthScore: 96},
			"vultr":   {Provider: "vultr", TotalInstances: 15, ActiveInstances: 15, HealthScore: 92},
		},
	}
}

func eventsOfType(events []monitor.Event, typ monitor.EventType) []monitor.Event {
	var out []monitor.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newTestEvaluator(t *testing.T, thresholds monitor.Thresholds) (*monitor.Evaluator, *time.Time) {
	t.Helper()
	e := monitor.NewEvaluator(thresholds)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := &now
	e.SetNowFunc(func() time.Time { return *clock })
	return e, clock
}

// ---------------------------------------------------------------------------
// Instance health
// ---------------------------------------------------------------------------

func TestHealthySnapshotProducesNoHealthEvents(t *testing.T) {
	e, _ := newTestEvaluator(t, monitor.Thresholds{})

	events := e.Evaluate(healthySnapshot(), nil)

	assert.Empty(t, eventsOfType(events, monitor.EventInstanceDegraded))
	assert.Empty(t, eventsOfType(events, monitor.EventPairFailed))
}

func TestInstanceDegradedPriorityByCount(t *testing.T) {
	tests := []struct {
		name     string
		degraded int
		want     monitor.Priority
	}{
		{"twelve degraded is high", 12, monitor.PriorityHigh},
		{"three degraded is medium", 3, monitor.PriorityMedium},
		{"boundary of ten is medium", 10, monitor.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEvaluator(t, monitor.Thresholds{})
			snap := healthySnapshot()
			snap.DegradedInstances = tt.degraded

			events := eventsOfType(e.Evaluate(snap, nil), monitor.EventInstanceDegraded)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want, events[0].Priority)
			assert.Equal(t, monitor.TargetGuardian, events[0].Target)
			assert.Equal(t, tt.degraded, events[0].Payload["degraded_instances"])
			require.NotNil(t, events[0].SuppressUntil)
		})
	}
}

func TestInstanceDegradedSuppressedWithinWindow(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{AlertSuppressionMinutes: 30})
	snap := healthySnapshot()
	snap.DegradedInstances = 4

	first := eventsOfType(e.Evaluate(snap, nil), monitor.EventInstanceDegraded)
	require.Len(t, first, 1)

	// Second sweep 5 minutes later with the identical condition.
	*clock = clock.Add(5 * time.Minute)
	second := eventsOfType(e.Evaluate(snap, snap), monitor.EventInstanceDegraded)
	assert.Empty(t, second, "repeat condition inside the window must not re-emit")

	// Third sweep after the window elapses.
	*clock = clock.Add(31 * time.Minute)
	third := eventsOfType(e.Evaluate(snap, snap), monitor.EventInstanceDegraded)
	assert.Len(t, third, 1, "condition persisting past the window re-emits")
}

func TestPairFailedNeverSuppressed(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{})
	snap := healthySnapshot()
	snap.FailedInstances = 2
	snap.ActiveAlerts = []fleet.Alert{
		{Severity: fleet.SeverityCritical, Message: "pair acct-7 lost primary"},
		{Severity: fleet.SeverityWarning, Message: "disk usage high on inst-3"},
	}

	for i := 0; i < 3; i++ {
		events := eventsOfType(e.Evaluate(snap, nil), monitor.EventPairFailed)
		require.Len(t, events, 1, "sweep %d must emit despite prior sweeps", i)
		assert.Equal(t, monitor.PriorityCritical, events[0].Priority)
		assert.Nil(t, events[0].SuppressUntil)

		alerts, ok := events[0].Payload["critical_alerts"].([]fleet.Alert)
		require.True(t, ok)
		assert.Len(t, alerts, 1, "only critical-severity alerts are carried")

		*clock = clock.Add(time.Minute)
	}
}

func TestFailedAndDegradedTogetherEmitBoth(t *testing.T) {
	e, _ := newTestEvaluator(t, monitor.Thresholds{})
	snap := healthySnapshot()
	snap.DegradedInstances = 2
	snap.FailedInstances = 1

	events := e.Evaluate(snap, nil)
	assert.Len(t, eventsOfType(events, monitor.EventInstanceDegraded), 1)
	assert.Len(t, eventsOfType(events, monitor.EventPairFailed), 1)
}

// ---------------------------------------------------------------------------
// Cost anomaly
// ---------------------------------------------------------------------------

func TestCostAnomalyDirectionAndPriority(t *testing.T) {
	tests := []struct {
		name          string
		deviation     float64
		wantEvent     bool
		wantDirection string
		wantPriority  monitor.Priority
	}{
		{"over by 16", 16, true, "over", monitor.PriorityMedium},
		{"under by 16", -16, true, "under", monitor.PriorityMedium},
		{"over by 30 is high", 30, true, "over", monitor.PriorityHigh},
		{"under by 40 is high", -40, true, "under", monitor.PriorityHigh},
		{"at ceiling fires", 15, true, "over", monitor.PriorityMedium},
		{"below ceiling stays quiet", 14.9, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEvaluator(t, monitor.Thresholds{CostDeviationPct: 15})
			snap := healthySnapshot()
			snap.Cost = fleet.CostSummary{
				MonthlyActualUSD:    5800,
				MonthlyProjectedUSD: 5000,
				DeviationPct:        tt.deviation,
			}

			events := eventsOfType(e.Evaluate(snap, nil), monitor.EventCostAnomaly)
			if !tt.wantEvent {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantDirection, events[0].Payload["direction"])
			assert.Equal(t, tt.deviation, events[0].Payload["deviation_pct"])
			assert.Equal(t, tt.wantPriority, events[0].Priority)
			assert.Equal(t, monitor.TargetLedger, events[0].Target)
		})
	}
}

func TestCostAnomalyRepeatsEverySweep(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{CostDeviationPct: 15})
	snap := healthySnapshot()
	snap.Cost.DeviationPct = 20

	for i := 0; i < 3; i++ {
		events := eventsOfType(e.Evaluate(snap, nil), monitor.EventCostAnomaly)
		assert.Len(t, events, 1, "sweep %d", i)
		*clock = clock.Add(time.Minute)
	}
}

// ---------------------------------------------------------------------------
// Provision backlog
// ---------------------------------------------------------------------------

func TestProvisionBacklog(t *testing.T) {
	tests := []struct {
		name          string
		bootstrapping int
		wantEvent     bool
		wantPriority  monitor.Priority
	}{
		{"below ceiling", 19, false, ""},
		{"at ceiling fires medium", 20, true, monitor.PriorityMedium},
		{"deep backlog fires high", 51, true, monitor.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEvaluator(t, monitor.Thresholds{ProvisionQueueDepth: 20})
			snap := healthySnapshot()
			snap.BootstrappingInstances = tt.bootstrapping

			events := eventsOfType(e.Evaluate(snap, nil), monitor.EventProvisionQueueBacklog)
			if !tt.wantEvent {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tt.wantPriority, events[0].Priority)
			assert.Equal(t, monitor.TargetForge, events[0].Target)
		})
	}
}

// ---------------------------------------------------------------------------
// Provider health
// ---------------------------------------------------------------------------

func TestProviderDegradedSuppressionLifecycle(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{ProviderHealthScore: 75})

	snap := healthySnapshot()
	setScore := func(score int) {
		s := snap.ByProvider["vultr"]
		s.HealthScore = score
		snap.ByProvider["vultr"] = s
	}

	// Healthy sweep at 80: nothing.
	setScore(80)
	assert.Empty(t, eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded))

	// Crosses the floor: exactly one event.
	setScore(60)
	events := eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded)
	require.Len(t, events, 1)
	assert.Equal(t, monitor.PriorityHigh, events[0].Priority)
	assert.Equal(t, "vultr", events[0].Payload["provider"])

	// Still 60 within the hour: suppressed.
	*clock = clock.Add(10 * time.Minute)
	assert.Empty(t, eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded))

	// Recovers to 80: ledger entry cleared.
	setScore(80)
	*clock = clock.Add(10 * time.Minute)
	assert.Empty(t, eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded))

	// Re-degrades to 60 well inside what would have been the original
	// window: a fresh event, because the entry was deleted on recovery.
	setScore(60)
	*clock = clock.Add(10 * time.Minute)
	events = eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded)
	assert.Len(t, events, 1)
}

func TestProviderDegradedCriticalBelowFifty(t *testing.T) {
	e, _ := newTestEvaluator(t, monitor.Thresholds{ProviderHealthScore: 75})
	snap := healthySnapshot()
	s := snap.ByProvider["hetzner"]
	s.HealthScore = 42
	snap.ByProvider["hetzner"] = s

	events := eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded)
	require.Len(t, events, 1)
	assert.Equal(t, monitor.PriorityCritical, events[0].Priority)
	assert.Equal(t, monitor.TargetCommander, events[0].Target)
}

func TestProviderSuppressionExpiresAfterAnHour(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{ProviderHealthScore: 75})
	snap := healthySnapshot()
	s := snap.ByProvider["vultr"]
	s.HealthScore = 60
	snap.ByProvider["vultr"] = s

	require.Len(t, eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded), 1)

	*clock = clock.Add(61 * time.Minute)
	assert.Len(t, eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded), 1,
		"persisting degradation re-emits after the hour window")
}

func TestMultipleProvidersBelowFloorEachEmit(t *testing.T) {
	e, _ := newTestEvaluator(t, monitor.Thresholds{ProviderHealthScore: 75})
	snap := healthySnapshot()
	for name, s := range snap.ByProvider {
		s.HealthScore = 55
		snap.ByProvider[name] = s
	}

	events := eventsOfType(e.Evaluate(snap, nil), monitor.EventProviderDegraded)
	require.Len(t, events, 2)

	seen := map[any]bool{}
	for _, ev := range events {
		seen[ev.Payload["provider"]] = true
	}
	assert.True(t, seen["hetzner"])
	assert.True(t, seen["vultr"])
}

// ---------------------------------------------------------------------------
// Fleet recovery
// ---------------------------------------------------------------------------

func TestFleetRecoveryEdgeDetection(t *testing.T) {
	tests := []struct {
		name      string
		previous  *fleet.StatusSnapshot
		degraded  int
		failed    int
		wantEvent bool
	}{
		{"no previous snapshot", nil, 0, 0, false},
		{"previous failed, now clean", withCounts(0, 3), 0, 0, true},
		{"previous degraded, now clean", withCounts(5, 0), 0, 0, true},
		{"previous clean, still clean", withCounts(0, 0), 0, 0, false},
		{"previous failed, still degraded", withCounts(0, 3), 1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEvaluator(t, monitor.Thresholds{})
			current := healthySnapshot()
			current.DegradedInstances = tt.degraded
			current.FailedInstances = tt.failed

			events := eventsOfType(e.Evaluate(current, tt.previous), monitor.EventFleetRecovering)
			if !tt.wantEvent {
				assert.Empty(t, events)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, monitor.PriorityLow, events[0].Priority)
			assert.Equal(t, monitor.TargetBriefer, events[0].Target)
			assert.Equal(t, tt.previous.FailedInstances, events[0].Payload["previous_failed_instances"])
			assert.Equal(t, tt.previous.DegradedInstances, events[0].Payload["previous_degraded_instances"])
		})
	}
}

func withCounts(degraded, failed int) *fleet.StatusSnapshot {
	s := healthySnapshot()
	s.DegradedInstances = degraded
	s.FailedInstances = failed
	return s
}

// ---------------------------------------------------------------------------
// Event identity
// ---------------------------------------------------------------------------

func TestEventsCarryUniqueIDsAndTimestamps(t *testing.T) {
	e, clock := newTestEvaluator(t, monitor.Thresholds{})
	snap := healthySnapshot()
	snap.DegradedInstances = 1
	snap.FailedInstances = 1

	events := e.Evaluate(snap, nil)
	require.Len(t, events, 2)
	assert.NotEmpty(t, events[0].ID)
	assert.NotEmpty(t, events[1].ID)
	assert.NotEqual(t, events[0].ID, events[1].ID)
	assert.Equal(t, *clock, events[0].CreatedAt)
}
