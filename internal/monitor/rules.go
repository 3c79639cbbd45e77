// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/fleet"
)

// providerSuppressionWindow is the fixed re-alerting window for a provider
// that stays below the health floor.
const providerSuppressionWindow = time.Hour

// Evaluator runs the fixed set of threshold rules against one snapshot per
// sweep. It owns the suppression ledgers; each Evaluator instance is
// independent, so tests can construct as many as they need.
type Evaluator struct {
	thresholds Thresholds

	// instanceAlerts holds the single fleet-wide degraded-instance key;
	// providerAlerts is keyed by provider name.
	instanceAlerts *Ledger
	providerAlerts *Ledger

	nowFunc func() time.Time
}

// NewEvaluator creates an Evaluator with empty ledgers. Zero-valued
// threshold knobs take their defaults.
func NewEvaluator(thresholds Thresholds) *Evaluator {
	thresholds.ApplyDefaults()
	return &Evaluator{
		thresholds:     thresholds,
		instanceAlerts: NewLedger(),
		providerAlerts: NewLedger(),
		nowFunc:        time.Now,
	}
}

// Thresholds returns the knobs the evaluator was built with.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// SuppressionCounts returns the current entry counts of the two ledgers,
// for operator visibility.
func (e *Evaluator) SuppressionCounts() (instance, provider int) {
	return e.instanceAlerts.Len(), e.providerAlerts.Len()
}

// SetNowFunc overrides the time source on the evaluator and both ledgers
// (for testing).
func (e *Evaluator) SetNowFunc(fn func() time.Time) {
	e.nowFunc = fn
	e.instanceAlerts.SetNowFunc(fn)
	e.providerAlerts.SetNowFunc(fn)
}

// rule is one independent check. Rules append candidate events and must not
// assume any other rule has run.
type rule struct {
	name string
	run  func(current, previous *fleet.StatusSnapshot) []Event
}

// Evaluate runs every rule in fixed order against the current snapshot.
// previous may be nil on the first sweep. A panic inside one rule is
// recovered and logged so the remaining rules still run.
func (e *Evaluator) Evaluate(current, previous *fleet.StatusSnapshot) []Event {
	rules := []rule{
		{"instance_health", e.checkInstanceHealth},
		{"cost_anomaly", e.checkCostAnomaly},
		{"provision_backlog", e.checkProvisionBacklog},
		{"provider_health", e.checkProviderHealth},
		{"fleet_recovery", e.checkFleetRecovery},
	}

	var events []Event
	for _, r := range rules {
		events = append(events, e.runIsolated(r, current, previous)...)
	}
	return events
}

func (e *Evaluator) runIsolated(r rule, current, previous *fleet.StatusSnapshot) (events []Event) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("rule evaluation panicked", "rule", r.name, "panic", rec)
			events = nil
		}
	}()
	return r.run(current, previous)
}

// checkInstanceHealth emits INSTANCE_DEGRADED (suppressed by the aggregate
// ledger key) and PAIR_FAILED, which is never suppressed.
func (e *Evaluator) checkInstanceHealth(current, _ *fleet.StatusSnapshot) []Event {
	var events []Event
	now := e.nowFunc()

	if current.DegradedInstances > 0 && !e.instanceAlerts.Suppressed(aggregateKey) {
		window := time.Duration(e.thresholds.AlertSuppressionMinutes) * time.Minute
		until := e.instanceAlerts.Suppress(aggregateKey, window)

		prio := PriorityMedium
		if current.DegradedInstances > 10 {
			prio = PriorityHigh
		}

		ev := newEvent(now, EventInstanceDegraded, prio, TargetGuardian, map[string]any{
			"message":            fmt.Sprintf("%d instance(s) degraded across the fleet", current.DegradedInstances),
			"degraded_instances": current.DegradedInstances,
			"failed_instances":   current.FailedInstances,
			"by_provider":        degradedByProvider(current),
		})
		ev.SuppressUntil = &until
		events = append(events, ev)
	}

	if current.FailedInstances > 0 {
		events = append(events, newEvent(now, EventPairFailed, PriorityCritical, TargetCommander, map[string]any{
			"message":          fmt.Sprintf("%d instance(s) failed, pair integrity at risk", current.FailedInstances),
			"failed_instances": current.FailedInstances,
			"critical_alerts":  current.CriticalAlerts(),
		}))
	}

	return events
}

// checkCostAnomaly fires every sweep the deviation holds. Cost anomalies
// are comparatively rare and worth repeating, so there is no suppression.
func (e *Evaluator) checkCostAnomaly(current, _ *fleet.StatusSnapshot) []Event {
	deviation := current.Cost.DeviationPct
	if math.Abs(deviation) < e.thresholds.CostDeviationPct {
		return nil
	}

	direction := "over"
	if deviation < 0 {
		direction = "under"
	}

	prio := PriorityMedium
	if math.Abs(deviation) > 25 {
		prio = PriorityHigh
	}

	return []Event{newEvent(e.nowFunc(), EventCostAnomaly, prio, TargetLedger, map[string]any{
		"message":               fmt.Sprintf("monthly spend %s projection by %.1f%%", direction, math.Abs(deviation)),
		"monthly_actual_usd":    current.Cost.MonthlyActualUSD,
		"monthly_projected_usd": current.Cost.MonthlyProjectedUSD,
		"deviation_pct":         deviation,
		"direction":             direction,
	})}
}

// checkProvisionBacklog flags a bootstrapping queue at or beyond the
// configured depth. Not suppressed.
func (e *Evaluator) checkProvisionBacklog(current, _ *fleet.StatusSnapshot) []Event {
	depth := current.BootstrappingInstances
	if depth < e.thresholds.ProvisionQueueDepth {
		return nil
	}

	prio := PriorityMedium
	if depth > 50 {
		prio = PriorityHigh
	}

	return []Event{newEvent(e.nowFunc(), EventProvisionQueueBacklog, prio, TargetForge, map[string]any{
		"message":                 fmt.Sprintf("%d instance(s) stuck bootstrapping", depth),
		"bootstrapping_instances": depth,
		"queue_depth_ceiling":     e.thresholds.ProvisionQueueDepth,
	})}
}

// checkProviderHealth evaluates every provider in the snapshot against the
// health floor, with a per-provider one-hour suppression window. A provider
// back at or above the floor has its ledger entry deleted outright so the
// next degradation is reported promptly.
func (e *Evaluator) checkProviderHealth(current, _ *fleet.StatusSnapshot) []Event {
	var events []Event
	now := e.nowFunc()

	for _, name := range sortedProviders(current.ByProvider) {
		summary := current.ByProvider[name]

		if summary.HealthScore >= e.thresholds.ProviderHealthScore {
			e.providerAlerts.Clear(name)
			continue
		}

		if e.providerAlerts.Suppressed(name) {
			continue
		}
		until := e.providerAlerts.Suppress(name, providerSuppressionWindow)

		prio := PriorityHigh
		if summary.HealthScore < 50 {
			prio = PriorityCritical
		}

		ev := newEvent(now, EventProviderDegraded, prio, TargetCommander, map[string]any{
			"message":            fmt.Sprintf("provider %s health score %d below floor %d", name, summary.HealthScore, e.thresholds.ProviderHealthScore),
			"provider":           name,
			"health_score":       summary.HealthScore,
			"floor":              e.thresholds.ProviderHealthScore,
			"active_instances":   summary.ActiveInstances,
			"degraded_instances": summary.DegradedInstances,
		})
		ev.SuppressUntil = &until
		events = append(events, ev)
	}

	return events
}

// checkFleetRecovery is a strict edge detector: it fires only on the
// transition from an unhealthy previous snapshot to a fully healthy
// current one, never on every healthy sweep.
func (e *Evaluator) checkFleetRecovery(current, previous *fleet.StatusSnapshot) []Event {
	if previous == nil {
		return nil
	}
	if !previous.Unhealthy() || current.Unhealthy() {
		return nil
	}

	return []Event{newEvent(e.nowFunc(), EventFleetRecovering, PriorityLow, TargetBriefer, map[string]any{
		"message":                     "fleet recovered: no degraded or failed instances remain",
		"previous_failed_instances":   previous.FailedInstances,
		"previous_degraded_instances": previous.DegradedInstances,
	})}
}

func degradedByProvider(s *fleet.StatusSnapshot) map[string]int {
	out := make(map[string]int, len(s.ByProvider))
	for name, summary := range s.ByProvider {
		out[name] = summary.DegradedInstances
	}
	return out
}

// sortedProviders keeps provider evaluation order deterministic for log
// readability; the rules themselves do not depend on order.
func sortedProviders(m map[string]fleet.ProviderSummary) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
