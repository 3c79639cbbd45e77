// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor

import (
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
)

// Default threshold values applied by ApplyDefaults for any unset knob.
const (
	DefaultDegradedHealthScore     = 75
	DefaultCostDeviationPct        = 15.0
	DefaultProvisionQueueDepth     = 20
	DefaultProviderHealthScore     = 75
	DefaultAlertSuppressionMinutes = 30
)

// Thresholds holds the five numeric knobs the rule evaluator compares the
// snapshot against. Loaded once at construction and immutable for the
// process lifetime.
type Thresholds struct {
	// DegradedHealthScore is the floor below which an instance counts as
	// degraded (informational; the snapshot already carries the counts).
	DegradedHealthScore int

	// CostDeviationPct is the ceiling on |actual vs projected| deviation.
	CostDeviationPct float64

	// ProvisionQueueDepth is the ceiling on bootstrapping instances.
	ProvisionQueueDepth int

	// ProviderHealthScore is the per-provider health-score floor.
	ProviderHealthScore int

	// AlertSuppressionMinutes is the window during which a repeated
	// fleet-wide degraded-instance condition is not re-notified.
	AlertSuppressionMinutes int
}

// DefaultThresholds returns the fixed default knobs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradedHealthScore:     DefaultDegradedHealthScore,
		CostDeviationPct:        DefaultCostDeviationPct,
		ProvisionQueueDepth:     DefaultProvisionQueueDepth,
		ProviderHealthScore:     DefaultProviderHealthScore,
		AlertSuppressionMinutes: DefaultAlertSuppressionMinutes,
	}
}

// ApplyDefaults fills any zero-valued knob with its default so callers may
// override an arbitrary subset.
func (t *Thresholds) ApplyDefaults() {
	if t.DegradedHealthScore == 0 {
		t.DegradedHealthScore = DefaultDegradedHealthScore
	}
	if t.CostDeviationPct == 0 {
		t.CostDeviationPct = DefaultCostDeviationPct
	}
	if t.ProvisionQueueDepth == 0 {
		t.ProvisionQueueDepth = DefaultProvisionQueueDepth
	}
	if t.ProviderHealthScore == 0 {
		t.ProviderHealthScore = DefaultProviderHealthScore
	}
	if t.AlertSuppressionMinutes == 0 {
		t.AlertSuppressionMinutes = DefaultAlertSuppressionMinutes
	}
}

// Validate checks the knobs for logical errors, collecting all issues
// rather than stopping at the first one.
func (t Thresholds) Validate() []error {
	var errs []error

	if t.DegradedHealthScore < 0 || t.DegradedHealthScore > 100 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeMonitorConfigInvalid,
			"degraded health score must be between 0 and 100, got %d", t.DegradedHealthScore))
	}
	if t.ProviderHealthScore < 0 || t.ProviderHealthScore > 100 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeMonitorConfigInvalid,
			"provider health score must be between 0 and 100, got %d", t.ProviderHealthScore))
	}
	if t.CostDeviationPct < 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeMonitorConfigInvalid,
			"cost deviation pct must not be negative, got %g", t.CostDeviationPct))
	}
	if t.ProvisionQueueDepth < 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeMonitorConfigInvalid,
			"provision queue depth must not be negative, got %d", t.ProvisionQueueDepth))
	}
	if t.AlertSuppressionMinutes < 0 {
		errs = append(errs, fwerr.Errorf(fwerr.CodeMonitorConfigInvalid,
			"alert suppression minutes must not be negative, got %d", t.AlertSuppressionMinutes))
	}

	return errs
}
