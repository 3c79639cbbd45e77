// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags a monitor event with the condition that produced it.
// The full vocabulary is shared with consumer agents; the aggregate-level
// rules in this package produce a subset of it.
type EventType string

const (
	EventInstanceDegraded      EventType = "INSTANCE_DEGRADED"
	EventInstanceFailed        EventType = "INSTANCE_FAILED"
	EventPairFailed            EventType = "PAIR_FAILED"
	EventCostAnomaly           EventType = "COST_ANOMALY"
	EventProvisionQueueBacklog EventType = "PROVISION_QUEUE_BACKLOG"
	EventProviderDegraded      EventType = "PROVIDER_DEGRADED"
	EventFleetRecovering       EventType = "FLEET_RECOVERING"
	EventFleetHealthy          EventType = "FLEET_HEALTHY"
)

// Priority orders events for consumers. Higher tiers demand faster handling.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Target identifies the downstream consumer agent an event is addressed to.
type Target string

const (
	TargetCommander Target = "commander"
	TargetGuardian  Target = "guardian"
	TargetLedger    Target = "ledger"
	TargetForge     Target = "forge"

	// TargetBriefer is provisioned on demand and typically has no delivery
	// address configured; its events are logged and dropped.
	TargetBriefer Target = "briefer"
)

// Event is a single typed notification produced by one sweep.
// Events are immutable once created.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Priority  Priority       `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
	Target    Target         `json:"target"`
	Payload   map[string]any `json:"payload"`

	// SuppressUntil advises the consumer when the same condition may next
	// be re-notified. Nil for conditions that are never suppressed.
	SuppressUntil *time.Time `json:"suppress_until,omitempty"`
}

// newEvent stamps identity and creation time onto an event.
func newEvent(now time.Time, typ EventType, prio Priority, target Target, payload map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Priority:  prio,
		CreatedAt: now,
		Target:    target,
		Payload:   payload,
	}
}
