// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

// Package monitor implements the fleet health monitor: a recurring sweep
// that fetches one aggregate status snapshot, evaluates independent
// threshold rules against it, and dispatches typed events to downstream
// consumer agents.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/fleet"
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
)

// DefaultSweepInterval is the gap between sweeps unless configured.
const DefaultSweepInterval = 5 * time.Minute

// defaultRecentEventsCap bounds the in-memory ring of recent events served
// by the status API.
const defaultRecentEventsCap = 100

// Fetcher retrieves one consistent fleet-status snapshot. Implementations
// must be idempotent and side-effect free from the monitor's perspective.
type Fetcher interface {
	FetchStatus(ctx context.Context) (*fleet.StatusSnapshot, error)
}

// Recorder receives a best-effort audit record for every emitted event.
// A nil Recorder disables the audit trail.
type Recorder interface {
	RecordEvent(ctx context.Context, ev Event, outcome Outcome) error
}

// Config holds the monitor's construction knobs.
type Config struct {
	SweepInterval   time.Duration
	Thresholds      Thresholds
	RecentEventsCap int
}

// Status is a point-in-time view of monitor state for operators.
type Status struct {
	Running              bool                  `json:"running"`
	SweepCount           int                   `json:"sweep_count"`
	LastSweepAt          time.Time             `json:"last_sweep_at"`
	LastSweepError       string                `json:"last_sweep_error,omitempty"`
	Snapshot             *fleet.StatusSnapshot `json:"snapshot,omitempty"`
	InstanceSuppressions int                   `json:"instance_suppressions"`
	ProviderSuppressions int                   `json:"provider_suppressions"`
}

// Monitor drives the fetch-evaluate-dispatch cycle. A single goroutine
// started by Start owns sweep execution; the status HTTP surface reads
// monitor state concurrently, so all mutable state sits behind mu.
type Monitor struct {
	interval   time.Duration
	fetcher    Fetcher
	evaluator  *Evaluator
	dispatcher *Dispatcher
	recorder   Recorder
	logger     *slog.Logger

	mu           sync.Mutex
	running      bool
	sweepActive  bool
	stop         chan struct{}
	done         chan struct{}
	lastSnapshot *fleet.StatusSnapshot
	lastSweepAt  time.Time
	lastSweepErr string
	sweepCount   int
	recent       []Event
	recentCap    int

	nowFunc func() time.Time
}

// New wires a Monitor from its collaborators. recorder may be nil.
func New(cfg Config, fetcher Fetcher, dispatcher *Dispatcher, recorder Recorder, logger *slog.Logger) *Monitor {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.RecentEventsCap <= 0 {
		cfg.RecentEventsCap = defaultRecentEventsCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		interval:   cfg.SweepInterval,
		fetcher:    fetcher,
		evaluator:  NewEvaluator(cfg.Thresholds),
		dispatcher: dispatcher,
		recorder:   recorder,
		logger:     logger,
		recentCap:  cfg.RecentEventsCap,
		nowFunc:    time.Now,
	}
}

// Evaluator exposes the monitor's evaluator (for testing clock injection).
func (m *Monitor) Evaluator() *Evaluator {
	return m.evaluator
}

// SetNowFunc overrides the time source (for testing).
func (m *Monitor) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
	m.evaluator.SetNowFunc(fn)
}

// Start begins the sweep loop: one synchronous sweep immediately so a
// freshly started monitor reports state at once, then one sweep per
// interval until Stop. Calling Start while running is a logged no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		m.logger.Info("monitor already running, ignoring start")
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.logger.Info("starting fleet monitor", "sweep_interval", m.interval)
	m.trySweep(ctx)

	go func() {
		defer close(done)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.trySweep(ctx)
			}
		}
	}()
}

// Stop prevents future sweeps and waits for the loop goroutine to exit.
// A sweep already in flight is allowed to finish. Stopping a monitor that
// is not running is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
	m.logger.Info("fleet monitor stopped")
}

// trySweep runs one sweep unless a previous one is still in flight, in
// which case the tick is skipped rather than queued or overlapped.
func (m *Monitor) trySweep(ctx context.Context) {
	m.mu.Lock()
	if m.sweepActive {
		m.mu.Unlock()
		m.logger.Warn("previous sweep still in flight, skipping tick")
		return
	}
	m.sweepActive = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sweepActive = false
		m.mu.Unlock()
	}()

	if err := m.Sweep(ctx); err != nil {
		m.logger.Warn("sweep aborted", "error", err)
	}
}

// Sweep executes one fetch-evaluate-dispatch cycle. A fetch failure aborts
// the whole sweep: no rules run and the recovery state is not updated.
// Evaluation and dispatch failures never propagate.
func (m *Monitor) Sweep(ctx context.Context) error {
	start := m.now()

	snapshot, err := m.fetcher.FetchStatus(ctx)
	if err != nil {
		err = fwerr.Wrapf(err, fwerr.CodeMonitorFetchFailure, "fetching fleet status")
		m.mu.Lock()
		m.lastSweepAt = start
		m.lastSweepErr = err.Error()
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	previous := m.lastSnapshot
	m.mu.Unlock()

	events := m.evaluator.Evaluate(snapshot, previous)

	var deliveries []Delivery
	if len(events) > 0 {
		deliveries = m.dispatcher.Dispatch(ctx, events)
		m.record(ctx, events, deliveries)
	}

	m.mu.Lock()
	m.lastSnapshot = snapshot
	m.lastSweepAt = start
	m.lastSweepErr = ""
	m.sweepCount++
	m.recent = append(m.recent, events...)
	if excess := len(m.recent) - m.recentCap; excess > 0 {
		m.recent = append([]Event(nil), m.recent[excess:]...)
	}
	m.mu.Unlock()

	m.logger.Info("sweep complete",
		"degraded", snapshot.DegradedInstances,
		"failed", snapshot.FailedInstances,
		"bootstrapping", snapshot.BootstrappingInstances,
		"events", len(events),
		"duration", m.now().Sub(start))
	return nil
}

// record submits one audit record per emitted event. Audit failures are
// logged and swallowed; the trail never blocks a sweep.
func (m *Monitor) record(ctx context.Context, events []Event, deliveries []Delivery) {
	if m.recorder == nil {
		return
	}
	outcomes := make(map[string]Outcome, len(deliveries))
	for _, d := range deliveries {
		outcomes[d.EventID] = d.Outcome
	}
	for _, ev := range events {
		if err := m.recorder.RecordEvent(ctx, ev, outcomes[ev.ID]); err != nil {
			m.logger.Debug("audit record failed", "event_id", ev.ID, "error", err)
		}
	}
}

// Status returns a point-in-time view of monitor state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, prov := m.evaluator.SuppressionCounts()
	return Status{
		Running:              m.running,
		SweepCount:           m.sweepCount,
		LastSweepAt:          m.lastSweepAt,
		LastSweepError:       m.lastSweepErr,
		Snapshot:             m.lastSnapshot,
		InstanceSuppressions: inst,
		ProviderSuppressions: prov,
	}
}

// Recent returns up to limit of the most recently emitted events, newest
// last. limit <= 0 returns everything retained.
func (m *Monitor) Recent(limit int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.recent
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

func (m *Monitor) now() time.Time {
	m.mu.Lock()
	fn := m.nowFunc
	m.mu.Unlock()
	return fn()
}
