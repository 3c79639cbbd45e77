// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultDeliveryTimeout bounds a single delivery attempt.
const DefaultDeliveryTimeout = 10 * time.Second

// Outcome classifies one delivery attempt.
type Outcome string

const (
	// OutcomeDelivered means the consumer acknowledged with a 2xx status.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeDropped means the target has no configured address; the event
	// was logged and discarded. Not an error.
	OutcomeDropped Outcome = "dropped"
	// OutcomeFailed means the attempt was made and did not succeed.
	// Failures are never retried and never escalated.
	OutcomeFailed Outcome = "failed"
)

// Delivery is the discardable per-event result of a best-effort send.
// Tests assert on it; production callers usually ignore it.
type Delivery struct {
	EventID string
	Target  Target
	Address string
	Outcome Outcome
	Detail  string
}

// Resolver maps a consumer target to its delivery base URL. The second
// return is false for targets that have no address, which the dispatcher
// treats as a log-and-drop outcome rather than a configuration fault.
type Resolver interface {
	Resolve(target Target) (string, bool)
}

// StaticResolver is a fixed target-to-address table built at process start.
type StaticResolver map[Target]string

func (r StaticResolver) Resolve(target Target) (string, bool) {
	addr, ok := r[target]
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// Dispatcher performs fire-and-forget event delivery to consumer agents.
// No acknowledgment beyond the HTTP status is consulted and nothing is
// retried.
type Dispatcher struct {
	resolver Resolver
	client   *http.Client
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher with a bounded per-delivery timeout.
// A zero timeout takes DefaultDeliveryTimeout; a nil logger takes the
// default slog logger.
func NewDispatcher(resolver Resolver, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		resolver: resolver,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Dispatch attempts one best-effort delivery per event and reports what
// happened. It never returns an error: delivery failure is logged at low
// severity and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) []Delivery {
	results := make([]Delivery, 0, len(events))
	for _, ev := range events {
		results = append(results, d.deliver(ctx, ev))
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) Delivery {
	res := Delivery{EventID: ev.ID, Target: ev.Target}

	addr, ok := d.resolver.Resolve(ev.Target)
	if !ok {
		// The target may be provisioned only on demand; absence of an
		// address is expected, not a misconfiguration.
		d.logger.Info("no delivery address for target, dropping event",
			"target", ev.Target, "event_type", ev.Type, "event_id", ev.ID)
		res.Outcome = OutcomeDropped
		res.Detail = "no address configured"
		return res
	}
	res.Address = addr

	body, err := json.Marshal(ev)
	if err != nil {
		d.logger.Warn("encoding event failed", "event_id", ev.ID, "error", err)
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/events", bytes.NewReader(body))
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Debug("event delivery failed",
			"target", ev.Target, "event_type", ev.Type, "error", err)
		res.Outcome = OutcomeFailed
		res.Detail = err.Error()
		return res
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Debug("consumer rejected event",
			"target", ev.Target, "event_type", ev.Type, "status", resp.StatusCode)
		res.Outcome = OutcomeFailed
		res.Detail = resp.Status
		return res
	}

	res.Outcome = OutcomeDelivered
	return res
}
