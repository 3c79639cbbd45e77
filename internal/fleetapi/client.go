// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

// Package fleetapi is the HTTP client for the fleet-management service:
// snapshot reads for the monitor and best-effort audit-record submission.
package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gatewayforge/fleetwatch/internal/fleet"
	"github.com/gatewayforge/fleetwatch/internal/monitor"
	fwerr "github.com/gatewayforge/fleetwatch/pkg/errors"
	"github.com/google/uuid"
)

// DefaultFetchTimeout bounds one snapshot fetch.
const DefaultFetchTimeout = 15 * time.Second

// Client talks to the fleet-management API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client for the given base URL. A zero timeout takes
// DefaultFetchTimeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchStatus retrieves one consistent fleet-status snapshot. The read is
// idempotent and side-effect free.
func (c *Client) FetchStatus(ctx context.Context) (*fleet.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/fleet/status", nil)
	if err != nil {
		return nil, fwerr.Wrapf(err, fwerr.CodeFleetAPIRequestFailure, "building status request")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fwerr.Wrapf(err, fwerr.CodeFleetAPIRequestFailure, "fetching fleet status")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fwerr.Errorf(fwerr.CodeFleetAPIStatusUnexpected,
			"fleet status endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var snapshot fleet.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fwerr.Wrapf(err, fwerr.CodeFleetAPIResponseInvalid, "decoding fleet status")
	}
	return &snapshot, nil
}

// AuditRecord is the trail entry submitted for every emitted event.
type AuditRecord struct {
	ID         string         `json:"id"`
	RecordedAt time.Time      `json:"recorded_at"`
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	EventID    string         `json:"event_id"`
	EventType  string         `json:"event_type"`
	Target     string         `json:"target"`
	Priority   string         `json:"priority"`
	Outcome    string         `json:"outcome"`
	Details    map[string]any `json:"details,omitempty"`
}

// RecordEvent submits one audit record for an emitted event. Callers treat
// failures as non-fatal; the record is best effort.
func (c *Client) RecordEvent(ctx context.Context, ev monitor.Event, outcome monitor.Outcome) error {
	record := AuditRecord{
		ID:         uuid.NewString(),
		RecordedAt: time.Now().UTC(),
		Agent:      "fleetwatch",
		Action:     "emit_event",
		EventID:    ev.ID,
		EventType:  string(ev.Type),
		Target:     string(ev.Target),
		Priority:   string(ev.Priority),
		Outcome:    string(outcome),
		Details:    ev.Payload,
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fwerr.Wrapf(err, fwerr.CodeAuditRecordFailure, "encoding audit record")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/audit/records", bytes.NewReader(body))
	if err != nil {
		return fwerr.Wrapf(err, fwerr.CodeAuditRecordFailure, "building audit request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fwerr.Wrapf(err, fwerr.CodeAuditRecordFailure, "submitting audit record")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fwerr.Errorf(fwerr.CodeAuditRecordFailure,
			"audit endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
