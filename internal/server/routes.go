// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fleetwatch Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gatewayforge/fleetwatch/internal/monitor"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Monitor status",
		Tags:        []string{"monitor"},
	}, s.handleGetStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/api/v1/events",
		Summary:     "Recently emitted events",
		Tags:        []string{"monitor"},
	}, s.handleListEvents)
}

// StatusResponse wraps the monitor status body.
type StatusResponse struct {
	Body monitor.Status
}

func (s *Server) handleGetStatus(_ context.Context, _ *struct{}) (*StatusResponse, error) {
	return &StatusResponse{Body: s.src.Status()}, nil
}

// ListEventsInput carries the optional result cap.
type ListEventsInput struct {
	Limit int `query:"limit" minimum:"0" doc:"Maximum number of events to return (0 = all retained)"`
}

// EventsBody is the JSON body of the events listing.
type EventsBody struct {
	Events []monitor.Event `json:"events"`
	Count  int             `json:"count"`
}

// EventsResponse wraps the events listing.
type EventsResponse struct {
	Body EventsBody
}

func (s *Server) handleListEvents(_ context.Context, in *ListEventsInput) (*EventsResponse, error) {
	events := s.src.Recent(in.Limit)
	return &EventsResponse{Body: EventsBody{Events: events, Count: len(events)}}, nil
}
