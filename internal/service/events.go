// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic and service layer functionality
// including event logging for audit trails and promotional slider management.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jaalnock/dairy-project-sub000/internal/model"
	"github.com/jaalnock/dairy-project-sub000/internal/store"
)

// EventContext carries the request attributes recorded with an event.
type EventContext struct {
	Role       string
	IpAddress  string
	RequestUrl string
}

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
	}
}

// LogEvent creates a new event log entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message string, ec EventContext, metadata map[string]any) error {
	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:      level,
		Category:   category,
		Message:    message,
		Role:       ec.Role,
		IpAddress:  ec.IpAddress,
		RequestUrl: ec.RequestUrl,
		Metadata:   metadataJSON,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}

	return nil
}

// LogAuthEvent logs an authentication-related event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message string, ec EventContext, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, ec, metadata)
}

// LogSliderEvent logs a slider-related event.
func (s *EventService) LogSliderEvent(ctx context.Context, level, message string, ec EventContext, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySlider, message, ec, metadata)
}

// LogSystemEvent logs a system-related event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, EventContext{}, metadata)
}

// ListRecent returns the newest events, newest first.
func (s *EventService) ListRecent(ctx context.Context, limit int64) ([]store.Event, error) {
	return s.queries.ListEvents(ctx, store.ListEventsParams{Limit: limit, Offset: 0})
}

// DeleteOldEvents removes events older than the specified duration and
// returns how many were removed.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
