// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors WARN and ERROR records
// into the database-backed event log.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jaalnock/dairy-project-sub000/internal/model"
	"github.com/jaalnock/dairy-project-sub000/internal/store"
)

// Attribute keys lifted into dedicated event columns.
const (
	AttrCategory = "category"
	AttrRole     = "role"
	AttrIP       = "ip"
	AttrURL      = "url"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler creates a handler that forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level) || level >= h.level
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.inner.Enabled(ctx, r.Level) {
		if err := h.inner.Handle(ctx, r); err != nil {
			return err
		}
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   merged,
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog writes a log record to the events table. A background
// context is used so the entry survives request cancellation.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	params := store.CreateEventParams{
		Level:     slogLevelToEventLevel(r.Level),
		Message:   r.Message,
		CreatedAt: r.Time,
	}

	metadata := make(map[string]string)
	collect := func(a slog.Attr) bool {
		switch a.Key {
		case AttrCategory:
			params.Category = a.Value.String()
		case AttrRole:
			params.Role = a.Value.String()
		case AttrIP:
			params.IpAddress = a.Value.String()
		case AttrURL:
			params.RequestUrl = a.Value.String()
		default:
			metadata[a.Key] = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	if params.Category == "" || !model.IsValidEventCategory(params.Category) {
		params.Category = inferCategory(r.Message)
	}
	params.Metadata = "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			params.Metadata = string(b)
		}
	}

	_, _ = h.queries.CreateEvent(context.Background(), params)
}

// slogLevelToEventLevel converts a slog.Level to an event log level.
func slogLevelToEventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message text.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "login"), strings.Contains(msg, "logout"),
		strings.Contains(msg, "sign-out"), strings.Contains(msg, "session"),
		strings.Contains(msg, "access denied"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "slider"), strings.Contains(msg, "slide"), strings.Contains(msg, "carousel"):
		return model.EventCategorySlider
	case strings.Contains(msg, "config"):
		return model.EventCategoryConfig
	default:
		return model.EventCategorySystem
	}
}
