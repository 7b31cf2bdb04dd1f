// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

// Event is a row of the events table.
type Event struct {
	ID         int64     `json:"id"`
	Level      string    `json:"level"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	Role       string    `json:"role"`
	IpAddress  string    `json:"ip_address"`
	RequestUrl string    `json:"request_url"`
	Metadata   string    `json:"metadata"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateEventParams holds the columns written by CreateEvent.
type CreateEventParams struct {
	Level      string
	Category   string
	Message    string
	Role       string
	IpAddress  string
	RequestUrl string
	Metadata   string
	CreatedAt  time.Time
}

const createEvent = `
INSERT INTO events (level, category, message, role, ip_address, request_url, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, role, ip_address, request_url, metadata, created_at`

// CreateEvent inserts an event log entry.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.Role,
		arg.IpAddress,
		arg.RequestUrl,
		arg.Metadata,
		arg.CreatedAt.UTC(),
	)
	var e Event
	err := row.Scan(
		&e.ID,
		&e.Level,
		&e.Category,
		&e.Message,
		&e.Role,
		&e.IpAddress,
		&e.RequestUrl,
		&e.Metadata,
		&e.CreatedAt,
	)
	return e, err
}

// ListEventsParams holds pagination for ListEvents.
type ListEventsParams struct {
	Limit  int64
	Offset int64
}

const listEvents = `
SELECT id, level, category, message, role, ip_address, request_url, metadata, created_at
FROM events
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListEvents returns the newest events first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.Level,
			&e.Category,
			&e.Message,
			&e.Role,
			&e.IpAddress,
			&e.RequestUrl,
			&e.Metadata,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countEvents = `SELECT COUNT(*) FROM events`

// CountEvents returns the number of stored events.
func (q *Queries) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEvents).Scan(&n)
	return n, err
}

const deleteOldEvents = `DELETE FROM events WHERE created_at < ?`

// DeleteOldEvents removes events created before the cutoff and returns the
// number of deleted rows.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldEvents, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
