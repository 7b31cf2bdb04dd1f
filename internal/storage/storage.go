// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage provides durable, string-valued client storage: the small
// key-value space a client keeps across requests (its role, for example).
package storage

import "context"

// Store is a durable string key-value store.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value or ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Error represents an error type for storage operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNotFound indicates the key is not present.
	ErrNotFound Error = "storage: key not found"

	// ErrNoSession indicates the context carries no loaded client session.
	ErrNoSession Error = "storage: no session in context"
)
