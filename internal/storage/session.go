// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"context"

	"github.com/alexedwards/scs/v2"
)

// SessionStore keeps values in the caller's cookie session. The session data
// must already be loaded into the context by SessionManager.LoadAndSave (or
// SessionManager.Load), so each request sees only its own client's storage.
type SessionStore struct {
	sm *scs.SessionManager
}

// NewSessionStore creates a Store backed by the given session manager.
func NewSessionStore(sm *scs.SessionManager) *SessionStore {
	return &SessionStore{sm: sm}
}

// Get implements Store.
func (s *SessionStore) Get(ctx context.Context, key string) (v string, err error) {
	defer recoverNoSession(&err)

	if !s.sm.Exists(ctx, key) {
		return "", ErrNotFound
	}
	return s.sm.GetString(ctx, key), nil
}

// Set implements Store.
func (s *SessionStore) Set(ctx context.Context, key, value string) (err error) {
	defer recoverNoSession(&err)

	s.sm.Put(ctx, key, value)
	return nil
}

// Delete implements Store.
func (s *SessionStore) Delete(ctx context.Context, key string) (err error) {
	defer recoverNoSession(&err)

	s.sm.Remove(ctx, key)
	return nil
}

// recoverNoSession turns the panic scs raises for a context without session
// data into ErrNoSession.
func recoverNoSession(err *error) {
	if r := recover(); r != nil {
		*err = ErrNoSession
	}
}

var _ Store = (*SessionStore)(nil)
