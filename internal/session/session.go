// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session holds the client's authenticated role, persists it in
// durable client storage, and decides whether role-scoped routes render.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jaalnock/dairy-project-sub000/internal/storage"
)

// Storage keys of the persisted session.
const (
	StorageKeyRole              = "role"
	StorageKeyBackendCredential = "backend_credential"
)

// DefaultSignOutTimeout bounds the detached remote sign-out call.
const DefaultSignOutTimeout = 10 * time.Second

var (
	// ErrInvalidRole is returned by Login for RoleNone.
	ErrInvalidRole = errors.New("session: login role must be Admin or SubAdmin")

	// ErrSessionActive is returned by Login when another role is logged in.
	// Switching roles requires a logout first.
	ErrSessionActive = errors.New("session: already logged in with a different role")
)

// SignOuter performs the remote half of a logout. credential is the one
// the backend issued at login, empty when none was stored.
type SignOuter interface {
	SignOut(ctx context.Context, role Role, credential string) error
}

// Option configures a Session.
type Option func(*Session)

// WithSignOuter sets the remote sign-out collaborator.
func WithSignOuter(so SignOuter) Option {
	return func(s *Session) { s.signOuter = so }
}

// WithTasks sets the tracker used for detached sign-out calls.
func WithTasks(t *Tasks) Option {
	return func(s *Session) { s.tasks = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSignOutTimeout overrides DefaultSignOutTimeout.
func WithSignOutTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.signOutTimeout = d
		}
	}
}

// Session is the single source of truth for who is logged in on one client.
// Independent sessions can coexist; each wraps its own client storage.
type Session struct {
	mu   sync.RWMutex
	role Role

	store          storage.Store
	signOuter      SignOuter
	tasks          *Tasks
	logger         *slog.Logger
	signOutTimeout time.Duration
}

// New creates an anonymous Session over store. Call Initialize to recover a
// persisted role.
func New(store storage.Store, opts ...Option) *Session {
	s := &Session{
		store:          store,
		signOutTimeout: DefaultSignOutTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tasks == nil {
		s.tasks = NewTasks(s.logger)
	}
	return s
}

// Initialize recovers the role from storage. Absent, unreadable or unknown
// tokens all yield RoleNone.
func (s *Session) Initialize(ctx context.Context) Role {
	role := s.load(ctx)

	s.mu.Lock()
	s.role = role
	s.mu.Unlock()

	return role
}

// Refresh re-reads storage and reports whether the role changed, which
// happens when storage was cleared or rewritten outside this Session.
func (s *Session) Refresh(ctx context.Context) (Role, bool) {
	role := s.load(ctx)

	s.mu.Lock()
	changed := s.role != role
	s.role = role
	s.mu.Unlock()

	if changed {
		s.logger.Debug("session role changed in storage", "role", role.String())
	}
	return role, changed
}

func (s *Session) load(ctx context.Context) Role {
	v, err := s.store.Get(ctx, StorageKeyRole)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("reading session role failed", "error", err)
		}
		return RoleNone
	}
	return ParseRole(v)
}

// Role returns the in-memory role.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Login commits role locally and persists it. Credentials must already have
// been verified by the backend. Logging in again with the current role is a
// no-op apart from rewriting storage.
func (s *Session) Login(ctx context.Context, role Role) error {
	return s.LoginWithCredential(ctx, role, "")
}

// LoginWithCredential is Login that also persists the backend credential
// issued for the login, so Logout can end the same backend session. An
// empty credential clears any stored one.
func (s *Session) LoginWithCredential(ctx context.Context, role Role, credential string) error {
	if !role.IsAuthenticated() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.role != RoleNone && s.role != role {
		return ErrSessionActive
	}

	if credential == "" {
		if err := s.store.Delete(ctx, StorageKeyBackendCredential); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("clearing backend credential: %w", err)
		}
	} else if err := s.store.Set(ctx, StorageKeyBackendCredential, credential); err != nil {
		return fmt.Errorf("persisting backend credential: %w", err)
	}
	if err := s.store.Set(ctx, StorageKeyRole, role.String()); err != nil {
		return fmt.Errorf("persisting role: %w", err)
	}
	s.role = role
	return nil
}

// Logout clears the persisted role and backend credential, resets the
// session to RoleNone and returns the path to navigate to. Local logout
// never fails: storage errors are logged, and the remote sign-out runs
// detached with its result only logged.
func (s *Session) Logout(ctx context.Context) string {
	s.mu.Lock()
	previous := s.role
	credential, err := s.store.Get(ctx, StorageKeyBackendCredential)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("reading backend credential failed", "error", err, "role", previous.String())
	}
	if err := s.store.Delete(ctx, StorageKeyBackendCredential); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("clearing backend credential failed", "error", err, "role", previous.String())
	}
	if err := s.store.Delete(ctx, StorageKeyRole); err != nil {
		s.logger.Warn("clearing session role failed", "error", err, "role", previous.String())
	}
	s.role = RoleNone
	s.mu.Unlock()

	if previous.IsAuthenticated() && s.signOuter != nil {
		s.signOutDetached(ctx, previous, credential)
	}
	return PathLogin
}

// signOutDetached calls the remote sign-out without blocking the caller.
// The request context's values are kept but its cancellation is not.
func (s *Session) signOutDetached(ctx context.Context, role Role, credential string) {
	base := context.WithoutCancel(ctx)
	s.tasks.Go("remote sign-out", func(taskID string) {
		callCtx, cancel := context.WithTimeout(base, s.signOutTimeout)
		defer cancel()

		if err := s.signOuter.SignOut(callCtx, role, credential); err != nil {
			s.logger.Warn("remote sign-out failed",
				"role", role.String(),
				"task_id", taskID,
				"error", err,
			)
			return
		}
		s.logger.Debug("remote sign-out completed", "role", role.String(), "task_id", taskID)
	})
}

// Guard decides whether a route requiring the given role renders.
func (s *Session) Guard(required Role) Outcome {
	return Decide(s.Role(), required)
}
