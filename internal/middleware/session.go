// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for sessions, role-based
// route guarding, and request protection.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/jaalnock/dairy-project-sub000/internal/session"
	"github.com/jaalnock/dairy-project-sub000/internal/storage"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeySession     ContextKey = "session"
	ContextKeyRequestPath ContextKey = "request_path"
)

// LoadSession builds the client's Session over its cookie session and
// stores it in the request context. It must run inside sm.LoadAndSave.
func LoadSession(sm *scs.SessionManager, opts ...session.Option) func(http.Handler) http.Handler {
	store := storage.NewSessionStore(sm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.New(store, opts...)
			s.Initialize(r.Context())

			ctx := context.WithValue(r.Context(), ContextKeySession, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the client's Session from the request context.
// Returns nil if LoadSession did not run.
func GetSession(r *http.Request) *session.Session {
	s, _ := r.Context().Value(ContextKeySession).(*session.Session)
	return s
}

// GetRole returns the client's role, or RoleNone without a session.
func GetRole(r *http.Request) session.Role {
	if s := GetSession(r); s != nil {
		return s.Role()
	}
	return session.RoleNone
}

// RequireRole guards a route section. Clients whose role differs from role
// are redirected with 303 See Other to the target the guard decides.
func RequireRole(role session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current := session.RoleNone
			outcome := session.RedirectToLogin
			if s := GetSession(r); s != nil {
				current = s.Role()
				outcome = s.Guard(role)
			}

			switch outcome {
			case session.Render:
				next.ServeHTTP(w, r)
				return
			case session.RedirectToPublicHome:
				slog.Warn("access denied for role",
					"category", "auth",
					"role", current.String(),
					"required", role.String(),
					"url", r.URL.Path,
					"ip", r.RemoteAddr,
				)
			default:
				slog.Debug("login required", "path", r.URL.Path, "required", role.String())
			}

			http.Redirect(w, r, outcome.Target(), http.StatusSeeOther)
		})
	}
}

// RequestPath stores the request path in context for layouts that
// highlight the active section.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath returns the path stored by RequestPath.
func GetRequestPath(r *http.Request) string {
	if p, ok := r.Context().Value(ContextKeyRequestPath).(string); ok {
		return p
	}
	return r.URL.Path
}

// StripTrailingSlash redirects "/x/" to "/x" with 301. The root path is left
// alone.
func StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p == "/" || !strings.HasSuffix(p, "/") {
			next.ServeHTTP(w, r)
			return
		}

		// Leading slashes are collapsed so "//host/" cannot become an
		// off-site redirect.
		target := "/" + strings.Trim(p, "/")
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})
}
