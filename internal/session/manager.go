// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

// Lifetime is the absolute lifetime of a client session.
const Lifetime = 24 * time.Hour

// NewManager creates a session manager persisting sessions in SQLite.
func NewManager(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := newManager(isDev)
	sm.Store = sqlite3store.New(db)
	return sm
}

// NewRedisManager creates a session manager persisting sessions in Redis.
func NewRedisManager(client *redis.Client, prefix string, isDev bool) *scs.SessionManager {
	sm := newManager(isDev)
	sm.Store = NewRedisStore(client, prefix)
	return sm
}

func newManager(isDev bool) *scs.SessionManager {
	sm := scs.New()

	sm.Lifetime = Lifetime
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	sm.Cookie.Path = "/"
	if !isDev {
		// __Host- prefix pins the cookie to this host over HTTPS
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}
