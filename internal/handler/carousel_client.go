// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

// SessionKeyCarouselClient is the session key holding the id that carousel
// instances of a browser session are mounted under.
const SessionKeyCarouselClient = "carousel_client"

// carouselClient returns the carousel client id of the request's session,
// assigning one on first use. Without a session manager every request
// shares the empty id.
func carouselClient(sm *scs.SessionManager, r *http.Request) string {
	if sm == nil {
		return ""
	}
	ctx := r.Context()
	if id := sm.GetString(ctx, SessionKeyCarouselClient); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, SessionKeyCarouselClient, id)
	return id
}
