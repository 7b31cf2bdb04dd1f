// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/jaalnock/dairy-project-sub000/internal/backend"
	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/model"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/session"
)

// Authenticator verifies credentials against the backend and returns the
// credential of the backend session it opened.
type Authenticator interface {
	Login(ctx context.Context, role session.Role, creds backend.Credentials) (string, error)
}

// AuthHandler handles authentication routes.
type AuthHandler struct {
	pages           *PageHandler
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	auth            Authenticator
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil to disable
// account lockout.
func NewAuthHandler(pages *PageHandler, renderer *render.Renderer, sm *scs.SessionManager, auth Authenticator, events *service.EventService, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		pages:           pages,
		renderer:        renderer,
		sessionManager:  sm,
		auth:            auth,
		eventService:    events,
		loginProtection: lp,
	}
}

// LoginForm renders the login page.
// Already-authenticated clients are sent to their section home.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if role := middleware.GetRole(r); role.IsAuthenticated() {
		http.Redirect(w, r, role.HomePath(), http.StatusSeeOther)
		return
	}
	h.pages.LoginPage(w, r)
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, redirectLogin, "Invalid form data")
		return
	}

	role := session.ParseRole(r.FormValue(formRole))
	username := strings.TrimSpace(r.FormValue(formUsername))
	password := r.FormValue(formPassword)

	if !role.IsAuthenticated() {
		flashError(w, r, h.renderer, redirectLogin, "Please choose Admin or SubAdmin")
		return
	}
	if username == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Username and password are required")
		return
	}

	sess := middleware.GetSession(r)
	if sess == nil {
		logAndInternalError(w, "login without session middleware")
		return
	}
	if current := sess.Role(); current.IsAuthenticated() && current != role {
		flashError(w, r, h.renderer, redirectLogin,
			fmt.Sprintf("Already logged in as %s. Log out first.", current))
		return
	}

	ec := eventContext(r)
	meta := map[string]any{"username": username, "role": role.String()}
	account := middleware.AccountKey(role.String(), username)

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(account); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", ec, meta)
			flashError(w, r, h.renderer, redirectLogin,
				"Too many failed attempts. Try again in "+formatDuration(remaining)+".")
			return
		}
	}

	credential, err := h.auth.Login(r.Context(), role, backend.Credentials{Username: username, Password: password})
	if err != nil {
		if !errors.Is(err, backend.ErrUnauthorized) {
			slog.Error("backend login failed", "error", err, "role", role.String())
			flashError(w, r, h.renderer, redirectLogin, "Login is temporarily unavailable. Please try again.")
			return
		}

		slog.Debug("invalid credentials", "username", username, "role", role.String())
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid credentials", ec, meta)
		h.failedAttempt(w, r, account, ec, meta)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(account)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	if err := sess.LoginWithCredential(r.Context(), role, credential); err != nil {
		if errors.Is(err, session.ErrSessionActive) {
			flashError(w, r, h.renderer, redirectLogin, "Already logged in with another role. Log out first.")
			return
		}
		logAndInternalError(w, "failed to persist session role", "error", err, "role", role.String())
		return
	}

	slog.Info("user logged in", "username", username, "role", role.String())
	ec.Role = role.String()
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", ec, meta)

	http.Redirect(w, r, role.HomePath(), http.StatusSeeOther)
}

// failedAttempt records a failed login and flashes the matching message.
func (h *AuthHandler) failedAttempt(w http.ResponseWriter, r *http.Request, account string, ec service.EventContext, meta map[string]any) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(account); locked {
			meta["duration"] = lockDuration.String()
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", ec, meta)
			flashError(w, r, h.renderer, redirectLogin,
				"Too many failed attempts. Try again in "+formatDuration(lockDuration)+".")
			return
		}
		if remaining := h.loginProtection.GetRemainingAttempts(account); remaining > 0 && remaining <= 3 {
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Invalid credentials. %d attempts remaining.", remaining))
			return
		}
	}
	flashError(w, r, h.renderer, redirectLogin, "Invalid credentials")
}

// Logout handles POST /logout. The local logout always succeeds; the backend
// sign-out runs in the background.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	target := session.PathLogin
	if sess := middleware.GetSession(r); sess != nil {
		previous := sess.Role()
		target = sess.Logout(r.Context())

		if previous.IsAuthenticated() {
			ec := eventContext(r)
			ec.Role = previous.String()
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", ec, nil)
			slog.Info("user logged out", "role", previous.String())
		}
	}

	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error on logout", "error", err)
	}

	flashAndRedirect(w, r, h.renderer, target, "You have been logged out", "info")
}

// formatDuration formats a lockout duration for display.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
}
