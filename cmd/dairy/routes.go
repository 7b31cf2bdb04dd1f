// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/jaalnock/dairy-project-sub000/internal/handler"
	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/session"
)

// requestTimeout bounds every request.
const requestTimeout = 30 * time.Second

// app holds the dependencies the router is built from.
type app struct {
	isDev           bool
	port            int
	csrfKey         []byte
	sessionManager  *scs.SessionManager
	renderer        *render.Renderer
	sliders         *service.SliderService
	events          *service.EventService
	auth            handler.Authenticator
	signOuter       session.SignOuter
	tasks           *session.Tasks
	loginProtection *middleware.LoginProtection
	apiLimiter      *middleware.APIRateLimiter
	health          *handler.HealthHandler
	static          fs.FS
	logger          *slog.Logger
	requestLogging  bool
}

// routes builds the HTTP handler.
func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if a.requestLogging {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(a.isDev)))
	r.Use(middleware.RequestPath)

	// Static assets carry no session.
	if a.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(a.static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(a.sessionManager.LoadAndSave)
		r.Use(middleware.LoadSession(a.sessionManager,
			session.WithSignOuter(a.signOuter),
			session.WithTasks(a.tasks),
			session.WithLogger(a.logger),
		))
		r.Use(middleware.SkipCSRF(handler.RouteAPISliders))
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig(a.csrfKey, a.isDev, a.port)))

		r.Get(handler.RouteHealth, a.health.Health)
		r.Get(handler.RouteHealth+"/live", a.health.Liveness)
		r.Get(handler.RouteHealth+"/ready", a.health.Readiness)

		pages := handler.NewPageHandler(a.renderer, a.sliders, a.sessionManager)
		auth := handler.NewAuthHandler(pages, a.renderer, a.sessionManager, a.auth, a.events, a.loginProtection)

		r.Get(handler.RouteRoot, pages.Home)
		r.Get(handler.RouteProducts, pages.Products)
		r.Get(handler.RouteAbout, pages.About)
		r.Get(handler.RouteContact, pages.Contact)

		r.Get(handler.RouteLogin, auth.LoginForm)
		r.With(a.loginProtection.Middleware()).Post(handler.RouteLogin, auth.Login)
		r.Post(handler.RouteLogout, auth.Logout)

		adminSliders := handler.NewAdminSliderHandler(a.renderer, a.sliders, a.events)
		r.Route(handler.RouteAdmin, func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleAdmin))
			registerSections(r, handler.RouteAdmin, handler.AdminSections, pages.AdminPage, handler.RouteSliders)
			r.Route(handler.RouteSliders, adminSliders.Routes)
		})

		r.Route(handler.RouteSubAdmin, func(r chi.Router) {
			r.Use(middleware.RequireRole(session.RoleSubAdmin))
			registerSections(r, handler.RouteSubAdmin, handler.SubAdminSections, pages.SubAdminPage)
		})

		sliderAPI := handler.NewSliderAPIHandler(a.sliders, a.sessionManager)
		r.Route(handler.RouteAPISliders, func(r chi.Router) {
			r.Use(a.apiLimiter.Middleware())
			sliderAPI.Routes(r)
		})
	})

	return r
}

// registerSections registers a GET page for every section of a shell,
// except those served by their own handler.
func registerSections(r chi.Router, base string, sections []handler.Section, page http.HandlerFunc, skip ...string) {
	for _, s := range sections {
		sub := strings.TrimPrefix(s.Path, base)
		if sub == "" {
			sub = handler.RouteRoot
		}
		if slices.Contains(skip, sub) {
			continue
		}
		r.Get(sub, page)
	}
}

// staticFS returns the static asset tree rooted at "static".
func staticFS(embedded fs.FS) (fs.FS, error) {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		return nil, fmt.Errorf("getting static fs: %w", err)
	}
	return sub, nil
}
