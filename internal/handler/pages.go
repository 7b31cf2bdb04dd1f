// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/session"
)

// Section is one page of a layout shell.
type Section struct {
	Title string
	Path  string
}

// Layout section lists. The first entry of each shell is its landing page.
var (
	PublicSections = []Section{
		{"Home", RouteRoot},
		{"Products", RouteProducts},
		{"About Us", RouteAbout},
		{"Contact", RouteContact},
	}

	AdminSections = []Section{
		{"Dashboard", RouteAdmin},
		{"Branches", RouteAdmin + RouteBranches},
		{"Sub-Admins", RouteAdmin + RouteSubAdmins},
		{"Products", RouteAdmin + RouteProducts},
		{"Sliders", RouteAdmin + RouteSliders},
	}

	SubAdminSections = []Section{
		{"Dashboard", RouteSubAdmin},
		{"Transactions", RouteSubAdmin + RouteTransactions},
		{"Farmers", RouteSubAdmin + RouteFarmers},
		{"Loans", RouteSubAdmin + RouteLoans},
	}
)

// navItems marks the section matching path as active.
func navItems(sections []Section, path string) []render.NavItem {
	items := make([]render.NavItem, len(sections))
	for i, s := range sections {
		items[i] = render.NavItem{Label: s.Title, Path: s.Path, Active: s.Path == path}
	}
	return items
}

// sectionTitle returns the title of the section at path.
func sectionTitle(sections []Section, path string) (string, bool) {
	for _, s := range sections {
		if s.Path == path {
			return s.Title, true
		}
	}
	return "", false
}

// PageHandler renders the three layout shells.
type PageHandler struct {
	renderer       *render.Renderer
	sliders        *service.SliderService
	sessionManager *scs.SessionManager
}

// NewPageHandler creates a new PageHandler. sliders may be nil, in which
// case public pages render without a carousel.
func NewPageHandler(renderer *render.Renderer, sliders *service.SliderService, sm *scs.SessionManager) *PageHandler {
	return &PageHandler{
		renderer:       renderer,
		sliders:        sliders,
		sessionManager: sm,
	}
}

// Home handles GET /.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.public(w, r, "public/home", "Home", sliderHome)
}

// Products handles GET /products.
func (h *PageHandler) Products(w http.ResponseWriter, r *http.Request) {
	h.public(w, r, "public/products", "Products", sliderProducts)
}

// About handles GET /about.
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.public(w, r, "public/about", "About Us", "")
}

// Contact handles GET /contact.
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.public(w, r, "public/contact", "Contact", "")
}

// public renders a public page, with the carousel of slider slug when one
// is configured.
func (h *PageHandler) public(w http.ResponseWriter, r *http.Request, tmpl, title, slug string) {
	data := render.TemplateData{
		Title: title,
		Role:  middleware.GetRole(r).String(),
		Nav:   navItems(PublicSections, r.URL.Path),
	}

	if slug != "" && h.sliders != nil {
		view, err := h.sliders.View(r.Context(), slug, carouselClient(h.sessionManager, r))
		switch {
		case err == nil:
			data.Data = view
		case errors.Is(err, service.ErrSliderNotFound):
		default:
			slog.Error("failed to load slider", "error", err, "slug", slug)
		}
	}

	h.render(w, r, tmpl, data)
}

// AdminPage renders a page of the Admin shell. The route must be guarded by
// RequireRole(RoleAdmin).
func (h *PageHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r, "admin", AdminSections)
}

// SubAdminPage renders a page of the SubAdmin shell. The route must be
// guarded by RequireRole(RoleSubAdmin).
func (h *PageHandler) SubAdminPage(w http.ResponseWriter, r *http.Request) {
	h.shell(w, r, "subadmin", SubAdminSections)
}

func (h *PageHandler) shell(w http.ResponseWriter, r *http.Request, group string, sections []Section) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	title, ok := sectionTitle(sections, path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	tmpl := group + "/section"
	if path == sections[0].Path {
		tmpl = group + "/dashboard"
	}

	h.render(w, r, tmpl, render.TemplateData{
		Title: title,
		Role:  middleware.GetRole(r).String(),
		Path:  path,
		Nav:   navItems(sections, path),
	})
}

// LoginPage renders the login form inside the public shell.
func (h *PageHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "public/login", render.TemplateData{
		Title: "Log in",
		Role:  session.RoleNone.String(),
		Nav:   navItems(PublicSections, r.URL.Path),
	})
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, tmpl string, data render.TemplateData) {
	if err := h.renderer.Render(w, r, tmpl, data); err != nil {
		logAndInternalError(w, "failed to render template", "error", err, "template", tmpl)
	}
}
