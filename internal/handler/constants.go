// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"

	// Public pages.
	RouteProducts = "/products"
	RouteAbout    = "/about"
	RouteContact  = "/contact"

	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteHealth is the health check route.
	RouteHealth = "/health"

	// RouteAdmin is the Admin section root.
	RouteAdmin = "/admin"
	// RouteSubAdmin is the SubAdmin section root.
	RouteSubAdmin = "/subadmin"

	// Admin sections.
	RouteBranches  = "/branches"
	RouteSubAdmins = "/subadmins"
	RouteSliders   = "/sliders"

	// SubAdmin sections.
	RouteTransactions = "/transactions"
	RouteFarmers      = "/farmers"
	RouteLoans        = "/loans"

	// RouteParamSlug is the slug parameter pattern.
	RouteParamSlug = "/{slug}"
	// RouteSuffixSlides is the suffix for replacing a slider's slides.
	RouteSuffixSlides = "/slides"

	// RouteAPISliders is the public carousel API prefix.
	RouteAPISliders = "/api/sliders"
)

// Carousel API action suffixes.
const (
	RouteSuffixNext     = "/next"
	RouteSuffixPrevious = "/previous"
	RouteSuffixSelect   = "/select/{index}"
	RouteSuffixPause    = "/pause"
	RouteSuffixResume   = "/resume"
	RouteSuffixKeys     = "/keys"
	RouteSuffixUnmount  = "/unmount"
)

const (
	redirectLogin        = RouteLogin
	redirectAdminSliders = RouteAdmin + RouteSliders
)

// Form and query parameter names.
const (
	formRole     = "role"
	formUsername = "username"
	formPassword = "password"
	formName     = "name"
)

// Sliders shown on public pages.
const (
	sliderHome     = "home"
	sliderProducts = "products"
)
