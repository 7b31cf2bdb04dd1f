// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

// Fixed navigation targets.
const (
	PathLogin      = "/login"
	PathPublicHome = "/"
)

// Outcome is the result of guarding a role-scoped route.
type Outcome int

// Guard outcomes.
const (
	Render Outcome = iota
	RedirectToLogin
	RedirectToPublicHome
)

// String returns a readable outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToPublicHome:
		return "redirect_to_public_home"
	default:
		return "unknown"
	}
}

// Target returns the redirect path for redirect outcomes and "" for Render.
func (o Outcome) Target() string {
	switch o {
	case RedirectToLogin:
		return PathLogin
	case RedirectToPublicHome:
		return PathPublicHome
	default:
		return ""
	}
}

// Decide maps the current role and a route's required role to an outcome.
func Decide(current, required Role) Outcome {
	switch {
	case current == required:
		return Render
	case current == RoleNone:
		return RedirectToLogin
	default:
		return RedirectToPublicHome
	}
}
