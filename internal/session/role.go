// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

// Role is the authorization tier of a client session.
type Role int

// Roles. RoleNone is the zero value: an anonymous client.
const (
	RoleNone Role = iota
	RoleAdmin
	RoleSubAdmin
)

// String returns the stored form of the role ("" for RoleNone).
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSubAdmin:
		return "SubAdmin"
	default:
		return ""
	}
}

// IsAuthenticated reports whether r is a logged-in role.
func (r Role) IsAuthenticated() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

// HomePath returns the landing path of the role's section.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleSubAdmin:
		return "/subadmin"
	default:
		return PathPublicHome
	}
}

// ParseRole converts a stored token into a Role. Unknown tokens are RoleNone.
func ParseRole(s string) Role {
	switch s {
	case "Admin":
		return RoleAdmin
	case "SubAdmin":
		return RoleSubAdmin
	default:
		return RoleNone
	}
}
