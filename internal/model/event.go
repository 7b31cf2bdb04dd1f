// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines shared constants for the portal's event log.
package model

import "slices"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryAuth   = "auth"
	EventCategorySlider = "slider"
	EventCategoryConfig = "config"
	EventCategorySystem = "system"
)

// EventCategories lists every known category in display order.
var EventCategories = []string{
	EventCategoryAuth,
	EventCategorySlider,
	EventCategoryConfig,
	EventCategorySystem,
}

// IsValidEventCategory reports whether c is a known category.
func IsValidEventCategory(c string) bool {
	return slices.Contains(EventCategories, c)
}
