// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestEventLevels_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, l := range []string{EventLevelInfo, EventLevelWarning, EventLevelError} {
		if l == "" || seen[l] {
			t.Errorf("level %q is empty or duplicated", l)
		}
		seen[l] = true
	}
}

func TestIsValidEventCategory(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range EventCategories {
		if seen[c] {
			t.Errorf("category %q listed twice", c)
		}
		seen[c] = true
		if !IsValidEventCategory(c) {
			t.Errorf("IsValidEventCategory(%q) = false", c)
		}
	}
	for _, c := range []string{"", "page", "AUTH", "sliders"} {
		if IsValidEventCategory(c) {
			t.Errorf("IsValidEventCategory(%q) = true", c)
		}
	}
}
