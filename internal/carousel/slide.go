// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package carousel

// Slide is one carousel frame.
type Slide struct {
	ImageRef    string `json:"image_ref"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func cloneSlides(in []Slide) []Slide {
	if len(in) == 0 {
		return nil
	}
	out := make([]Slide, len(in))
	copy(out, in)
	return out
}
