// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds slug helpers for slider names.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugLength bounds slugs, which appear in API and admin URLs.
const MaxSlugLength = 64

var (
	// separators become hyphens before anything else is stripped.
	separators = strings.NewReplacer(" ", "-", "_", "-", "/", "-", ".", "-", "&", "-and-")

	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-{2,}`)
	validSlug    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Slugify derives a slider slug from its display name: accents are folded,
// separators become single hyphens and everything else outside [a-z0-9] is
// dropped. Long results are cut at a hyphen where possible.
func Slugify(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(fold, s)
	if err != nil {
		out = s
	}

	out = separators.Replace(strings.ToLower(out))
	out = nonSlugChars.ReplaceAllString(out, "")
	out = hyphenRuns.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")

	if len(out) > MaxSlugLength {
		cut := out[:MaxSlugLength]
		if out[MaxSlugLength] != '-' {
			if i := strings.LastIndexByte(cut, '-'); i > MaxSlugLength/2 {
				cut = cut[:i]
			}
		}
		out = strings.TrimRight(cut, "-")
	}
	return out
}

// IsValidSlug reports whether s is a slug Slugify could have produced.
func IsValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && validSlug.MatchString(s)
}
