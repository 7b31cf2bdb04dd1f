// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/jaalnock/dairy-project-sub000/internal/cache"
)

var (
	// htmlSanitizer cleans rendered slide descriptions. UGCPolicy keeps
	// formatting and links but strips scripts and event handlers.
	htmlSanitizer = bluemonday.UGCPolicy()

	// textSanitizer strips all markup from stored slide fields.
	textSanitizer = bluemonday.StrictPolicy()
)

// RenderDescription converts a Markdown slide description to safe HTML.
func RenderDescription(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(htmlSanitizer.Sanitize(buf.String()))
}

// describe renders md through the description cache. Cache failures fall
// back to rendering directly.
func (s *SliderService) describe(ctx context.Context, md string) template.HTML {
	if s.descriptions == nil || strings.TrimSpace(md) == "" {
		return RenderDescription(md)
	}

	key := descriptionKey(md)
	cached, err := s.descriptions.Get(ctx, key)
	if err == nil {
		return template.HTML(cached)
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("description cache read failed", "error", err)
	}

	rendered := RenderDescription(md)
	if err := s.descriptions.Set(ctx, key, []byte(rendered), s.descriptionTTL); err != nil {
		s.logger.Warn("description cache write failed", "error", err)
	}
	return rendered
}

// descriptionKey identifies a description by content, so edited slides
// never see a stale rendering.
func descriptionKey(md string) string {
	sum := sha256.Sum256([]byte(md))
	return "desc:" + hex.EncodeToString(sum[:])
}

// sanitizeText removes markup from plain text fields. Entities produced by
// the policy are decoded again so "&" is stored as typed.
func sanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textSanitizer.Sanitize(s)))
}
