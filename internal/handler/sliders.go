// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jaalnock/dairy-project-sub000/internal/carousel"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
)

// SliderAPIHandler exposes the promotional carousels as a JSON API. Every
// browser session drives its own instance of a slider.
type SliderAPIHandler struct {
	sliders        *service.SliderService
	sessionManager *scs.SessionManager
}

// NewSliderAPIHandler creates a new SliderAPIHandler.
func NewSliderAPIHandler(sliders *service.SliderService, sm *scs.SessionManager) *SliderAPIHandler {
	return &SliderAPIHandler{sliders: sliders, sessionManager: sm}
}

// keyRequest is the body of POST /api/sliders/{slug}/keys.
type keyRequest struct {
	Key string `json:"key"`
}

// Routes registers the carousel API on r.
func (h *SliderAPIHandler) Routes(r chi.Router) {
	r.Route(RouteParamSlug, func(r chi.Router) {
		r.Get(RouteRoot, h.Get)
		r.Post(RouteSuffixNext, h.Next)
		r.Post(RouteSuffixPrevious, h.Previous)
		r.Post(RouteSuffixSelect, h.Select)
		r.Post(RouteSuffixPause, h.Pause)
		r.Post(RouteSuffixResume, h.Resume)
		r.Post(RouteSuffixKeys, h.Key)
		r.Post(RouteSuffixUnmount, h.Unmount)
	})
}

// Get handles GET /api/sliders/{slug}.
func (h *SliderAPIHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	view, err := h.sliders.View(r.Context(), slug, carouselClient(h.sessionManager, r))
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}
	writeJSONSuccess(w, map[string]any{"slider": view})
}

// Next handles POST /api/sliders/{slug}/next.
func (h *SliderAPIHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*carousel.Engine).Next)
}

// Previous handles POST /api/sliders/{slug}/previous.
func (h *SliderAPIHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, (*carousel.Engine).Previous)
}

// Pause handles POST /api/sliders/{slug}/pause.
func (h *SliderAPIHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(e *carousel.Engine) carousel.State { return e.SetPaused(true) })
}

// Resume handles POST /api/sliders/{slug}/resume.
func (h *SliderAPIHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(e *carousel.Engine) carousel.State { return e.SetPaused(false) })
}

// Select handles POST /api/sliders/{slug}/select/{index}. Out-of-range
// indices are clamped by the engine.
func (h *SliderAPIHandler) Select(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	h.apply(w, r, func(e *carousel.Engine) carousel.State { return e.Select(index) })
}

// Key handles POST /api/sliders/{slug}/keys. The key is published on the
// slider's key bus, so it takes the same path as keyboard navigation.
func (h *SliderAPIHandler) Key(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	slug := chi.URLParam(r, "slug")
	inst, err := h.sliders.Mount(r.Context(), slug, carouselClient(h.sessionManager, r))
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}

	delivered := inst.Keys.Publish(carousel.Key(req.Key))
	slog.Debug("carousel key", "slug", slug, "key", req.Key, "delivered", delivered)

	h.writeState(w, r, slug, inst.Engine.State())
}

// Unmount handles POST /api/sliders/{slug}/unmount, sent when the page
// showing the carousel goes away.
func (h *SliderAPIHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	unmounted := h.sliders.Unmount(slug, carouselClient(h.sessionManager, r))
	writeJSONSuccess(w, map[string]any{"unmounted": unmounted})
}

// apply runs op on the session's instance of the slider and writes the
// resulting state.
func (h *SliderAPIHandler) apply(w http.ResponseWriter, r *http.Request, op func(*carousel.Engine) carousel.State) {
	slug := chi.URLParam(r, "slug")
	inst, err := h.sliders.Mount(r.Context(), slug, carouselClient(h.sessionManager, r))
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}
	h.writeState(w, r, slug, op(inst.Engine))
}

func (h *SliderAPIHandler) writeState(w http.ResponseWriter, r *http.Request, slug string, st carousel.State) {
	name, err := h.sliders.Name(r.Context(), slug)
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}
	writeJSONSuccess(w, map[string]any{"slider": h.sliders.ViewOf(r.Context(), slug, name, st)})
}

// writeSliderError maps slider service errors to JSON responses.
func writeSliderError(w http.ResponseWriter, err error, slug string) {
	switch {
	case errors.Is(err, service.ErrSliderNotFound):
		writeJSONError(w, http.StatusNotFound, "slider not found")
	case errors.Is(err, service.ErrSliderExists):
		writeJSONError(w, http.StatusConflict, "slider already exists")
	case errors.Is(err, service.ErrInvalidSlider):
		writeJSONError(w, http.StatusBadRequest, "invalid slider name")
	case errors.Is(err, service.ErrTooManySlides):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrServiceClosed):
		writeJSONError(w, http.StatusServiceUnavailable, "sliders are shutting down")
	default:
		slog.Error("slider operation failed", "error", err, "slug", slug)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
