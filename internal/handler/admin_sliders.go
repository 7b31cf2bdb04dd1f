// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jaalnock/dairy-project-sub000/internal/carousel"
	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/model"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/store"
)

// AdminSliderHandler manages promotional sliders. Its routes must be guarded
// by RequireRole(RoleAdmin).
type AdminSliderHandler struct {
	renderer     *render.Renderer
	sliders      *service.SliderService
	eventService *service.EventService
}

// NewAdminSliderHandler creates a new AdminSliderHandler.
func NewAdminSliderHandler(renderer *render.Renderer, sliders *service.SliderService, events *service.EventService) *AdminSliderHandler {
	return &AdminSliderHandler{
		renderer:     renderer,
		sliders:      sliders,
		eventService: events,
	}
}

// createSliderRequest is the JSON body of POST /admin/sliders.
type createSliderRequest struct {
	Name string `json:"name"`
}

// replaceSlidesRequest is the JSON body of PUT /admin/sliders/{slug}/slides.
type replaceSlidesRequest struct {
	Slides []carousel.Slide `json:"slides"`
}

// Routes registers the slider management routes on r.
func (h *AdminSliderHandler) Routes(r chi.Router) {
	r.Get(RouteRoot, h.List)
	r.Post(RouteRoot, h.Create)
	r.Put(RouteParamSlug+RouteSuffixSlides, h.ReplaceSlides)
	r.Delete(RouteParamSlug, h.Delete)
}

// List handles GET /admin/sliders. Browsers get the Admin page, API clients
// a JSON list.
func (h *AdminSliderHandler) List(w http.ResponseWriter, r *http.Request) {
	sliders, err := h.sliders.List(r.Context())
	if err != nil {
		writeSliderError(w, err, "")
		return
	}
	if sliders == nil {
		sliders = []store.Slider{}
	}

	if wantsJSON(r) {
		writeJSONSuccess(w, map[string]any{"sliders": sliders})
		return
	}

	path := RouteAdmin + RouteSliders
	if err := h.renderer.Render(w, r, "admin/sliders", render.TemplateData{
		Title: "Sliders",
		Data:  sliders,
		Role:  middleware.GetRole(r).String(),
		Path:  path,
		Nav:   navItems(AdminSections, path),
	}); err != nil {
		logAndInternalError(w, "failed to render template", "error", err, "template", "admin/sliders")
	}
}

// Create handles POST /admin/sliders. It accepts a JSON body or the Admin
// page's form.
func (h *AdminSliderHandler) Create(w http.ResponseWriter, r *http.Request) {
	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var name string
	if isJSON {
		var req createSliderRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		name = req.Name
	} else {
		if err := r.ParseForm(); err != nil {
			flashError(w, r, h.renderer, redirectAdminSliders, "Invalid form data")
			return
		}
		name = r.FormValue(formName)
	}

	slider, err := h.sliders.Create(r.Context(), name)
	if err != nil {
		if !isJSON {
			flashError(w, r, h.renderer, redirectAdminSliders, createErrorMessage(err))
			return
		}
		writeSliderError(w, err, "")
		return
	}

	_ = h.eventService.LogSliderEvent(r.Context(), model.EventLevelInfo, "Slider created", eventContext(r),
		map[string]any{"slug": slider.Slug, "name": slider.Name})

	if !isJSON {
		flashSuccess(w, r, h.renderer, redirectAdminSliders, "Slider "+slider.Name+" created")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "slider": slider})
}

func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrSliderExists):
		return "A slider with this name already exists"
	case errors.Is(err, service.ErrInvalidSlider):
		return "Please enter a valid slider name"
	default:
		return "Could not create slider"
	}
}

// ReplaceSlides handles PUT /admin/sliders/{slug}/slides.
func (h *AdminSliderHandler) ReplaceSlides(w http.ResponseWriter, r *http.Request) {
	var req replaceSlidesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i, sl := range req.Slides {
		if strings.TrimSpace(sl.ImageRef) == "" {
			writeJSONError(w, http.StatusBadRequest, "slide "+strconv.Itoa(i)+": image_ref is required")
			return
		}
	}

	slug := chi.URLParam(r, "slug")
	st, err := h.sliders.Replace(r.Context(), slug, req.Slides)
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}

	_ = h.eventService.LogSliderEvent(r.Context(), model.EventLevelInfo, "Slider slides replaced", eventContext(r),
		map[string]any{"slug": slug, "slides": len(req.Slides)})

	name, err := h.sliders.Name(r.Context(), slug)
	if err != nil {
		writeSliderError(w, err, slug)
		return
	}
	writeJSONSuccess(w, map[string]any{"slider": h.sliders.ViewOf(r.Context(), slug, name, st)})
}

// Delete handles DELETE /admin/sliders/{slug}.
func (h *AdminSliderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.sliders.Delete(r.Context(), slug); err != nil {
		writeSliderError(w, err, slug)
		return
	}

	_ = h.eventService.LogSliderEvent(r.Context(), model.EventLevelInfo, "Slider deleted", eventContext(r),
		map[string]any{"slug": slug})

	writeJSONSuccess(w, nil)
}
