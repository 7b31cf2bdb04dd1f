// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func apiPath(slug, suffix string) string {
	return RouteAPISliders + "/" + slug + suffix
}

func TestSliderAPI_Get(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	resp := env.get(t, c, apiPath(slug, ""))
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Status, resp.Body)
	}
	st := sliderState(t, resp.Body)

	if st["slug"] != "home" || st["name"] != "Home" {
		t.Errorf("slug/name = %v/%v", st["slug"], st["name"])
	}
	if st["index"] != float64(0) || st["length"] != float64(3) {
		t.Errorf("index/length = %v/%v, want 0/3", st["index"], st["length"])
	}
	if st["paused"] != false || st["running"] != true {
		t.Errorf("paused/running = %v/%v", st["paused"], st["running"])
	}
	if st["interval_ms"] != float64(1000) {
		t.Errorf("interval_ms = %v, want 1000", st["interval_ms"])
	}
	current, _ := st["current"].(map[string]any)
	if current["image_ref"] != "/img/home-a.jpg" {
		t.Errorf("current = %v", current)
	}
	if html, _ := st["description_html"].(string); !strings.Contains(html, "<strong>slide</strong>") {
		t.Errorf("description_html = %q", html)
	}
}

func TestSliderAPI_NotFound(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	for _, path := range []string{apiPath("missing", ""), apiPath("missing", RouteSuffixNext)} {
		method := http.MethodGet
		if strings.HasSuffix(path, RouteSuffixNext) {
			method = http.MethodPost
		}
		resp := env.do(t, c, method, path, "", "")
		if resp.Status != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", method, path, resp.Status)
		}
		if m := decodeBody(t, resp.Body); m["success"] != false {
			t.Errorf("%s success = %v", path, m["success"])
		}
	}
}

func TestSliderAPI_Navigation(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	steps := []struct {
		suffix string
		index  float64
	}{
		{RouteSuffixNext, 1},
		{RouteSuffixNext, 2},
		{RouteSuffixNext, 0},
		{RouteSuffixPrevious, 2},
		{RouteSuffixPrevious, 1},
		{"/select/0", 0},
		{"/select/99", 2},
		{"/select/-4", 0},
	}

	for _, step := range steps {
		resp := env.do(t, c, http.MethodPost, apiPath(slug, step.suffix), "", "")
		if resp.Status != http.StatusOK {
			t.Fatalf("POST %s status = %d", step.suffix, resp.Status)
		}
		if got := sliderState(t, resp.Body)["index"]; got != step.index {
			t.Fatalf("after %s index = %v, want %v", step.suffix, got, step.index)
		}
	}
}

func TestSliderAPI_SelectInvalidIndex(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 2)
	c := env.client(t)

	resp := env.do(t, c, http.MethodPost, apiPath(slug, "/select/two"), "", "")
	if resp.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.Status)
	}
}

func TestSliderAPI_PauseResume(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	resp := env.do(t, c, http.MethodPost, apiPath(slug, RouteSuffixPause), "", "")
	if st := sliderState(t, resp.Body); st["paused"] != true {
		t.Fatalf("paused = %v, want true", st["paused"])
	}

	// Paused sliders do not autoplay.
	env.sched.Advance(5 * time.Second)
	if st := sliderState(t, env.get(t, c, apiPath(slug, "")).Body); st["index"] != float64(0) {
		t.Errorf("index while paused = %v, want 0", st["index"])
	}

	resp = env.do(t, c, http.MethodPost, apiPath(slug, RouteSuffixResume), "", "")
	if st := sliderState(t, resp.Body); st["paused"] != false {
		t.Fatalf("paused = %v, want false", st["paused"])
	}

	env.sched.Advance(time.Second)
	if st := sliderState(t, env.get(t, c, apiPath(slug, "")).Body); st["index"] != float64(1) {
		t.Errorf("index after resume and one interval = %v, want 1", st["index"])
	}
}

func TestSliderAPI_Autoplay(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	// Mount the engine.
	env.get(t, c, apiPath(slug, ""))

	for _, want := range []float64{1, 2, 0} {
		env.sched.Advance(time.Second)
		if st := sliderState(t, env.get(t, c, apiPath(slug, "")).Body); st["index"] != want {
			t.Fatalf("index = %v, want %v", st["index"], want)
		}
	}
}

func TestSliderAPI_Keys(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	tests := []struct {
		key   string
		index float64
	}{
		{"ArrowRight", 1},
		{"ArrowRight", 2},
		{"ArrowRight", 0},
		{"ArrowLeft", 2},
		{"Enter", 2},
		{"ArrowUp", 2},
	}

	for _, tt := range tests {
		resp := env.sendJSON(t, c, http.MethodPost, apiPath(slug, RouteSuffixKeys), keyRequest{Key: tt.key})
		if resp.Status != http.StatusOK {
			t.Fatalf("key %s status = %d", tt.key, resp.Status)
		}
		if got := sliderState(t, resp.Body)["index"]; got != tt.index {
			t.Fatalf("after %s index = %v, want %v", tt.key, got, tt.index)
		}
	}
}

func TestSliderAPI_KeysBadRequest(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 2)
	c := env.client(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not json", "ArrowLeft"},
		{"unknown field", `{"code":"ArrowLeft"}`},
		{"two objects", `{"key":"ArrowLeft"}{"key":"ArrowLeft"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, c, http.MethodPost, apiPath(slug, RouteSuffixKeys), "application/json", tt.body)
			if resp.Status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.Status)
			}
		})
	}
}

func TestSliderAPI_EmptySlider(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Empty", 0)
	c := env.client(t)

	for _, suffix := range []string{"", RouteSuffixNext, RouteSuffixPrevious, "/select/3"} {
		method := http.MethodPost
		if suffix == "" {
			method = http.MethodGet
		}
		resp := env.do(t, c, method, apiPath(slug, suffix), "", "")
		if resp.Status != http.StatusOK {
			t.Fatalf("%s %q status = %d", method, suffix, resp.Status)
		}
		st := sliderState(t, resp.Body)
		if st["length"] != float64(0) || st["index"] != float64(0) {
			t.Errorf("%q: length/index = %v/%v, want 0/0", suffix, st["length"], st["index"])
		}
		if _, ok := st["current"]; ok {
			t.Errorf("%q: empty slider reported a current slide", suffix)
		}
	}
}

func TestSliderAPI_ClientsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	a, b := env.client(t), env.client(t)

	// Both visitors mount before either acts.
	env.get(t, a, apiPath(slug, ""))
	env.get(t, b, apiPath(slug, ""))

	if resp := env.do(t, a, http.MethodPost, apiPath(slug, RouteSuffixPause), "", ""); resp.Status != http.StatusOK {
		t.Fatalf("pause status = %d", resp.Status)
	}
	resp := env.do(t, a, http.MethodPost, apiPath(slug, RouteSuffixNext), "", "")
	st := sliderState(t, resp.Body)
	if st["paused"] != true || st["index"] != float64(1) {
		t.Fatalf("A paused/index = %v/%v, want true/1", st["paused"], st["index"])
	}

	st = sliderState(t, env.get(t, b, apiPath(slug, "")).Body)
	if st["paused"] != false || st["index"] != float64(0) {
		t.Errorf("B paused/index = %v/%v, want false/0", st["paused"], st["index"])
	}
	if n := env.sliders.Instances(slug); n != 2 {
		t.Errorf("Instances(%s) = %d, want 2", slug, n)
	}

	env.sched.Advance(time.Second)
	if st := sliderState(t, env.get(t, a, apiPath(slug, "")).Body); st["index"] != float64(1) {
		t.Errorf("paused A advanced to %v", st["index"])
	}
	if st := sliderState(t, env.get(t, b, apiPath(slug, "")).Body); st["index"] != float64(1) {
		t.Errorf("B index after one interval = %v, want 1", st["index"])
	}
}

func TestSliderAPI_SameSessionSharesInstance(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	c := env.client(t)

	env.do(t, c, http.MethodPost, apiPath(slug, RouteSuffixNext), "", "")
	st := sliderState(t, env.get(t, c, apiPath(slug, "")).Body)
	if st["index"] != float64(1) {
		t.Errorf("index = %v, want 1", st["index"])
	}
	if n := env.sliders.Instances(slug); n != 1 {
		t.Errorf("Instances(%s) = %d, want 1", slug, n)
	}
}

func TestSliderAPI_Unmount(t *testing.T) {
	env := newTestEnv(t)
	slug := env.seedSlider(t, "Home", 3)
	a, b := env.client(t), env.client(t)

	env.do(t, a, http.MethodPost, apiPath(slug, RouteSuffixNext), "", "")
	env.get(t, b, apiPath(slug, ""))

	resp := env.do(t, a, http.MethodPost, apiPath(slug, RouteSuffixUnmount), "", "")
	if resp.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.Status, resp.Body)
	}
	if m := decodeBody(t, resp.Body); m["unmounted"] != true {
		t.Errorf("unmounted = %v, want true", m["unmounted"])
	}
	if n := env.sliders.Instances(slug); n != 1 {
		t.Errorf("Instances(%s) = %d after unmount, want 1", slug, n)
	}

	resp = env.do(t, a, http.MethodPost, apiPath(slug, RouteSuffixUnmount), "", "")
	if m := decodeBody(t, resp.Body); m["unmounted"] != false {
		t.Errorf("second unmounted = %v, want false", m["unmounted"])
	}

	// The next request mounts a fresh instance.
	st := sliderState(t, env.get(t, a, apiPath(slug, "")).Body)
	if st["index"] != float64(0) {
		t.Errorf("index after remount = %v, want 0", st["index"])
	}
}
