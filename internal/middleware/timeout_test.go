// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeout_FastHandler(t *testing.T) {
	wrapped := Timeout(5 * time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Slider", "home")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusCreated {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusCreated)
	}
	if got := rr.Header().Get("X-Slider"); got != "home" {
		t.Errorf("X-Slider = %q, want header copied on WriteHeader", got)
	}
	if body := rr.Body.String(); body != "created" {
		t.Errorf("Body = %q, want %q", body, "created")
	}
}

func TestTimeout_SlowHandler(t *testing.T) {
	finished := make(chan error, 1)
	wrapped := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.Header().Set("X-Late", "1")
		_, err := w.Write([]byte("too late"))
		finished <- err
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if body := rr.Body.String(); body != "Request timeout" {
		t.Errorf("Body = %q", body)
	}

	select {
	case err := <-finished:
		if !errors.Is(err, http.ErrHandlerTimeout) {
			t.Errorf("late write error = %v, want ErrHandlerTimeout", err)
		}
	case <-time.After(time.Second):
		t.Fatal("handler never finished")
	}
	if rr.Header().Get("X-Late") != "" {
		t.Error("header set after the timeout reached the client")
	}
}

func TestTimeout_JSONClients(t *testing.T) {
	wrapped := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/sliders/home/next", nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %q", rr.Body.String())
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestTimeout_CommittedResponseIsKept(t *testing.T) {
	wrapped := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		<-r.Context().Done()
	}))

	rr := httptest.NewRecorder()
	wrapped.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusAccepted {
		t.Errorf("Status = %d, want %d", rr.Code, http.StatusAccepted)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", rr.Body.String())
	}
}

func TestTimeout_PanicPropagates(t *testing.T) {
	wrapped := Timeout(time.Second)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("slider exploded")
	}))

	defer func() {
		if p := recover(); p == nil {
			t.Error("panic was swallowed")
		}
	}()
	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestTimeoutWriter_WriteHeaderOnce(t *testing.T) {
	rr := httptest.NewRecorder()
	tw := &timeoutWriter{w: rr, h: make(http.Header)}

	tw.WriteHeader(http.StatusCreated)
	tw.WriteHeader(http.StatusBadRequest)
	if _, err := tw.Write([]byte("ok")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if rr.Code != http.StatusCreated {
		t.Errorf("Code = %d, want %d", rr.Code, http.StatusCreated)
	}
}

func TestTimeoutWriter_ImplicitOK(t *testing.T) {
	rr := httptest.NewRecorder()
	tw := &timeoutWriter{w: rr, h: make(http.Header)}

	tw.Header().Set("Content-Type", "application/json")
	if _, err := tw.Write([]byte("{}")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !tw.wroteHeader {
		t.Error("Write should mark header as written")
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Code = %d, want 200", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
}
