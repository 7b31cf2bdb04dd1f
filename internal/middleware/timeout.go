// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Timeout bounds each request. When the handler has not written a status
// within timeout the client gets 503; anything the handler writes afterwards
// fails with http.ErrHandlerTimeout. Carousel API clients asking for JSON get
// a JSON body. A panic in the handler is re-raised on the serving goroutine
// so Recoverer still sees it.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{w: w, h: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
						return
					}
					close(done)
				}()
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.expire(wantsJSONTimeout(r))
			}
		})
	}
}

func wantsJSONTimeout(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// timeoutWriter hands the handler a private header map, copied to the real
// writer when the status is written. The timeout path therefore never races
// with the handler on headers.
type timeoutWriter struct {
	w http.ResponseWriter
	h http.Header

	mu          sync.Mutex
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.w.Write(b)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	dst := tw.w.Header()
	for k, v := range tw.h {
		dst[k] = v
	}
	tw.wroteHeader = true
	tw.w.WriteHeader(code)
}

// expire marks the response timed out and writes the 503 unless the handler
// already committed a status.
func (tw *timeoutWriter) expire(asJSON bool) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tw.timedOut = true
	if tw.wroteHeader {
		return
	}
	tw.wroteHeader = true

	if asJSON {
		tw.w.Header().Set("Content-Type", "application/json")
		tw.w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = tw.w.Write([]byte(`{"success":false,"error":"request timed out"}` + "\n"))
		return
	}
	tw.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	tw.w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = tw.w.Write([]byte("Request timeout"))
}
