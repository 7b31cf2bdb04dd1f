// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
)

func TestBlankLinesRegex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no blank lines",
			input:    "line1\nline2\nline3",
			expected: "line1\nline2\nline3",
		},
		{
			name:     "one blank line (two newlines)",
			input:    "line1\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "two blank lines (three newlines)",
			input:    "line1\n\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "multiple blank lines",
			input:    "line1\n\n\n\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "blank lines with spaces",
			input:    "line1\n  \n\t\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "windows line endings",
			input:    "line1\r\n\r\n\r\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "mixed line endings",
			input:    "line1\n\r\n\nline2",
			expected: "line1\nline2",
		},
		{
			name:     "blank lines at start",
			input:    "\n\n\nline1\nline2",
			expected: "\nline1\nline2",
		},
		{
			name:     "blank lines at end",
			input:    "line1\nline2\n\n\n",
			expected: "line1\nline2\n",
		},
		{
			name:     "multiple sections with blank lines",
			input:    "a\n\n\nb\n\n\nc",
			expected: "a\nb\nc",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only newlines",
			input:    "\n\n\n\n",
			expected: "\n",
		},
		{
			name:     "html with blank lines",
			input:    "<div>\n\n\n<p>text</p>\n\n\n</div>",
			expected: "<div>\n<p>text</p>\n</div>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(blankLinesRegex.ReplaceAll([]byte(tt.input), []byte("\n")))
			if got != tt.expected {
				t.Errorf("blankLinesRegex.ReplaceAll(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html":     {Data: []byte(`{{define "base"}}<html>{{template "layout" .}}</html>{{end}}`)},
		"layouts/public.html":   {Data: []byte(`{{define "layout"}}<main class="public">{{template "flash" .}}{{template "content" .}}</main>{{end}}`)},
		"layouts/admin.html":    {Data: []byte(`{{define "layout"}}<main class="admin">{{range .Nav}}<a{{if .Active}} class="active"{{end}}>{{.Label}}</a>{{end}}{{template "content" .}}</main>{{end}}`)},
		"layouts/subadmin.html": {Data: []byte(`{{define "layout"}}<main class="subadmin">{{template "content" .}}</main>{{end}}`)},
		"partials/flash.html":   {Data: []byte(`{{define "flash"}}{{if .Flash}}<p class="{{.FlashType}}">{{.Flash}}</p>{{end}}{{end}}`)},
		"public/home.html":      {Data: []byte("{{define \"content\"}}\n\n\nhome {{.Title}}{{end}}")},
		"admin/dashboard.html":  {Data: []byte(`{{define "content"}}{{if isAdmin .Role}}admin {{.Role}}{{end}}{{end}}`)},
		"subadmin/loans.html":   {Data: []byte(`{{define "content"}}loans {{formatDate .Data}}{{end}}`)},
	}
}

func TestNew_RegistersPagesPerGroup(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, name := range []string{"public/home", "admin/dashboard", "subadmin/loans"} {
		if !r.Has(name) {
			t.Errorf("template %s not registered", name)
		}
	}
	if r.Has("public/missing") {
		t.Error("Has reported an unknown template")
	}
}

func TestNew_ParseError(t *testing.T) {
	fsys := testTemplatesFS()
	fsys["public/broken.html"] = &fstest.MapFile{Data: []byte(`{{define "content"}}{{.Title`)}

	if _, err := New(Config{TemplatesFS: fsys}); err == nil {
		t.Fatal("New should fail on a malformed template")
	}
}

func TestRender_UsesGroupLayout(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS(), Version: "v1.0.0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		data TemplateData
		want string
	}{
		{"public/home", TemplateData{Title: "Home"}, `<html><main class="public">` + "\nhome Home</main></html>"},
		{"admin/dashboard", TemplateData{Role: "Admin", Nav: []NavItem{{Label: "Sliders", Active: true}}}, `<html><main class="admin"><a class="active">Sliders</a>admin Admin</main></html>`},
		{"subadmin/loans", TemplateData{Data: time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)}, `<html><main class="subadmin">loans Mar 15, 2025</main></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if err := r.Render(rec, req, tt.name, tt.data); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := httptest.NewRecorder()
	err = r.Render(rec, httptest.NewRequest(http.MethodGet, "/", nil), "admin/nope", TemplateData{})
	if err == nil {
		t.Fatal("Render should fail for an unknown template")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("nothing should be written, got %q", rec.Body.String())
	}
}

func TestRender_WithoutSessionData(t *testing.T) {
	// A session manager without LoadAndSave must not panic.
	r, err := New(Config{TemplatesFS: testTemplatesFS(), SessionManager: scs.New()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetFlash(req, "ignored", "info")

	rec := httptest.NewRecorder()
	if err := r.Render(rec, req, "public/home", TemplateData{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRender_PopsFlash(t *testing.T) {
	sm := scs.New()
	r, err := New(Config{TemplatesFS: testTemplatesFS(), SessionManager: sm})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var bodies []string
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "/set" {
			r.SetFlash(req, "Saved", "success")
			return
		}
		rec := httptest.NewRecorder()
		if err := r.Render(rec, req, "public/home", TemplateData{}); err != nil {
			t.Errorf("Render: %v", err)
		}
		bodies = append(bodies, rec.Body.String())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/set", nil))
	cookies := rec.Result().Cookies()

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	if len(bodies) != 2 {
		t.Fatalf("rendered %d times, want 2", len(bodies))
	}
	if !strings.Contains(bodies[0], `<p class="success">Saved</p>`) {
		t.Errorf("first render missing flash: %q", bodies[0])
	}
	if strings.Contains(bodies[1], "Saved") {
		t.Errorf("flash shown twice: %q", bodies[1])
	}
}

func TestRoleFuncs(t *testing.T) {
	tests := []struct {
		role                         string
		admin, subAdmin, anyLoggedIn bool
	}{
		{"Admin", true, false, true},
		{"SubAdmin", false, true, true},
		{"", false, false, false},
		{"admin", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := isAdmin(tt.role); got != tt.admin {
				t.Errorf("isAdmin(%q) = %v", tt.role, got)
			}
			if got := isSubAdmin(tt.role); got != tt.subAdmin {
				t.Errorf("isSubAdmin(%q) = %v", tt.role, got)
			}
			if got := isLoggedIn(tt.role); got != tt.anyLoggedIn {
				t.Errorf("isLoggedIn(%q) = %v", tt.role, got)
			}
		})
	}
}
