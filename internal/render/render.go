// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package render parses the portal's html/template layouts and renders
// pages inside the layout shell of their section.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Layout groups. A page under "admin/" renders inside layouts/admin.html.
var layoutGroups = []string{"public", "admin", "subadmin"}

// Session keys for flash messages.
const (
	sessionKeyFlash     = "flash"
	sessionKeyFlashType = "flash_type"
)

// blankLinesRegex matches runs of blank lines left behind by template actions.
var blankLinesRegex = regexp.MustCompile(`(\r?\n[ \t]*)+\r?\n`)

// Renderer handles template rendering with caching.
type Renderer struct {
	templates      map[string]*template.Template
	sessionManager *scs.SessionManager
	version        string
}

// Config holds renderer configuration.
type Config struct {
	TemplatesFS    fs.FS
	SessionManager *scs.SessionManager
	Version        string
}

// NavItem is one entry of a layout's section navigation.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// TemplateData holds data passed to templates.
type TemplateData struct {
	Title       string
	Data        any
	Flash       string
	FlashType   string
	CurrentYear int
	Role        string
	Path        string
	Nav         []NavItem
	Version     string
}

// New creates a new Renderer with parsed templates.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		templates:      make(map[string]*template.Template),
		sessionManager: cfg.SessionManager,
		version:        cfg.Version,
	}

	if err := r.parseTemplates(cfg.TemplatesFS); err != nil {
		return nil, err
	}

	return r, nil
}

// parseTemplates parses every page with the base layout, its group layout,
// and all partials.
func (r *Renderer) parseTemplates(templatesFS fs.FS) error {
	partials, err := getTemplateFiles(templatesFS, "partials")
	if err != nil {
		return fmt.Errorf("getting partials: %w", err)
	}

	for _, group := range layoutGroups {
		pages, err := getTemplateFiles(templatesFS, group)
		if err != nil {
			return fmt.Errorf("getting %s templates: %w", group, err)
		}

		for _, pagePath := range pages {
			name := group + "/" + strings.TrimSuffix(path.Base(pagePath), ".html")

			files := []string{"layouts/base.html", "layouts/" + group + ".html"}
			files = append(files, partials...)
			files = append(files, pagePath)

			tmpl, err := template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, files...)
			if err != nil {
				return fmt.Errorf("parsing template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return nil
}

// getTemplateFiles returns all .html files in a directory.
func getTemplateFiles(templatesFS fs.FS, dir string) ([]string, error) {
	var files []string

	entries, err := fs.ReadDir(templatesFS, dir)
	if err != nil {
		// Directory might not exist yet, that's ok
		return files, nil
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".html") {
			files = append(files, path.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("Jan 2, 2006")
		},
		"formatDateTime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 3:04 PM")
		},
		"truncate": func(s string, length int) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},
		"add": func(a, b int) int {
			return a + b
		},
		"isAdmin":    isAdmin,
		"isSubAdmin": isSubAdmin,
		"isLoggedIn": isLoggedIn,
	}
}

func isAdmin(role string) bool    { return role == "Admin" }
func isSubAdmin(role string) bool { return role == "SubAdmin" }
func isLoggedIn(role string) bool { return isAdmin(role) || isSubAdmin(role) }

// Has reports whether a page template is registered.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render renders a template with the given data.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, name string, data TemplateData) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	data.CurrentYear = time.Now().Year()
	data.Version = r.version
	if data.Path == "" {
		data.Path = req.URL.Path
	}

	if r.sessionManager != nil {
		if flash := r.popString(req, sessionKeyFlash); flash != "" {
			data.Flash = flash
			data.FlashType = r.popString(req, sessionKeyFlashType)
			if data.FlashType == "" {
				data.FlashType = "info"
			}
		}
	}

	// Render to buffer first to catch errors
	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, "base", data); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(blankLinesRegex.ReplaceAll(buf.Bytes(), []byte("\n")))
	return err
}

// SetFlash sets a flash message in the session.
func (r *Renderer) SetFlash(req *http.Request, message, flashType string) {
	if r.sessionManager == nil {
		return
	}
	defer func() { _ = recover() }() // no session loaded
	r.sessionManager.Put(req.Context(), sessionKeyFlash, message)
	r.sessionManager.Put(req.Context(), sessionKeyFlashType, flashType)
}

// popString reads and removes a session value. It returns "" when the
// request carries no session data.
func (r *Renderer) popString(req *http.Request, key string) (v string) {
	defer func() {
		if recover() != nil {
			v = ""
		}
	}()
	return r.sessionManager.PopString(req.Context(), key)
}
