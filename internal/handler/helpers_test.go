// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/jaalnock/dairy-project-sub000/internal/backend"
	"github.com/jaalnock/dairy-project-sub000/internal/carousel"
	"github.com/jaalnock/dairy-project-sub000/internal/middleware"
	"github.com/jaalnock/dairy-project-sub000/internal/render"
	"github.com/jaalnock/dairy-project-sub000/internal/service"
	"github.com/jaalnock/dairy-project-sub000/internal/session"
	"github.com/jaalnock/dairy-project-sub000/internal/testutil"
	"github.com/jaalnock/dairy-project-sub000/web"
)

// Credentials accepted by fakeAuth.
const (
	testUsername = "ravi"
	testPassword = "milk-and-honey"
)

// testBackendCredential is the backend credential fakeAuth issues.
const testBackendCredential = "backend-token-1"

// fakeAuth accepts testUsername/testPassword for both roles unless err is set.
type fakeAuth struct {
	mu    sync.Mutex
	err   error
	calls []session.Role
}

func (f *fakeAuth) Login(_ context.Context, role session.Role, creds backend.Credentials) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, role)
	if f.err != nil {
		return "", f.err
	}
	if creds.Username != testUsername || creds.Password != testPassword {
		return "", backend.ErrUnauthorized
	}
	return testBackendCredential, nil
}

func (f *fakeAuth) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeAuth) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recordingSignOuter records remote sign-out calls.
type recordingSignOuter struct {
	mu          sync.Mutex
	roles       []session.Role
	credentials []string
}

func (r *recordingSignOuter) SignOut(_ context.Context, role session.Role, credential string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, role)
	r.credentials = append(r.credentials, credential)
	return nil
}

func (r *recordingSignOuter) Credentials() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.credentials...)
}

func (r *recordingSignOuter) Roles() []session.Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.Role(nil), r.roles...)
}

// testEnv is a portal wired to in-process fakes and served by httptest.
type testEnv struct {
	db        *sql.DB
	sm        *scs.SessionManager
	renderer  *render.Renderer
	sliders   *service.SliderService
	sched     *testutil.ManualScheduler
	events    *service.EventService
	auth      *fakeAuth
	signOuter *recordingSignOuter
	tasks     *session.Tasks
	lp        *middleware.LoginProtection
	server    *httptest.Server
}

type envOption func(*middleware.LoginProtectionConfig)

func withMaxFailedAttempts(n int) envOption {
	return func(c *middleware.LoginProtectionConfig) { c.MaxFailedAttempts = n }
}

func newTestRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("templates fs: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templatesFS, SessionManager: sm, Version: "test"})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return renderer
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	// Start without the home slider the migrations ship.
	if _, err := db.Exec("DELETE FROM sliders"); err != nil {
		t.Fatalf("clearing sliders: %v", err)
	}

	lpCfg := middleware.DefaultLoginProtectionConfig()
	lpCfg.IPRateLimit = 1000
	lpCfg.IPBurst = 1000
	for _, opt := range opts {
		opt(&lpCfg)
	}

	env := &testEnv{
		db:        db,
		sm:        session.NewManager(db, true),
		sched:     testutil.NewManualScheduler(),
		events:    service.NewEventService(db),
		auth:      &fakeAuth{},
		signOuter: &recordingSignOuter{},
		tasks:     session.NewTasks(testutil.TestLoggerSilent()),
		lp:        middleware.NewLoginProtection(lpCfg),
	}
	t.Cleanup(env.lp.Stop)

	env.sliders = service.NewSliderService(db,
		service.WithCarouselInterval(time.Second),
		service.WithCarouselScheduler(env.sched),
		service.WithSliderLogger(testutil.TestLoggerSilent()),
	)
	t.Cleanup(env.sliders.Close)

	env.renderer = newTestRenderer(t, env.sm)
	env.server = httptest.NewServer(env.router())
	t.Cleanup(env.server.Close)
	return env
}

// router mirrors the production wiring without CSRF and request logging.
func (e *testEnv) router() http.Handler {
	r := chi.NewRouter()
	r.Use(e.sm.LoadAndSave)
	r.Use(middleware.LoadSession(e.sm,
		session.WithSignOuter(e.signOuter),
		session.WithTasks(e.tasks),
		session.WithLogger(testutil.TestLoggerSilent()),
	))

	pages := NewPageHandler(e.renderer, e.sliders, e.sm)
	auth := NewAuthHandler(pages, e.renderer, e.sm, e.auth, e.events, e.lp)
	health := NewHealthHandler(e.db, nil, nil, "test")

	r.Get(RouteHealth, health.Health)
	r.Get(RouteRoot, pages.Home)
	r.Get(RouteProducts, pages.Products)
	r.Get(RouteAbout, pages.About)
	r.Get(RouteContact, pages.Contact)
	r.Get(RouteLogin, auth.LoginForm)
	r.Post(RouteLogin, auth.Login)
	r.Post(RouteLogout, auth.Logout)

	adminSliders := NewAdminSliderHandler(e.renderer, e.sliders, e.events)
	r.Route(RouteAdmin, func(r chi.Router) {
		r.Use(middleware.RequireRole(session.RoleAdmin))
		r.Get(RouteRoot, pages.AdminPage)
		r.Get(RouteBranches, pages.AdminPage)
		r.Get(RouteSubAdmins, pages.AdminPage)
		r.Get(RouteProducts, pages.AdminPage)
		r.Route(RouteSliders, adminSliders.Routes)
	})
	r.Route(RouteSubAdmin, func(r chi.Router) {
		r.Use(middleware.RequireRole(session.RoleSubAdmin))
		r.Get(RouteRoot, pages.SubAdminPage)
		r.Get(RouteTransactions, pages.SubAdminPage)
		r.Get(RouteFarmers, pages.SubAdminPage)
		r.Get(RouteLoans, pages.SubAdminPage)
	})
	r.Route(RouteAPISliders, NewSliderAPIHandler(e.sliders, e.sm).Routes)
	return r
}

// client returns an HTTP client with its own cookie jar that does not
// follow redirects.
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type response struct {
	Status   int
	Location string
	Header   http.Header
	Body     string
}

func (e *testEnv) do(t *testing.T, c *http.Client, method, path, contentType, body string, header ...string) response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return response{
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
		Header:   resp.Header,
		Body:     string(b),
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string, header ...string) response {
	t.Helper()
	return e.do(t, c, http.MethodGet, path, "", "", header...)
}

func (e *testEnv) postForm(t *testing.T, c *http.Client, path string, form url.Values) response {
	t.Helper()
	return e.do(t, c, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
}

func (e *testEnv) sendJSON(t *testing.T, c *http.Client, method, path string, v any) response {
	t.Helper()

	body := ""
	if v != nil {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = string(b)
	}
	return e.do(t, c, method, path, "application/json", body, "Accept", "application/json")
}

// login posts the login form and fails the test unless it lands on the
// role's home.
func (e *testEnv) login(t *testing.T, c *http.Client, role session.Role) {
	t.Helper()

	resp := e.postForm(t, c, RouteLogin, loginForm(role.String(), testUsername, testPassword))
	if resp.Status != http.StatusSeeOther || resp.Location != role.HomePath() {
		t.Fatalf("login as %s: status %d location %q", role, resp.Status, resp.Location)
	}
}

func loginForm(role, username, password string) url.Values {
	return url.Values{
		formRole:     {role},
		formUsername: {username},
		formPassword: {password},
	}
}

// decodeBody unmarshals a JSON response body.
func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	return m
}

// sliderState extracts the "slider" object of a carousel API response.
func sliderState(t *testing.T, body string) map[string]any {
	t.Helper()

	m := decodeBody(t, body)
	s, ok := m["slider"].(map[string]any)
	if !ok {
		t.Fatalf("response has no slider: %s", body)
	}
	return s
}

// seedSlider creates a slider with n slides.
func (e *testEnv) seedSlider(t *testing.T, name string, n int) string {
	t.Helper()

	ctx := context.Background()
	slider, err := e.sliders.Create(ctx, name)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	slides := make([]carousel.Slide, n)
	for i := range slides {
		slides[i] = carousel.Slide{
			ImageRef:    "/img/" + slider.Slug + "-" + string(rune('a'+i)) + ".jpg",
			Title:       "Slide " + string(rune('A'+i)),
			Description: "About **slide** " + string(rune('A'+i)),
		}
	}
	if _, err := e.sliders.Replace(ctx, slider.Slug, slides); err != nil {
		t.Fatalf("Replace(%q): %v", slider.Slug, err)
	}
	return slider.Slug
}
