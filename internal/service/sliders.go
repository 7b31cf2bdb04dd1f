// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jaalnock/dairy-project-sub000/internal/cache"
	"github.com/jaalnock/dairy-project-sub000/internal/carousel"
	"github.com/jaalnock/dairy-project-sub000/internal/store"
	"github.com/jaalnock/dairy-project-sub000/internal/util"
)

// Slider errors.
var (
	ErrSliderNotFound = errors.New("slider not found")
	ErrSliderExists   = errors.New("slider already exists")
	ErrInvalidSlider  = errors.New("invalid slider name")
	ErrServiceClosed  = errors.New("slider service closed")
	ErrTooManySlides  = errors.New("too many slides")
)

// MaxSlides caps the number of slides a slider may hold.
const MaxSlides = 50

// DefaultMaxInstances caps the mounted carousel instances across all
// sliders and clients.
const DefaultMaxInstances = 10000

// Instance is one client's mounted carousel of a slider. It owns the
// cursor, pause flag, autoplay task and key bus of that client only.
type Instance struct {
	Slug   string
	Client string
	Engine *carousel.Engine
	Keys   *carousel.KeyBus

	lastUsed time.Time // guarded by SliderService.mu
}

// sliderEntry is a loaded slider, the revision its slides came from and
// the instances mounted from it.
type sliderEntry struct {
	sliderID  int64
	name      string
	revision  int64
	slides    []carousel.Slide
	instances map[string]*Instance
}

// SliderView is the public representation of a slider's carousel.
type SliderView struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	carousel.State
	DescriptionHTML template.HTML `json:"description_html,omitempty"`
}

// SliderOption configures a SliderService.
type SliderOption func(*SliderService)

// WithCarouselInterval sets the autoplay interval of new engines.
func WithCarouselInterval(d time.Duration) SliderOption {
	return func(s *SliderService) { s.interval = d }
}

// WithCarouselScheduler sets the scheduler of new engines.
func WithCarouselScheduler(sched carousel.Scheduler) SliderOption {
	return func(s *SliderService) { s.scheduler = sched }
}

// WithMaxInstances caps the mounted instances. When the cap is reached the
// least recently used instance is unmounted. Non-positive values keep
// DefaultMaxInstances.
func WithMaxInstances(n int) SliderOption {
	return func(s *SliderService) {
		if n > 0 {
			s.maxInstances = n
		}
	}
}

// WithDescriptionCache caches rendered slide descriptions in c.
func WithDescriptionCache(c cache.Cache, ttl time.Duration) SliderOption {
	return func(s *SliderService) {
		s.descriptions = c
		s.descriptionTTL = ttl
	}
}

// WithSliderLogger sets the logger.
func WithSliderLogger(l *slog.Logger) SliderOption {
	return func(s *SliderService) { s.logger = l }
}

// SliderService mounts one carousel instance per client and slider. Slide
// sets are loaded once per slider and fanned out to every instance by Sync
// and Replace.
type SliderService struct {
	db      *sql.DB
	queries *store.Queries

	interval     time.Duration
	scheduler    carousel.Scheduler
	maxInstances int
	logger       *slog.Logger
	now          func() time.Time

	descriptions   cache.Cache
	descriptionTTL time.Duration

	mu        sync.Mutex
	sliders   map[string]*sliderEntry
	instances int
	closed    bool
}

// NewSliderService creates a SliderService.
func NewSliderService(db *sql.DB, opts ...SliderOption) *SliderService {
	s := &SliderService{
		db:           db,
		queries:      store.New(db),
		interval:     carousel.DefaultInterval,
		maxInstances: DefaultMaxInstances,
		now:          time.Now,
		sliders:      make(map[string]*sliderEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// List returns all stored sliders.
func (s *SliderService) List(ctx context.Context) ([]store.Slider, error) {
	return s.queries.ListSliders(ctx)
}

// Create stores an empty slider whose slug is derived from name.
func (s *SliderService) Create(ctx context.Context, name string) (store.Slider, error) {
	name = sanitizeText(name)
	slug := util.Slugify(name)
	if name == "" || !util.IsValidSlug(slug) {
		return store.Slider{}, ErrInvalidSlider
	}

	slider, err := s.queries.CreateSlider(ctx, store.CreateSliderParams{
		Slug:      slug,
		Name:      name,
		CreatedAt: time.Now(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.Slider{}, ErrSliderExists
		}
		return store.Slider{}, fmt.Errorf("creating slider: %w", err)
	}

	s.logger.Info("slider created", "category", "slider", "slug", slug)
	return slider, nil
}

// Delete removes a slider and unmounts all of its instances.
func (s *SliderService) Delete(ctx context.Context, slug string) error {
	slider, err := s.getSlider(ctx, slug)
	if err != nil {
		return err
	}
	if err := store.DeleteSlider(ctx, s.db, slider.ID); err != nil {
		return fmt.Errorf("deleting slider: %w", err)
	}

	s.unmountSlider(slug)
	s.logger.Info("slider deleted", "category", "slider", "slug", slug)
	return nil
}

// Mount returns the instance of slug belonging to client, mounting it on
// first use. Every call marks the instance as used for Sweep.
func (s *SliderService) Mount(ctx context.Context, slug, client string) (*Instance, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	if entry, ok := s.sliders[slug]; ok {
		inst, evicted := s.mountLocked(entry, slug, client)
		s.mu.Unlock()
		closeInstances(evicted)
		return inst, nil
	}
	s.mu.Unlock()

	slider, slides, err := s.load(ctx, slug)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServiceClosed
	}
	// Another request may have loaded the slider meanwhile.
	entry, ok := s.sliders[slug]
	if !ok {
		entry = &sliderEntry{
			sliderID:  slider.ID,
			name:      slider.Name,
			revision:  slider.Revision,
			slides:    slides,
			instances: make(map[string]*Instance),
		}
		s.sliders[slug] = entry
	}
	inst, evicted := s.mountLocked(entry, slug, client)
	s.mu.Unlock()

	closeInstances(evicted)
	return inst, nil
}

// mountLocked returns the client's instance of entry, starting a new one
// when needed. Instances evicted to stay under the cap are returned for the
// caller to close after releasing s.mu.
func (s *SliderService) mountLocked(entry *sliderEntry, slug, client string) (*Instance, []*Instance) {
	now := s.now()
	if inst, ok := entry.instances[client]; ok {
		inst.lastUsed = now
		return inst, nil
	}

	var evicted []*Instance
	for s.instances >= s.maxInstances {
		oldest := s.oldestLocked()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest)
		evicted = append(evicted, oldest)
	}

	keys := carousel.NewKeyBus()
	opts := []carousel.Option{
		carousel.WithInterval(s.interval),
		carousel.WithKeyboard(keys),
		carousel.WithLogger(s.logger.With("slider", slug)),
	}
	if s.scheduler != nil {
		opts = append(opts, carousel.WithScheduler(s.scheduler))
	}
	engine := carousel.New(entry.slides, opts...)
	engine.Start()

	inst := &Instance{
		Slug:     slug,
		Client:   client,
		Engine:   engine,
		Keys:     keys,
		lastUsed: now,
	}
	entry.instances[client] = inst
	s.instances++
	return inst, evicted
}

func (s *SliderService) oldestLocked() *Instance {
	var oldest *Instance
	for _, entry := range s.sliders {
		for _, inst := range entry.instances {
			if oldest == nil || inst.lastUsed.Before(oldest.lastUsed) {
				oldest = inst
			}
		}
	}
	return oldest
}

// removeLocked detaches inst from its slider without closing it.
func (s *SliderService) removeLocked(inst *Instance) {
	entry, ok := s.sliders[inst.Slug]
	if !ok || entry.instances[inst.Client] != inst {
		return
	}
	delete(entry.instances, inst.Client)
	s.instances--
}

func closeInstances(instances []*Instance) {
	for _, inst := range instances {
		inst.Engine.Close()
	}
}

// View returns the state of client's instance of slug with the current
// slide's description rendered to HTML.
func (s *SliderService) View(ctx context.Context, slug, client string) (SliderView, error) {
	inst, err := s.Mount(ctx, slug, client)
	if err != nil {
		return SliderView{}, err
	}
	name, err := s.Name(ctx, slug)
	if err != nil {
		return SliderView{}, err
	}
	return s.ViewOf(ctx, slug, name, inst.Engine.State()), nil
}

// NewSliderView builds a SliderView from an engine state.
func NewSliderView(slug, name string, st carousel.State) SliderView {
	v := SliderView{Slug: slug, Name: name, State: st}
	if st.Current != nil {
		v.DescriptionHTML = RenderDescription(st.Current.Description)
	}
	return v
}

// ViewOf is NewSliderView with the description served from the
// description cache when one is configured.
func (s *SliderService) ViewOf(ctx context.Context, slug, name string, st carousel.State) SliderView {
	v := SliderView{Slug: slug, Name: name, State: st}
	if st.Current != nil {
		v.DescriptionHTML = s.describe(ctx, st.Current.Description)
	}
	return v
}

// Indices returns the slide positions of the view, for indicator links.
func (v SliderView) Indices() []int {
	idx := make([]int, v.Length)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Name returns the display name of a slider.
func (s *SliderService) Name(ctx context.Context, slug string) (string, error) {
	s.mu.Lock()
	if entry, ok := s.sliders[slug]; ok {
		name := entry.name
		s.mu.Unlock()
		return name, nil
	}
	s.mu.Unlock()

	slider, err := s.getSlider(ctx, slug)
	if err != nil {
		return "", err
	}
	return slider.Name, nil
}

func (s *SliderService) getSlider(ctx context.Context, slug string) (store.Slider, error) {
	slider, err := s.queries.GetSliderBySlug(ctx, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Slider{}, ErrSliderNotFound
	}
	if err != nil {
		return store.Slider{}, fmt.Errorf("loading slider %q: %w", slug, err)
	}
	return slider, nil
}

func (s *SliderService) load(ctx context.Context, slug string) (store.Slider, []carousel.Slide, error) {
	slider, err := s.getSlider(ctx, slug)
	if err != nil {
		return store.Slider{}, nil, err
	}

	rows, err := s.queries.ListSlidesBySlider(ctx, slider.ID)
	if err != nil {
		return store.Slider{}, nil, fmt.Errorf("loading slides of %q: %w", slug, err)
	}

	slides := make([]carousel.Slide, 0, len(rows))
	for _, r := range rows {
		slides = append(slides, carousel.Slide{
			ImageRef:    r.ImageRef,
			Title:       r.Title,
			Description: r.Description,
		})
	}
	return slider, slides, nil
}

// Replace stores a new slide set for slug and restarts every mounted
// instance of it. Text fields are stripped of markup before storage. The
// returned state is the one a freshly mounted instance starts from.
func (s *SliderService) Replace(ctx context.Context, slug string, slides []carousel.Slide) (carousel.State, error) {
	if len(slides) > MaxSlides {
		return carousel.State{}, fmt.Errorf("%w: at most %d allowed, got %d", ErrTooManySlides, MaxSlides, len(slides))
	}

	slider, err := s.getSlider(ctx, slug)
	if err != nil {
		return carousel.State{}, err
	}

	inputs := make([]store.SlideInput, 0, len(slides))
	clean := make([]carousel.Slide, 0, len(slides))
	for _, sl := range slides {
		in := store.SlideInput{
			ImageRef:    sanitizeText(sl.ImageRef),
			Title:       sanitizeText(sl.Title),
			Description: sanitizeText(sl.Description),
		}
		inputs = append(inputs, in)
		clean = append(clean, carousel.Slide(in))
	}

	updated, err := store.ReplaceSlides(ctx, s.db, slider.ID, inputs, time.Now())
	if errors.Is(err, sql.ErrNoRows) {
		return carousel.State{}, ErrSliderNotFound
	}
	if err != nil {
		return carousel.State{}, fmt.Errorf("replacing slides of %q: %w", slug, err)
	}

	s.logger.Info("slider slides replaced", "category", "slider", "slug", slug, "slides", len(clean))

	instances := s.setSlides(slug, updated.Revision, "", clean)
	for _, inst := range instances {
		inst.Engine.SetSlides(clean)
	}
	return carousel.New(clean, carousel.WithInterval(s.interval)).State(), nil
}

// setSlides records a new slide set for a loaded slider and returns the
// instances that must switch to it. An empty name keeps the current one.
func (s *SliderService) setSlides(slug string, revision int64, name string, slides []carousel.Slide) []*Instance {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sliders[slug]
	if !ok {
		return nil
	}
	entry.revision = revision
	entry.slides = slides
	if name != "" {
		entry.name = name
	}

	instances := make([]*Instance, 0, len(entry.instances))
	for _, inst := range entry.instances {
		instances = append(instances, inst)
	}
	return instances
}

// Sync reloads every loaded slider whose stored revision changed, fanning
// the new slide set out to all of its instances, and unmounts sliders that
// no longer exist. It returns the number of instances that were given a new
// slide set.
func (s *SliderService) Sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	revisions := make(map[string]int64, len(s.sliders))
	for slug, entry := range s.sliders {
		revisions[slug] = entry.revision
	}
	s.mu.Unlock()

	updated := 0
	var errs []error
	for slug, rev := range revisions {
		slider, slides, err := s.load(ctx, slug)
		if errors.Is(err, ErrSliderNotFound) {
			s.unmountSlider(slug)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if slider.Revision == rev {
			continue
		}

		instances := s.setSlides(slug, slider.Revision, slider.Name, slides)
		for _, inst := range instances {
			inst.Engine.SetSlides(slides)
		}
		updated += len(instances)
		s.logger.Debug("slider synced", "slug", slug, "revision", slider.Revision, "instances", len(instances))
	}

	return updated, errors.Join(errs...)
}

// Unmount closes client's instance of slug. It reports whether one was
// mounted.
func (s *SliderService) Unmount(slug, client string) bool {
	s.mu.Lock()
	var inst *Instance
	if entry, ok := s.sliders[slug]; ok {
		inst = entry.instances[client]
	}
	if inst != nil {
		s.removeLocked(inst)
	}
	s.mu.Unlock()

	if inst == nil {
		return false
	}
	inst.Engine.Close()
	return true
}

// Sweep unmounts instances not used for idle and forgets sliders left
// without instances. It returns the number of instances unmounted.
func (s *SliderService) Sweep(idle time.Duration) int {
	cutoff := s.now().Add(-idle)

	s.mu.Lock()
	var stale []*Instance
	for slug, entry := range s.sliders {
		for client, inst := range entry.instances {
			if !inst.lastUsed.After(cutoff) {
				delete(entry.instances, client)
				s.instances--
				stale = append(stale, inst)
			}
		}
		if len(entry.instances) == 0 {
			delete(s.sliders, slug)
		}
	}
	s.mu.Unlock()

	closeInstances(stale)
	return len(stale)
}

func (s *SliderService) unmountSlider(slug string) {
	s.mu.Lock()
	entry := s.sliders[slug]
	delete(s.sliders, slug)
	var instances []*Instance
	if entry != nil {
		for _, inst := range entry.instances {
			instances = append(instances, inst)
		}
		s.instances -= len(instances)
	}
	s.mu.Unlock()

	closeInstances(instances)
	if len(instances) > 0 {
		s.logger.Info("slider unmounted", "category", "slider", "slug", slug, "instances", len(instances))
	}
}

// Mounted returns the sorted slugs of sliders with at least one mounted
// instance.
func (s *SliderService) Mounted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	slugs := make([]string, 0, len(s.sliders))
	for slug, entry := range s.sliders {
		if len(entry.instances) > 0 {
			slugs = append(slugs, slug)
		}
	}
	slices.Sort(slugs)
	return slugs
}

// Instances returns the number of mounted instances of slug.
func (s *SliderService) Instances(slug string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sliders[slug]; ok {
		return len(entry.instances)
	}
	return 0
}

// Close unmounts every instance. Later mounts return ErrServiceClosed.
func (s *SliderService) Close() {
	s.mu.Lock()
	s.closed = true
	var instances []*Instance
	for _, entry := range s.sliders {
		for _, inst := range entry.instances {
			instances = append(instances, inst)
		}
	}
	s.sliders = make(map[string]*sliderEntry)
	s.instances = 0
	s.mu.Unlock()

	closeInstances(instances)
}
