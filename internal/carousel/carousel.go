// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package carousel cycles through an ordered set of slides with autoplay,
// pause, manual navigation, direct selection and keyboard control.
//
// Every mutation runs under the engine lock, so timer ticks, navigation calls
// and key events are applied one at a time.
package carousel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultInterval is the autoplay interval used when none is given.
const DefaultInterval = 5000 * time.Millisecond

// State is a snapshot of an engine.
type State struct {
	Key        string `json:"key"`
	Index      int    `json:"index"`
	Length     int    `json:"length"`
	Paused     bool   `json:"paused"`
	Running    bool   `json:"running"`
	IntervalMs int64  `json:"interval_ms"`
	Current    *Slide `json:"current,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval sets the autoplay interval. Non-positive values keep
// DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithPaused sets the initial pause state.
func WithPaused(paused bool) Option {
	return func(e *Engine) { e.paused = paused }
}

// WithScheduler replaces the default TickerScheduler.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithKeyboard attaches a key event source while the engine is started.
func WithKeyboard(k Keyboard) Option {
	return func(e *Engine) { e.keyboard = k }
}

// WithOnChange registers a callback invoked after every cursor change. It
// runs outside the engine lock.
func WithOnChange(fn func(State)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is one carousel instance.
type Engine struct {
	mu       sync.Mutex
	slides   []Slide
	index    int
	paused   bool
	interval time.Duration
	key      string

	scheduler Scheduler
	keyboard  Keyboard
	onChange  func(State)
	logger    *slog.Logger

	running     bool
	task        Task
	gen         uint64
	unsubscribe func()
}

// New creates a stopped engine over a copy of slides.
func New(slides []Slide, opts ...Option) *Engine {
	e := &Engine{
		slides:   cloneSlides(slides),
		interval: DefaultInterval,
		key:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = TickerScheduler{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Start mounts the engine: autoplay is armed unless the set is empty or the
// engine is paused, and the keyboard listener is registered. Calling Start on
// a running engine does nothing.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.arm()

	if e.keyboard != nil {
		e.unsubscribe = e.keyboard.Subscribe(e.handleKey)
	}
	e.logger.Debug("carousel started", "key", e.key, "slides", len(e.slides))
}

// Close unmounts the engine, cancelling autoplay and the keyboard listener.
// It is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.disarm()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	e.logger.Debug("carousel closed", "key", e.key)
}

// arm schedules autoplay when it can run. Caller holds e.mu.
func (e *Engine) arm() {
	if !e.running || e.paused || len(e.slides) == 0 {
		return
	}
	e.gen++
	gen := e.gen
	e.task = e.scheduler.Every(e.interval, func() { e.tick(gen) })
}

// disarm cancels autoplay. Ticks already in flight from the old task are
// dropped by the generation check. Caller holds e.mu.
func (e *Engine) disarm() {
	if e.task != nil {
		e.task.Stop()
		e.task = nil
	}
	e.gen++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.paused || len(e.slides) == 0 {
		e.mu.Unlock()
		return
	}
	e.index = (e.index + 1) % len(e.slides)
	st := e.stateLocked()
	e.mu.Unlock()

	e.notify(st)
}

func (e *Engine) handleKey(k Key) {
	switch k {
	case KeyArrowLeft:
		e.Previous()
	case KeyArrowRight:
		e.Next()
	}
}

// Next advances by one slide, wrapping to the first.
func (e *Engine) Next() State {
	return e.move(func(i, n int) int { return (i + 1) % n })
}

// Previous moves back by one slide, wrapping to the last.
func (e *Engine) Previous() State {
	return e.move(func(i, n int) int { return (i - 1 + n) % n })
}

// Select jumps to index, clamped to the slide range. The autoplay phase is
// left untouched.
func (e *Engine) Select(index int) State {
	return e.move(func(_, n int) int {
		switch {
		case index < 0:
			return 0
		case index >= n:
			return n - 1
		default:
			return index
		}
	})
}

// move applies step to the cursor. Empty sets are left alone so step never
// sees n == 0.
func (e *Engine) move(step func(i, n int) int) State {
	e.mu.Lock()
	n := len(e.slides)
	if n == 0 {
		st := e.stateLocked()
		e.mu.Unlock()
		return st
	}

	prev := e.index
	e.index = step(e.index, n)
	st := e.stateLocked()
	e.mu.Unlock()

	if st.Index != prev {
		e.notify(st)
	}
	return st
}

// SetPaused suppresses or resumes autoplay. Every change of the pause state
// cancels the running task; resuming arms a new one, so the next advance
// comes one full interval after the resume.
func (e *Engine) SetPaused(paused bool) State {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused == paused {
		return e.stateLocked()
	}
	e.paused = paused
	e.disarm()
	if !paused {
		e.arm()
	}
	return e.stateLocked()
}

// SetSlides replaces the slide set. The cursor resets to the first slide,
// the engine gets a new instance key and autoplay restarts from zero.
func (e *Engine) SetSlides(slides []Slide) State {
	e.mu.Lock()
	e.slides = cloneSlides(slides)
	e.index = 0
	e.key = uuid.NewString()
	e.disarm()
	e.arm()
	st := e.stateLocked()
	e.mu.Unlock()

	e.logger.Debug("carousel slides replaced", "key", st.Key, "slides", st.Length)
	e.notify(st)
	return st
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Current returns the slide under the cursor. ok is false for an empty set.
func (e *Engine) Current() (Slide, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.slides) == 0 {
		return Slide{}, false
	}
	return e.slides[e.index], true
}

// Slides returns a copy of the slide set.
func (e *Engine) Slides() []Slide {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSlides(e.slides)
}

func (e *Engine) stateLocked() State {
	st := State{
		Key:        e.key,
		Index:      e.index,
		Length:     len(e.slides),
		Paused:     e.paused,
		Running:    e.running,
		IntervalMs: e.interval.Milliseconds(),
	}
	if len(e.slides) > 0 {
		cur := e.slides[e.index]
		st.Current = &cur
	}
	return st
}

func (e *Engine) notify(st State) {
	if e.onChange != nil {
		e.onChange(st)
	}
}
