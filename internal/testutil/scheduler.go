// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package testutil

import (
	"sync"
	"time"

	"github.com/jaalnock/dairy-project-sub000/internal/carousel"
)

// ManualScheduler is a carousel.Scheduler driven by explicit Advance calls
// instead of wall-clock time.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

// NewManualScheduler creates a ManualScheduler at time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

type manualTask struct {
	s       *ManualScheduler
	every   time.Duration
	next    time.Duration
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.stopped = true
}

// Every implements carousel.Scheduler.
func (s *ManualScheduler) Every(d time.Duration, fn func()) carousel.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &manualTask{s: s, every: d, next: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d and runs every callback that falls
// due, in time order. Callbacks run without the scheduler lock held.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d

	for {
		var due *manualTask
		for _, t := range s.tasks {
			if t.stopped || t.next > target {
				continue
			}
			if due == nil || t.next < due.next {
				due = t
			}
		}
		if due == nil {
			break
		}

		s.now = due.next
		due.next += due.every
		fn := due.fn

		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}

	s.now = target
	s.mu.Unlock()
}

// Active returns the number of tasks that have not been stopped.
func (s *ManualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Armed returns the total number of tasks ever armed.
func (s *ManualScheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
