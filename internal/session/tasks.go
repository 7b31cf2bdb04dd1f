// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Tasks tracks detached background work such as remote sign-outs. Callers
// never join individual tasks; Wait exists only for shutdown and tests.
type Tasks struct {
	mu      sync.Mutex
	running int
	idle    chan struct{} // closed when running drops to 0
	logger  *slog.Logger
}

// NewTasks creates a task tracker.
func NewTasks(logger *slog.Logger) *Tasks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tasks{logger: logger}
}

// Go runs fn in its own goroutine. A panic in fn is logged, not propagated.
func (t *Tasks) Go(name string, fn func(taskID string)) {
	id := uuid.NewString()
	t.add()
	go func() {
		defer t.done()
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("background task panicked", "task", name, "task_id", id, "panic", r)
			}
		}()
		fn(id)
	}()
}

func (t *Tasks) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running == 0 {
		t.idle = make(chan struct{})
	}
	t.running++
}

func (t *Tasks) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running--
	if t.running == 0 {
		close(t.idle)
	}
}

// Running returns the number of unfinished tasks.
func (t *Tasks) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Wait blocks until every started task finished or ctx is done. A Wait that
// gives up leaves nothing behind.
func (t *Tasks) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.running == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
