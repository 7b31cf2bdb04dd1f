// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package carousel

import (
	"sync"
	"time"
)

// Task is a scheduled repeating callback.
type Task interface {
	// Stop cancels the task. It does not wait for a callback in flight and
	// is safe to call more than once.
	Stop()
}

// Scheduler arms repeating tasks.
type Scheduler interface {
	// Every calls fn every d until the returned Task is stopped. The first
	// call happens one full interval after arming.
	Every(d time.Duration, fn func()) Task
}

// TickerScheduler runs tasks on time.Ticker goroutines.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
