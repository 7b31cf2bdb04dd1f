// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"time"
)

// Job names.
const (
	JobSliderSync     = "slider-sync"
	JobEventPrune     = "event-prune"
	JobCarouselSweep  = "carousel-sweep"
	EventPruneSpec    = "@daily"
	CarouselSweepSpec = "@every 5m"
)

// SliderSyncer reloads changed slide sets into mounted carousels.
type SliderSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// CarouselSweeper unmounts carousel instances nobody has used for a while.
type CarouselSweeper interface {
	Sweep(idle time.Duration) int
}

// EventPruner removes old event log entries.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RegisterDefaultJobs adds slider syncing on syncSpec and daily pruning of
// events older than retention.
func (s *Scheduler) RegisterDefaultJobs(sliders SliderSyncer, syncSpec string, events EventPruner, retention time.Duration) error {
	err := s.AddJob(JobSliderSync, syncSpec, func(ctx context.Context) error {
		n, err := sliders.Sync(ctx)
		if n > 0 {
			s.logger.Info("sliders synced", "updated", n)
		}
		return err
	})
	if err != nil {
		return err
	}

	return s.AddJob(JobEventPrune, EventPruneSpec, func(ctx context.Context) error {
		n, err := events.DeleteOldEvents(ctx, retention)
		if n > 0 {
			s.logger.Info("old events pruned", "deleted", n, "retention", retention.String())
		}
		return err
	})
}

// RegisterCarouselSweep adds a job on spec that unmounts carousel instances
// idle for longer than idle.
func (s *Scheduler) RegisterCarouselSweep(sweeper CarouselSweeper, spec string, idle time.Duration) error {
	return s.AddJob(JobCarouselSweep, spec, func(context.Context) error {
		if n := sweeper.Sweep(idle); n > 0 {
			s.logger.Info("idle carousels unmounted", "instances", n, "idle", idle.String())
		}
		return nil
	})
}
