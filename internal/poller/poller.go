// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package poller drives the per-session refresh cycle. Each connected
// session owns a Loop that renders once on start and then again on every
// tick, pulling roster and messages through the cache. Other sessions'
// writes become visible only through these periodic re-reads.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/ochat-go/internal/model"
)

// DefaultInterval is the re-render period.
const DefaultInterval = 30 * time.Second

// Snapshot is everything one render shows.
type Snapshot struct {
	Viewer     model.Session       `json:"viewer"`
	Roster     []model.RosterEntry `json:"roster"`
	Messages   []model.Message     `json:"messages"`
	RenderedAt time.Time           `json:"rendered_at"`
	// Errors lists the parts that could not be read. Those parts are empty
	// rather than stale.
	Errors []string `json:"errors,omitempty"`
}

// Degraded reports whether part of the snapshot failed to load.
func (s Snapshot) Degraded() bool {
	return len(s.Errors) > 0
}

// Source produces snapshots for a viewer.
type Source interface {
	Snapshot(ctx context.Context, viewer model.Session) Snapshot
}

// RenderFunc draws a snapshot. An error stops the loop.
type RenderFunc func(ctx context.Context, snap Snapshot) error

// Loop re-renders one session on a fixed interval.
type Loop struct {
	source   Source
	viewer   model.Session
	interval time.Duration
	render   RenderFunc
	refresh  chan struct{}
	now      func() time.Time
}

// NewLoop creates a loop for viewer. A non-positive interval uses DefaultInterval.
func NewLoop(source Source, viewer model.Session, interval time.Duration, render RenderFunc) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		source:   source,
		viewer:   viewer,
		interval: interval,
		render:   render,
		refresh:  make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Viewer returns the session the loop renders for.
func (l *Loop) Viewer() model.Session {
	return l.viewer
}

// Refresh requests an immediate re-render. Requests made while one is
// already pending are merged.
func (l *Loop) Refresh() {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
}

// Run renders immediately, then on every tick or Refresh, until ctx is done
// or render fails.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.renderOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-l.refresh:
			// Restart the period so a forced render is not followed by an
			// immediate tick.
			ticker.Reset(l.interval)
		}
		if err := l.renderOnce(ctx); err != nil {
			return err
		}
	}
}

func (l *Loop) renderOnce(ctx context.Context) error {
	snap := l.source.Snapshot(ctx, l.viewer)
	snap.Viewer = l.viewer
	snap.RenderedAt = l.now().UTC()
	if snap.Degraded() {
		slog.Debug("rendering degraded snapshot", "username", l.viewer.Username, "errors", snap.Errors)
	}
	return l.render(ctx, snap)
}
