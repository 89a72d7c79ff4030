// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the chat's background maintenance jobs on cron
// schedules: message retention, audit log retention and cache statistics.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/ochat-go/internal/cache"
	"github.com/olegiv/ochat-go/internal/model"
)

// Job names.
const (
	JobPruneMessages = "prune_messages"
	JobPruneEvents   = "prune_events"
	JobCacheStats    = "cache_stats"
)

// jobTimeout bounds a single job run.
const jobTimeout = 2 * time.Minute

// MessagePruner deletes messages older than a cutoff.
type MessagePruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// EventPruner deletes audit events older than an age.
type EventPruner interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int, error)
}

// CacheStatter reports cache statistics.
type CacheStatter interface {
	Stats() cache.Stats
	Info() cache.Info
}

type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
}

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	now    func() time.Time

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
		jobs:   make(map[string]*registeredJob),
	}
}

// AddJob registers fn under name on a cron schedule (standard five-field
// expression or descriptor such as "@hourly" or "@every 5m").
func (s *Scheduler) AddJob(name, description, schedule string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job already registered: %s", name)
	}

	job := &registeredJob{name: name, description: description, schedule: schedule, run: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", schedule, name, err)
	}
	job.entryID = id
	s.jobs[name] = job

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish and stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a job immediately and returns its error.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("job not found: %s", name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return s.execute(job)
}

func (s *Scheduler) execute(job *registeredJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := s.now()
	if err := job.run(ctx); err != nil {
		s.logger.Error("scheduled job failed", "name", job.name, "error", err)
		return err
	}
	s.logger.Debug("scheduled job finished", "name", job.name, "duration", s.now().Sub(start))
	return nil
}

// Config selects which maintenance jobs run.
type Config struct {
	// MessageRetention enables the prune job when positive.
	MessageRetention time.Duration
	// EventRetention enables audit log pruning when positive.
	EventRetention time.Duration
	// PruneEvery is the period of both prune jobs.
	PruneEvery time.Duration
}

// RegisterMaintenance adds the chat's maintenance jobs.
func (s *Scheduler) RegisterMaintenance(cfg Config, messages MessagePruner, events EventPruner, stats CacheStatter) error {
	every := cfg.PruneEvery
	if every <= 0 {
		every = 5 * time.Minute
	}
	pruneSchedule := "@every " + every.String()

	if cfg.MessageRetention > 0 && messages != nil {
		err := s.AddJob(JobPruneMessages, "Delete messages older than the retention age", pruneSchedule,
			func(ctx context.Context) error {
				cutoff := s.now().Add(-cfg.MessageRetention)
				n, err := messages.PruneOlderThan(ctx, cutoff)
				if err != nil {
					return err
				}
				if n > 0 {
					s.logger.Info("pruned messages", "category", model.EventCategoryMessage, "count", n)
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	if cfg.EventRetention > 0 && events != nil {
		err := s.AddJob(JobPruneEvents, "Delete audit events older than the retention age", pruneSchedule,
			func(ctx context.Context) error {
				n, err := events.DeleteOldEvents(ctx, cfg.EventRetention)
				if err != nil {
					return err
				}
				if n > 0 {
					s.logger.Info("pruned events", "count", n)
				}
				return nil
			})
		if err != nil {
			return err
		}
	}

	if stats != nil {
		err := s.AddJob(JobCacheStats, "Log cache statistics", "@hourly",
			func(context.Context) error {
				st := stats.Stats()
				s.logger.Info("cache stats",
					"category", model.EventCategoryCache,
					"backend", stats.Info().Backend,
					"hits", st.Hits,
					"misses", st.Misses,
					"items", st.Items,
					"hit_rate", fmt.Sprintf("%.1f", st.HitRate),
				)
				return nil
			})
		if err != nil {
			return err
		}
	}

	return nil
}
