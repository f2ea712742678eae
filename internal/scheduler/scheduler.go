// Package scheduler owns the recurring pipeline timer.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one pipeline invocation. trigger is "startup" or "schedule".
type Job func(ctx context.Context, trigger string)

// Service wraps a single cron runner with explicit lifecycle calls.
// There is no ambient scheduler state: construct, Start, Stop.
type Service struct {
	cron *cron.Cron
	spec string
	job  Job
	log  *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewService creates a scheduler for the given cron spec, evaluated in UTC.
func NewService(spec string, job Job, cronLogger cron.Logger, log *slog.Logger) (*Service, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
	)

	s := &Service{
		cron: c,
		spec: spec,
		job:  job,
		log:  log,
	}

	// Validate the spec up front so a bad config fails at startup, not at
	// the first firing.
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return s, nil
}

// Start triggers one immediate run and begins the recurring schedule.
// The immediate run and the first scheduled firing are not mutually
// excluded; overlap is an accepted risk at a 6-hour cadence.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	_, err := s.cron.AddFunc(s.spec, func() {
		s.job(ctx, "schedule")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline: %w", err)
	}

	s.cron.Start()
	s.started = true
	s.log.Info("Scheduler started", "spec", s.spec)

	go s.job(ctx, "startup")

	return nil
}

// Stop halts future firings. In-flight runs are not awaited; process
// shutdown is immediate by design.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	s.log.Info("Scheduler stopped")
}

// NextRun returns the next scheduled firing time, zero if not started.
func (s *Service) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
