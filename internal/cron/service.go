package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db/models"
	"github.com/emberlane/pos-backend/pkg/logger"
	"github.com/emberlane/pos-backend/pkg/metrics"
)

type systemSource interface {
	GetSystemSettings(ctx context.Context) (*models.SystemSettings, error)
}

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	System   systemSource
	Cleanup  config.CleanupConfig
}

// Service fires the registered jobs once a day at the configured local hour.
// On startup it compares the recorded last run against the most recent due
// time and catches up synchronously if the process slept through a firing.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	system   systemSource
	cfg      config.CleanupConfig
}

// NewService builds the scheduler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.System == nil {
		return nil, fmt.Errorf("system settings source required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		system:   params.System,
		cfg:      params.Cleanup,
	}, nil
}

// Run blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if s.missedLastFiring(ctx, time.Now()) {
		s.logg.Info(ctx, "missed scheduled run detected; running catch-up cleanup")
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "catch-up run failed", err)
		}
	}

	for {
		loc := s.location(ctx)
		wait := time.Until(nextDue(time.Now(), s.cfg.Hour, loc))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "scheduler context canceled")
			return ctx.Err()
		case <-timer.C:
			if err := s.runCycle(ctx); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// RunOnce fires a single cycle immediately. Used by the on-demand cleanup
// endpoint and by the worker's catch-up path.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.runCycle(ctx)
}

func (s *Service) missedLastFiring(ctx context.Context, now time.Time) bool {
	sys, err := s.system.GetSystemSettings(ctx)
	if err != nil {
		s.logg.Error(ctx, "read last cleanup time", err)
		return false
	}
	due := mostRecentDue(now, s.cfg.Hour, s.location(ctx))
	return sys.LastCleanupAt == nil || sys.LastCleanupAt.Before(due)
}

func (s *Service) location(ctx context.Context) *time.Location {
	name := s.cfg.Timezone
	if sys, err := s.system.GetSystemSettings(ctx); err == nil && sys.Timezone != "" {
		name = sys.Timezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		s.logg.Error(ctx, "invalid cleanup timezone, using UTC", err)
		return time.UTC
	}
	return loc
}

func (s *Service) runCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another worker holds the cleanup lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release cleanup lock", relErr)
		}
	}()

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)

	if s.metrics != nil {
		s.metrics.ObserveDuration(job.Name(), duration)
	}
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		if s.metrics != nil {
			s.metrics.IncFailure(job.Name())
		}
		return
	}
	s.logg.Info(jobCtx, "job completed")
	if s.metrics != nil {
		s.metrics.IncSuccess(job.Name())
	}
}

// mostRecentDue returns the latest occurrence of the firing hour at or
// before now.
func mostRecentDue(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	due := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if due.After(local) {
		due = due.AddDate(0, 0, -1)
	}
	return due
}

// nextDue returns the next occurrence of the firing hour strictly after now.
func nextDue(now time.Time, hour int, loc *time.Location) time.Time {
	return mostRecentDue(now, hour, loc).AddDate(0, 0, 1)
}
