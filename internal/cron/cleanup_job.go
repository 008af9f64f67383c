package cron

import (
	"context"
	"fmt"

	"github.com/emberlane/pos-backend/internal/archive"
	"github.com/emberlane/pos-backend/pkg/logger"
)

const cleanupJobName = "daily_cleanup"

type cleanupRunner interface {
	DailyCleanup(ctx context.Context) (archive.Result, error)
}

// CleanupJob archives finished orders and recycles their numbers.
type CleanupJob struct {
	archiver cleanupRunner
	logg     *logger.Logger
}

// NewCleanupJob builds the daily cleanup job.
func NewCleanupJob(archiver cleanupRunner, logg *logger.Logger) (*CleanupJob, error) {
	if archiver == nil {
		return nil, fmt.Errorf("archive service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CleanupJob{archiver: archiver, logg: logg}, nil
}

// Name identifies the job in logs and metrics.
func (j *CleanupJob) Name() string { return cleanupJobName }

// Run performs one cleanup pass.
func (j *CleanupJob) Run(ctx context.Context) error {
	result, err := j.archiver.DailyCleanup(ctx)
	if err != nil {
		return fmt.Errorf("daily cleanup: %w", err)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"archived":   result.Archived,
		"renumbered": result.Renumbered,
	})
	j.logg.Info(ctx, "cleanup pass finished")
	return nil
}
