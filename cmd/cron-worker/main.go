package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/emberlane/pos-backend/internal/archive"
	"github.com/emberlane/pos-backend/internal/cron"
	"github.com/emberlane/pos-backend/internal/settings"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/logger"
	"github.com/emberlane/pos-backend/pkg/metrics"
	"github.com/emberlane/pos-backend/pkg/migrate"
	"github.com/emberlane/pos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	settingsRepo := settings.NewRepository(dbClient.DB())
	archiveRepo := archive.NewRepository(dbClient.DB())

	archiveService, err := archive.NewService(archiveRepo, settingsRepo, dbClient, logg, cfg.Cleanup)
	if err != nil {
		logg.Error(context.Background(), "failed to create archive service", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewCleanupJob(archiveService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("daily-cleanup"), cfg.Cleanup.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		System:   settingsRepo,
		Cleanup:  cfg.Cleanup,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.Cleanup.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"hour": cfg.Cleanup.Hour,
	})
	logg.Info(ctx, "starting cron worker")

	runErr := service.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", runErr)
	}

	if err := multierr.Combine(
		metricsServer.Close(),
		redisClient.Close(),
		dbClient.Close(),
	); err != nil {
		logg.Error(ctx, "shutdown finished with errors", err)
		os.Exit(1)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
