package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/emberlane/pos-backend/api/routes"
	"github.com/emberlane/pos-backend/internal/archive"
	"github.com/emberlane/pos-backend/internal/broadcast"
	"github.com/emberlane/pos-backend/internal/catalog"
	"github.com/emberlane/pos-backend/internal/network"
	"github.com/emberlane/pos-backend/internal/ordernum"
	"github.com/emberlane/pos-backend/internal/orders"
	"github.com/emberlane/pos-backend/internal/payments"
	"github.com/emberlane/pos-backend/internal/printer"
	"github.com/emberlane/pos-backend/internal/settings"
	"github.com/emberlane/pos-backend/internal/staff"
	"github.com/emberlane/pos-backend/pkg/config"
	"github.com/emberlane/pos-backend/pkg/db"
	"github.com/emberlane/pos-backend/pkg/logger"
	"github.com/emberlane/pos-backend/pkg/metrics"
	"github.com/emberlane/pos-backend/pkg/migrate"
	"github.com/emberlane/pos-backend/pkg/redis"
	"github.com/emberlane/pos-backend/pkg/square"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	hub, err := broadcast.NewHub(cfg.Broadcast, logg, metrics.NewBroadcastMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		logg.Error(context.Background(), "failed to create broadcast hub", err)
		os.Exit(1)
	}

	sender, err := printer.NewSender(cfg.Printer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create printer sender", err)
		os.Exit(1)
	}

	gate, err := network.NewGate(cfg.Network, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create network gate", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Cleanup.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid timezone, using UTC", err)
		loc = time.UTC
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	numbersRepo := ordernum.NewRepository(dbClient.DB())
	settingsRepo := settings.NewRepository(dbClient.DB())
	staffRepo := staff.NewRepository(dbClient.DB())
	archiveRepo := archive.NewRepository(dbClient.DB())

	settingsService, err := settings.NewService(settingsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	repricer, err := orders.NewRepricer(catalogRepo, settingsService, cfg.Pricing.TaxRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create repricer", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, catalogRepo, numbersRepo, repricer, dbClient, hub, sender, loc)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersRepo, repricer, dbClient, squareClient, gate, redisClient, hub, sender, cfg.Payment)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	staffService, err := staff.NewService(staffRepo, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff service", err)
		os.Exit(1)
	}

	archiveService, err := archive.NewService(archiveRepo, settingsRepo, dbClient, logg, cfg.Cleanup)
	if err != nil {
		logg.Error(context.Background(), "failed to create archive service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			hub,
			staffService,
			catalogRepo,
			ordersService,
			paymentsService,
			settingsService,
			archiveService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	); err != nil {
		logg.Error(ctx, "shutdown finished with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down cleanly")
}
