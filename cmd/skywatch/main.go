package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/skywatchapp/skywatch/internal/api/http"
	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/internal/atmosphere"
	"github.com/skywatchapp/skywatch/internal/config"
	"github.com/skywatchapp/skywatch/internal/history"
	"github.com/skywatchapp/skywatch/internal/patterns"
	"github.com/skywatchapp/skywatch/internal/persist"
	"github.com/skywatchapp/skywatch/internal/scheduler"
	"github.com/skywatchapp/skywatch/internal/tracker"
	"github.com/skywatchapp/skywatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// Snapshot persistence shared by all stores.
	snaps, err := persist.Open(cfg.SnapshotPath)
	if err != nil {
		zlog.Fatal("failed to open snapshot store", logger.Error(err))
	}
	defer snaps.Close()

	oracle := astro.NewSunCalcOracle()
	hist := history.NewStore(oracle, snaps, zlog.Named("history"))
	atmoLog := atmosphere.NewHistoryLog(cfg.AtmosphereRetention, snaps, zlog.Named("atmosphere"))
	repo := patterns.NewRepository(snaps, zlog.Named("patterns"))

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := atmosphere.NewOpenMeteoProvider(httpClient)

	service := tracker.New(tracker.Config{
		History:       hist,
		AtmosphereLog: atmoLog,
		Repository:    repo,
		Provider:      provider,
		Location:      cfg.Location,
		RecentWindow:  cfg.RecentWindowDays,
		StaleAfter:    cfg.FetchInterval,
		Logger:        zlog.Named("tracker"),
	})

	// Seed the dataset before the first detection pass.
	service.Backfill(cfg.BackfillDays)
	service.RecordToday()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := service.RefreshAtmosphere(startupCtx); err != nil {
		zlog.Warn("initial atmosphere fetch failed, continuing with last-good data", logger.Error(err))
	}
	cancelStartup()
	service.RunDetection()

	sched := scheduler.New(service, cfg.FetchInterval, cfg.DetectionInterval, zlog.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", logger.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "skywatch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skywatch",
		})
	})

	httpapi.RegisterRoutes(app, service, hist, repo)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			zlog.Error("fiber server stopped", logger.Error(err))
		}
	}()
	zlog.Info("skywatch started",
		logger.String("location", cfg.Location.Name),
		logger.String("port", cfg.Port))

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", logger.Error(err))
	}
}
