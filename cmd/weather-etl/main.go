package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-etl/internal/api/http"
	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/internal/observability"
	"github.com/i474232898/weather-etl/internal/pipeline"
	"github.com/i474232898/weather-etl/internal/scheduler"
	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var st weather.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to create connection pool", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to reach database", zap.Error(err))
		}

		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Fatal("failed to apply schema", zap.Error(err))
		}
		st = pgStore
	} else {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		st = store.NewMemoryStore(0)
	}

	// Shared HTTP client for upstream calls; its timeout bounds each attempt.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	fetcher := weather.NewOpenMeteoClient(httpClient, cfg.Backoff)

	registry := pipeline.NewRegistry(st, cfg.Locations, logger)
	pipe := pipeline.New(fetcher, st, registry, pipeline.Config{
		MinFetchSuccess: cfg.MinFetchSuccess,
		LocationTimeout: cfg.LocationTimeout,
	}, logger)

	sched := scheduler.New(pipe, cfg.FetchInterval, cfg.RunTimeout, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-etl",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-etl",
		})
	})

	httpapi.RegisterRoutes(app, st)

	port := cfg.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}
