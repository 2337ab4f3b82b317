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
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/alert"
	httpapi "github.com/s4584690/Pixel-Weather/internal/api/http"
	"github.com/s4584690/Pixel-Weather/internal/config"
	"github.com/s4584690/Pixel-Weather/internal/dispatch"
	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/logger"
	"github.com/s4584690/Pixel-Weather/internal/observability"
	"github.com/s4584690/Pixel-Weather/internal/scheduler"
	"github.com/s4584690/Pixel-Weather/internal/store"
	"github.com/s4584690/Pixel-Weather/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	metrics := observability.NewMetrics()

	// Shared HTTP client for outbound collaborator calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Geofence index and suburb reference provider.
	index := geo.NewIndex(cfg.ResolveRadiusKm)
	var suburbSource geo.Provider
	if cfg.SuburbSourceURL != "" {
		suburbSource = geo.NewHTTPProvider(httpClient, cfg.SuburbSourceURL)
	} else {
		suburbSource = geo.NewFileProvider(cfg.SuburbSeedFile)
	}

	sched := scheduler.New(suburbSource, index, cfg.SuburbSyncInterval, cfg.HTTPTimeout, zlog, metrics)

	// Load the initial snapshot before serving; without reference data every
	// location report would resolve to nothing.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	if err := sched.Sync(loadCtx); err != nil {
		zlog.Fatal("initial suburb load failed", zap.Error(err))
	}
	cancelLoad()

	if err := sched.Start(); err != nil {
		zlog.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Subscription store: SQLite when a path is configured, memory otherwise.
	var st store.Store
	if cfg.DBPath != "" {
		st, err = store.OpenSQLite(context.Background(), cfg.DBPath, index)
		if err != nil {
			zlog.Fatal("failed to open sqlite store", zap.Error(err))
		}
	} else {
		st = store.NewMemoryStore(index)
	}
	defer func() { _ = st.Close() }()

	// Match dispatcher: Kafka when brokers are configured, log otherwise.
	var dispatcher alert.Dispatcher
	if len(cfg.KafkaBrokers) > 0 {
		kd := dispatch.NewKafkaDispatcher(cfg.KafkaBrokers, cfg.KafkaTopic, zlog)
		defer func() { _ = kd.Close() }()
		dispatcher = kd
	} else {
		dispatcher = dispatch.NewLogDispatcher(zlog)
	}

	conditions := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)

	engine := alert.NewEngine(st, index, conditions, dispatcher, zlog, metrics)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "pixel-weather-alert-engine",
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

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "pixel-weather-alert-engine",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, st, index, engine)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			zlog.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("error during shutdown", zap.Error(err))
	}
}
