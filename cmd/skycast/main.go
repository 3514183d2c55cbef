package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/olegn/skycast/internal/api/http"
	"github.com/olegn/skycast/internal/config"
	"github.com/olegn/skycast/internal/geo"
	"github.com/olegn/skycast/internal/scheduler"
	"github.com/olegn/skycast/internal/store"
	"github.com/olegn/skycast/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound API calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Local store: last search, favourites, weather cache.
	st, err := store.Open(cfg.StorePath, cfg.MaxFavorites)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	// Core services.
	client := weather.NewClient(httpClient, cfg.OpenWeatherAPIKey)
	resolver := geo.NewResolver(httpClient, cfg.OpenWeatherAPIKey, cfg.GeocoderAPIKey)
	service := weather.NewService(client, st, cfg.CacheTTL)

	// Background job pruning expired cache rows.
	sched := scheduler.New(st, cfg.CachePruneInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "skycast",
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
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "skycast",
		})
	})

	// Widget state and API routes.
	widget := httpapi.NewApp(service, resolver, cfg.SuggestDebounce)
	httpapi.RegisterRoutes(app, widget)

	// Restore the persisted last search so the widget comes back up
	// showing what it showed last time.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		widget.RestoreLastSearch(ctx)
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
