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

	"github.com/i474232898/weather-agent/internal/agent"
	httpapi "github.com/i474232898/weather-agent/internal/api/http"
	"github.com/i474232898/weather-agent/internal/config"
	"github.com/i474232898/weather-agent/internal/events"
	"github.com/i474232898/weather-agent/internal/scheduler"
	"github.com/i474232898/weather-agent/internal/store"
	"github.com/i474232898/weather-agent/internal/weather"
	"github.com/i474232898/weather-agent/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls. Per-request deadlines
	// come from the provider timeout.
	httpClient := &http.Client{}

	provider := newProvider(cfg, httpClient)

	weatherAgent := agent.New(provider,
		agent.WithSourceID(cfg.AgentID),
		agent.WithDefaultUnits(weather.Units(cfg.Units)),
	)
	weatherAgent.On("*", logEvent)

	registry := agent.NewRegistry()
	if err := weatherAgent.RegisterCapabilities(registry); err != nil {
		log.Fatalf("failed to register capabilities: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if weatherAgent.ValidateConnection(startupCtx) {
		log.Printf("INFO: provider %s reachable", cfg.Provider)
	} else {
		log.Printf("ERROR: provider %s did not answer the connection check", cfg.Provider)
	}
	cancelStartup()

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Scheduler that periodically fetches and stores data.
	sched := scheduler.New(cfg.Locations, cfg.FetchInterval, weatherAgent, memStore)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-agent",
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
			"service": "weather-agent",
			"agentId": weatherAgent.ID(),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, weatherAgent, registry, memStore)

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

func newProvider(cfg *config.AppConfig, client *http.Client) weather.Provider {
	switch cfg.Provider {
	case "openmeteo":
		// Open-Meteo needs no key; a Google key switches name lookups to Google geocoding.
		return providers.NewOpenMeteoProvider(client, providers.Options{
			APIKey:       cfg.GeocoderAPIKey,
			DefaultUnits: weather.Units(cfg.Units),
			Language:     cfg.Language,
			Timeout:      cfg.RequestTimeout,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return providers.NewOpenWeatherProvider(client, providers.Options{
			APIKey:       cfg.OpenWeatherAPIKey,
			DefaultUnits: weather.Units(cfg.Units),
			Language:     cfg.Language,
			Timeout:      cfg.RequestTimeout,
			MaxRetries:   cfg.MaxRetries,
		})
	}
}

func logEvent(e events.Event) {
	if e.Failed() {
		log.Printf("ERROR: %s %s failed after %vms: %s", e.SourceID, e.Type, e.Data["duration"], e.Error.Message)
		return
	}
	log.Printf("INFO: %s %s ok in %vms", e.SourceID, e.Type, e.Data["duration"])
}
