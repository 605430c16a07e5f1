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
	"github.com/joho/godotenv"

	httpapi "github.com/i474232898/weather-forecast-worker/internal/api/http"
	"github.com/i474232898/weather-forecast-worker/internal/config"
	"github.com/i474232898/weather-forecast-worker/internal/notification"
	"github.com/i474232898/weather-forecast-worker/internal/preferences"
	"github.com/i474232898/weather-forecast-worker/internal/relay"
	"github.com/i474232898/weather-forecast-worker/internal/scheduler"
	"github.com/i474232898/weather-forecast-worker/internal/store"
	"github.com/i474232898/weather-forecast-worker/internal/weather"
	"github.com/i474232898/weather-forecast-worker/internal/weather/providers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// User preferences: last known coordinates and notification permission.
	prefs, err := preferences.NewSQLite(cfg.PreferencesDB)
	if err != nil {
		log.Fatalf("failed to open preferences store: %v", err)
	}
	defer prefs.Close()

	provider := providers.NewFailover(buildProviders(cfg, httpClient)...)

	feed := store.NewMemoryStore[notification.Notification](cfg.NotificationMaxHistory, cfg.NotificationMaxAge)
	notifier := notification.NewHandler(prefs, feed)

	var companion weather.Relay = relay.Unpaired{}
	if cfg.RelayURL != "" {
		companion = relay.NewHTTPSender(&http.Client{Timeout: cfg.RelayTimeout}, cfg.RelayURL)
	} else {
		log.Println("INFO: RELAY_URL not set; forecasts will not be synced to a companion device")
	}

	worker := weather.NewWorker(prefs, provider, notifier, companion)

	// Scheduler that periodically runs forecast cycles.
	history := store.NewMemoryStore[scheduler.CycleRecord](cfg.CycleMaxHistory, 0)
	sched := scheduler.New(worker, history, scheduler.Options{
		Interval:       cfg.ForecastInterval,
		Cron:           cfg.ForecastCron,
		CycleTimeout:   cfg.CycleTimeout,
		InitialBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:     cfg.RetryMaxBackoff,
	})
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-forecast-worker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.CycleTimeout + 10*time.Second,
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

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-forecast-worker",
		})
	})

	httpapi.RegisterRoutes(app, sched, prefs, notifier)

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

func buildProviders(cfg *config.AppConfig, client *http.Client) []weather.Provider {
	var provs []weather.Provider
	for _, name := range cfg.Providers {
		switch name {
		case "weatherapi":
			provs = append(provs, providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey, cfg.Units))
		case "openweather":
			provs = append(provs, providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey, cfg.Units))
		case "openmeteo":
			// Open-Meteo does not require an API key, but place names need the Google geocoder.
			var geo providers.ReverseGeocoder
			if cfg.GeocoderAPIKey != "" {
				geo = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
			}
			provs = append(provs, providers.NewOpenMeteoProvider(client, geo, cfg.Units))
		}
	}
	return provs
}
