package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	// Providers are tried in order until one answers.
	Providers         []string `yaml:"providers" validate:"required,min=1,dive,oneof=weatherapi openweather openmeteo"`
	WeatherAPIKey     string   `yaml:"weatherapi_api_key"`
	OpenWeatherAPIKey string   `yaml:"openweather_api_key"`
	GeocoderAPIKey    string   `yaml:"geocoder_api_key"`

	Units weather.Units `yaml:"units" validate:"oneof=imperial metric"`

	// ForecastInterval is the fixed cadence; ForecastCron takes precedence when set.
	ForecastInterval time.Duration `yaml:"forecast_interval" validate:"gt=0"`
	ForecastCron     string        `yaml:"forecast_cron"`
	CycleTimeout     time.Duration `yaml:"cycle_timeout" validate:"gt=0"`

	RetryInitialBackoff time.Duration `yaml:"retry_initial_backoff" validate:"gt=0"`
	RetryMaxBackoff     time.Duration `yaml:"retry_max_backoff" validate:"gtefield=RetryInitialBackoff"`

	HTTPTimeout time.Duration `yaml:"http_timeout" validate:"gt=0"`

	// RelayURL is the companion device endpoint; empty means no device is paired.
	RelayURL     string        `yaml:"relay_url" validate:"omitempty,url"`
	RelayTimeout time.Duration `yaml:"relay_timeout" validate:"gt=0"`

	PreferencesDB string `yaml:"preferences_db" validate:"required"`

	NotificationMaxHistory int           `yaml:"notification_max_history" validate:"gte=0"`
	NotificationMaxAge     time.Duration `yaml:"notification_max_age" validate:"gte=0"`
	CycleMaxHistory        int           `yaml:"cycle_max_history" validate:"gte=0"`

	Port         string `yaml:"port" validate:"required,numeric"`
	ListenerPort string `yaml:"listener_port" validate:"required,numeric"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *AppConfig {
	return &AppConfig{
		Providers:              []string{"weatherapi"},
		Units:                  weather.UnitsImperial,
		ForecastInterval:       12 * time.Hour,
		CycleTimeout:           time.Minute,
		RetryInitialBackoff:    30 * time.Second,
		RetryMaxBackoff:        5 * time.Hour,
		HTTPTimeout:            10 * time.Second,
		RelayTimeout:           5 * time.Second,
		PreferencesDB:          "forecast.db",
		NotificationMaxHistory: 50,
		NotificationMaxAge:     7 * 24 * time.Hour,
		CycleMaxHistory:        100,
		Port:                   "8080",
		ListenerPort:           "8090",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*AppConfig, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	if v := os.Getenv("WEATHER_PROVIDERS"); v != "" {
		c.Providers = splitList(v)
	}
	c.WeatherAPIKey = getenvDefault("WEATHERAPI_API_KEY", c.WeatherAPIKey)
	c.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_API_KEY", c.OpenWeatherAPIKey)
	c.GeocoderAPIKey = getenvDefault("GEOCODER_API_KEY", c.GeocoderAPIKey)
	c.Units = weather.Units(strings.ToLower(getenvDefault("WEATHER_UNITS", string(c.Units))))
	c.ForecastCron = getenvDefault("FORECAST_CRON", c.ForecastCron)
	c.RelayURL = getenvDefault("RELAY_URL", c.RelayURL)
	c.PreferencesDB = getenvDefault("PREFERENCES_DB", c.PreferencesDB)
	c.NotificationMaxHistory = getenvInt("NOTIFICATION_MAX_HISTORY", c.NotificationMaxHistory)
	c.CycleMaxHistory = getenvInt("CYCLE_MAX_HISTORY", c.CycleMaxHistory)
	c.Port = getenvDefault("PORT", c.Port)
	c.ListenerPort = getenvDefault("LISTENER_PORT", c.ListenerPort)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"FORECAST_INTERVAL", &c.ForecastInterval},
		{"CYCLE_TIMEOUT", &c.CycleTimeout},
		{"RETRY_INITIAL_BACKOFF", &c.RetryInitialBackoff},
		{"RETRY_MAX_BACKOFF", &c.RetryMaxBackoff},
		{"HTTP_TIMEOUT", &c.HTTPTimeout},
		{"RELAY_TIMEOUT", &c.RelayTimeout},
		{"NOTIFICATION_MAX_AGE", &c.NotificationMaxAge},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
