package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingCoordinates means no location fix is available for this cycle.
	ErrMissingCoordinates = errors.New("no user coordinates found")
	// ErrEmptyResponse is returned by providers when a successful response has no body.
	ErrEmptyResponse = errors.New("weather api returned an empty body")
	// ErrNotificationsDisabled means the user does not allow notifications.
	ErrNotificationsDisabled = errors.New("notifications are disabled")
)

// StatusError reports a non-2xx answer from a weather API.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Provider, e.Code)
}

// Provider abstracts a current-weather source (e.g. WeatherAPI, OpenWeatherMap, Open-Meteo).
type Provider interface {
	Name() string
	FetchCurrent(ctx context.Context, coords Coordinates) (*Report, error)
}

// CoordinateSource supplies the last known user location.
type CoordinateSource interface {
	Coordinates(ctx context.Context) (Coordinates, error)
}

// Notifier renders user-visible alerts.
type Notifier interface {
	Enabled(ctx context.Context) bool
	PostWeatherForecast(ctx context.Context, location, forecast string) error
}

// Relay pushes a summary to a paired companion device. Failures are never
// fatal to a cycle.
type Relay interface {
	Send(ctx context.Context, city, summary string, timestampMillis int64) error
}
