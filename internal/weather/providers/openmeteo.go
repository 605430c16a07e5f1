package providers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

// ReverseGeocoder resolves a coordinate to a human readable place name.
type ReverseGeocoder interface {
	PlaceName(ctx context.Context, lat, lon float64) (string, error)
}

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// Open-Meteo does not return a place name, so one is looked up through the
// geocoder when available.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	units    weather.Units
	geocoder ReverseGeocoder
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, geocoder ReverseGeocoder, units weather.Units) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		units:    units,
		geocoder: geocoder,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates) (*weather.Report, error) {
	if !coords.Complete() {
		return nil, weather.ErrMissingCoordinates
	}

	units := p.units
	if units == "" {
		units = weather.UnitsImperial
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(*coords.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(*coords.Longitude, 'f', -1, 64))
		values.Set("current_weather", "true")
		if units == weather.UnitsImperial {
			values.Set("temperature_unit", "fahrenheit")
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var payload struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
			Time        string  `json:"time"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	if payload.CurrentWeather == nil {
		return nil, weather.ErrEmptyResponse
	}

	// Open-Meteo reports local time without a zone suffix.
	ts, err := time.Parse("2006-01-02T15:04", payload.CurrentWeather.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	return &weather.Report{
		ProviderName: p.name,
		LocationName: p.placeName(ctx, coords),
		Condition:    describeWMOCode(payload.CurrentWeather.WeatherCode),
		Temperature:  payload.CurrentWeather.Temperature,
		Units:        units,
		ObservedAt:   ts,
	}, nil
}

func (p *OpenMeteoProvider) placeName(ctx context.Context, coords weather.Coordinates) string {
	if p.geocoder == nil {
		return coords.Query()
	}
	name, err := p.geocoder.PlaceName(ctx, *coords.Latitude, *coords.Longitude)
	if err != nil || name == "" {
		log.Printf("openmeteo: reverse geocoding failed for %s: %v", coords.Query(), err)
		return coords.Query()
	}
	return name
}

// describeWMOCode maps Open-Meteo weather codes to short descriptions (simplified).
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code >= 1 && code <= 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
