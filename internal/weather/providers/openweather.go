package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	units   weather.Units
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, units weather.Units) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		units:   units,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, coords weather.Coordinates) (*weather.Report, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}
	if !coords.Complete() {
		return nil, weather.ErrMissingCoordinates
	}

	units := p.units
	if units == "" {
		units = weather.UnitsImperial
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", string(units))
		values.Set("lat", strconv.FormatFloat(*coords.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(*coords.Longitude, 'f', -1, 64))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Name string `json:"name"`
		Dt   int64  `json:"dt"`
		Main *struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := decodeJSON(resp, &payload); err != nil {
		return nil, err
	}
	if payload.Main == nil {
		return nil, weather.ErrEmptyResponse
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	name := payload.Name
	if name == "" {
		name = coords.Query()
	}

	return &weather.Report{
		ProviderName: p.name,
		LocationName: name,
		Condition:    openWeatherCondition(payload.Weather),
		Temperature:  payload.Main.Temp,
		Units:        units,
		ObservedAt:   ts,
	}, nil
}

func openWeatherCondition(items []struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}) string {
	if len(items) == 0 {
		return "Unknown"
	}
	if items[0].Description != "" {
		return cases.Title(language.English).String(items[0].Description)
	}
	return items[0].Main
}
