package weather

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Outcome is the terminal result of one forecast cycle, consumed by the
// scheduler to decide whether to run again early.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeRetry   Outcome = "retry"
)

// Units selects the temperature scale used when building summaries.
type Units string

const (
	UnitsImperial Units = "imperial"
	UnitsMetric   Units = "metric"
)

// Symbol returns the temperature unit symbol for u.
func (u Units) Symbol() string {
	if u == UnitsMetric {
		return "°C"
	}
	return "°F"
}

// Coordinates is the last known user location. Either component may be nil
// when no fix has been recorded yet.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewCoordinates returns a fully populated Coordinates value.
func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{Latitude: &lat, Longitude: &lon}
}

// Complete reports whether both latitude and longitude are present.
func (c Coordinates) Complete() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Query renders the coordinates as "lat,long". It must only be called on
// complete coordinates.
func (c Coordinates) Query() string {
	return formatFloat(*c.Latitude) + "," + formatFloat(*c.Longitude)
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) {
		s += ".0"
	}
	return s
}

// Report is a provider's normalized view of current conditions.
type Report struct {
	ProviderName string
	LocationName string
	Condition    string
	Temperature  float64
	Units        Units
	ObservedAt   time.Time
}

// Summary derives the user-facing summary from the report, e.g. "Sunny, 72°F".
func (r Report) Summary() WeatherSummary {
	return WeatherSummary{
		LocationName: r.LocationName,
		Text:         fmt.Sprintf("%s, %.0f%s", r.Condition, r.Temperature, r.Units.Symbol()),
	}
}

// WeatherSummary is what gets relayed to the companion device and shown in the
// notification. It lives for one cycle only.
type WeatherSummary struct {
	LocationName string `json:"locationName"`
	Text         string `json:"summaryText"`
}
