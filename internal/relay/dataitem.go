// Package relay carries weather summaries from the phone-side worker to a
// paired companion device, and handles them on the companion side.
package relay

import (
	"encoding/json"
	"errors"
)

// CurrentWeatherPath is the logical channel current-weather summaries use.
const CurrentWeatherPath = "/current_weather"

// ErrNotPaired is returned when no companion device is configured.
var ErrNotPaired = errors.New("no companion device paired")

// DataItem is a keyed payload synced to the companion device.
type DataItem struct {
	ID     string          `json:"id"`
	Path   string          `json:"path"`
	Data   json.RawMessage `json:"data"`
	Urgent bool            `json:"urgent"`
}

// CurrentWeather is the payload stored under CurrentWeatherPath.
type CurrentWeather struct {
	City      string `json:"city"`
	Summary   string `json:"summary"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// EventType tells whether a data item was changed or deleted.
type EventType string

const (
	EventChanged EventType = "changed"
	EventDeleted EventType = "deleted"
)

// DataEvent is delivered to the companion-side listener.
type DataEvent struct {
	Type EventType `json:"type"`
	Item DataItem  `json:"item"`
}
