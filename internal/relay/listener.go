package relay

import (
	"encoding/json"
	"log"
)

// Listener handles data items arriving on the companion device.
// Received weather is only logged for now.
type Listener struct{}

// NewListener creates a Listener.
func NewListener() *Listener {
	return &Listener{}
}

// OnDataChanged processes a batch of events and returns the current-weather
// payloads it accepted. Deletions and unknown paths are ignored.
func (l *Listener) OnDataChanged(events []DataEvent) []CurrentWeather {
	var received []CurrentWeather
	for _, event := range events {
		if event.Type != EventChanged || event.Item.Path != CurrentWeatherPath {
			continue
		}

		var cw CurrentWeather
		if err := json.Unmarshal(event.Item.Data, &cw); err != nil {
			log.Printf("ERROR: listener: malformed %s payload: %v", event.Item.Path, err)
			continue
		}

		// TODO: persist to a local store so the companion UI has data while disconnected.
		log.Printf("DEBUG: listener: received weather: %s, %s", cw.City, cw.Summary)
		received = append(received, cw)
	}
	return received
}
