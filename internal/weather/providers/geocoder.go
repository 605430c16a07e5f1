package providers

import (
	"context"
	"errors"

	"github.com/kelvins/geocoder"
)

// GoogleGeocoder resolves place names through the Google Geocoding API.
type GoogleGeocoder struct{}

// NewGoogleGeocoder configures the geocoding client. The underlying library
// keeps the API key in package state, so only one key per process is supported.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	geocoder.ApiKey = apiKey
	return &GoogleGeocoder{}
}

func (g *GoogleGeocoder) PlaceName(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	addresses, err := geocoder.GeocodingReverse(geocoder.Location{
		Latitude:  lat,
		Longitude: lon,
	})
	if err != nil {
		return "", err
	}

	for _, addr := range addresses {
		if addr.City != "" {
			return addr.City, nil
		}
	}
	if len(addresses) > 0 && addresses[0].FormattedAddress != "" {
		return addresses[0].FormattedAddress, nil
	}
	return "", errors.New("no address found for coordinates")
}
