package providers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

// Failover tries each provider in order and returns the first report.
type Failover struct {
	providers []weather.Provider
}

// NewFailover creates a Failover over the given providers.
func NewFailover(providers ...weather.Provider) *Failover {
	return &Failover{providers: providers}
}

func (f *Failover) Name() string {
	return "failover"
}

// FetchCurrent queries providers sequentially. When all of them fail the
// individual errors are joined, so errors.As still finds a *weather.StatusError.
func (f *Failover) FetchCurrent(ctx context.Context, coords weather.Coordinates) (*weather.Report, error) {
	if len(f.providers) == 0 {
		return nil, fmt.Errorf("no weather providers configured")
	}

	var errs []error
	for _, p := range f.providers {
		report, err := p.FetchCurrent(ctx, coords)
		if err == nil && report != nil {
			return report, nil
		}
		if err == nil {
			err = weather.ErrEmptyResponse
		}

		log.Printf("provider %s fetch failed: %v", p.Name(), err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
