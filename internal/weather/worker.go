package weather

import (
	"context"
	"errors"
	"log"
	"time"
)

// Worker runs one fetch-and-deliver cycle: coordinates, weather lookup,
// best-effort relay to the companion device, then the gated notification.
type Worker struct {
	coordinates CoordinateSource
	provider    Provider
	notifier    Notifier
	relay       Relay
	now         func() time.Time
}

// NewWorker creates a Worker. All collaborators are required.
func NewWorker(coordinates CoordinateSource, provider Provider, notifier Notifier, relay Relay) *Worker {
	return &Worker{
		coordinates: coordinates,
		provider:    provider,
		notifier:    notifier,
		relay:       relay,
		now:         time.Now,
	}
}

// RunCycle executes a single cycle and reports its outcome. Error details are
// logged here and never returned.
func (w *Worker) RunCycle(ctx context.Context) Outcome {
	coords, err := w.coordinates.Coordinates(ctx)
	if err != nil {
		log.Printf("ERROR: worker: reading user coordinates: %v", err)
		return OutcomeFailure
	}
	if !coords.Complete() {
		log.Printf("ERROR: worker: %v to fetch weather", ErrMissingCoordinates)
		return OutcomeFailure
	}

	report, err := w.provider.FetchCurrent(ctx, coords)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			log.Printf("ERROR: worker: weather api failed with code %d: %v", statusErr.Code, err)
		} else {
			log.Printf("ERROR: worker: error fetching weather forecast for %s: %v", coords.Query(), err)
		}
		return OutcomeRetry
	}
	if report == nil {
		log.Printf("ERROR: worker: %v", ErrEmptyResponse)
		return OutcomeRetry
	}

	summary := report.Summary()
	w.relaySummary(ctx, summary)

	if !w.notifier.Enabled(ctx) {
		log.Printf("ERROR: worker: %v", ErrNotificationsDisabled)
		return OutcomeFailure
	}

	if err := w.notifier.PostWeatherForecast(ctx, summary.LocationName, summary.Text); err != nil {
		log.Printf("ERROR: worker: posting forecast notification: %v", err)
		return OutcomeRetry
	}

	log.Printf("INFO: worker: forecast delivered for %s", summary.LocationName)
	return OutcomeSuccess
}

// relaySummary pushes the summary to the companion device, ignoring any failure.
func (w *Worker) relaySummary(ctx context.Context, summary WeatherSummary) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: worker: failed to sync weather to companion device: relay panic: %v", r)
		}
	}()

	if err := w.relay.Send(ctx, summary.LocationName, summary.Text, w.now().UnixMilli()); err != nil {
		log.Printf("ERROR: worker: failed to sync weather to companion device: %v", err)
		return
	}
	log.Printf("DEBUG: worker: synced weather to companion device")
}
