package notification

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-forecast-worker/internal/store"
)

// ForecastChannel is the channel forecast notifications are posted on.
const ForecastChannel = "weather_forecast"

// Notification is a user-visible alert produced by a forecast cycle.
type Notification struct {
	ID       string    `json:"id"`
	Channel  string    `json:"channel"`
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	PostedAt time.Time `json:"postedAt"`
}

func (n Notification) Time() time.Time {
	return n.PostedAt
}

// PermissionSource tells whether the user allows notifications.
type PermissionSource interface {
	NotificationsEnabled(ctx context.Context) (bool, error)
}

// Handler posts forecast notifications into a bounded feed.
type Handler struct {
	permissions PermissionSource
	feed        *store.MemoryStore[Notification]
	now         func() time.Time
}

// NewHandler creates a Handler.
func NewHandler(permissions PermissionSource, feed *store.MemoryStore[Notification]) *Handler {
	return &Handler{
		permissions: permissions,
		feed:        feed,
		now:         time.Now,
	}
}

// Enabled reports whether notifications may be posted. A failure to read the
// permission counts as disabled.
func (h *Handler) Enabled(ctx context.Context) bool {
	enabled, err := h.permissions.NotificationsEnabled(ctx)
	if err != nil {
		log.Printf("ERROR: notification: reading permission: %v", err)
		return false
	}
	return enabled
}

// PostWeatherForecast posts the forecast for location.
func (h *Handler) PostWeatherForecast(ctx context.Context, location, forecast string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n := Notification{
		ID:       uuid.NewString(),
		Channel:  ForecastChannel,
		Title:    location,
		Text:     forecast,
		PostedAt: h.now().UTC(),
	}
	h.feed.Save(ForecastChannel, n)

	log.Printf("INFO: notification: posted %s on %s: %s - %s", n.ID, n.Channel, n.Title, n.Text)
	return nil
}

// Latest returns the most recent forecast notification.
func (h *Handler) Latest() (Notification, error) {
	return h.feed.Latest(ForecastChannel)
}

// History returns forecast notifications posted between from and to.
func (h *Handler) History(from, to time.Time) ([]Notification, error) {
	return h.feed.Range(ForecastChannel, from, to)
}
