package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-forecast-worker/internal/notification"
	"github.com/i474232898/weather-forecast-worker/internal/preferences"
	"github.com/i474232898/weather-forecast-worker/internal/scheduler"
	"github.com/i474232898/weather-forecast-worker/internal/store"
	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

var validate = validator.New()

// Cycles runs and reports forecast cycles.
type Cycles interface {
	RunNow(ctx context.Context) (scheduler.CycleRecord, error)
	Latest() (scheduler.CycleRecord, error)
	History(from, to time.Time) ([]scheduler.CycleRecord, error)
}

// PreferenceStore reads and updates user preferences.
type PreferenceStore interface {
	Get(ctx context.Context) (preferences.Preferences, error)
	SetCoordinates(ctx context.Context, c weather.Coordinates) error
	ClearCoordinates(ctx context.Context) error
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
}

// NotificationFeed exposes posted notifications.
type NotificationFeed interface {
	Latest() (notification.Notification, error)
	History(from, to time.Time) ([]notification.Notification, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, cycles Cycles, prefs PreferenceStore, feed NotificationFeed) {
	v1 := app.Group("/api/v1")

	v1.Post("/cycles/run", func(c *fiber.Ctx) error {
		record, err := cycles.RunNow(c.UserContext())
		if err != nil {
			if errors.Is(err, scheduler.ErrCycleInProgress) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to run forecast cycle")
		}
		return c.JSON(record)
	})

	v1.Get("/cycles/latest", func(c *fiber.Ctx) error {
		record, err := cycles.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast cycle has run yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch cycle")
		}
		return c.JSON(record)
	})

	v1.Get("/cycles/history", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := cycles.History(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no forecast cycles for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch cycle history")
		}

		return c.JSON(fiber.Map{
			"from":   req.From,
			"to":     req.To,
			"cycles": records,
		})
	})

	v1.Get("/preferences", func(c *fiber.Ctx) error {
		p, err := prefs.Get(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read preferences")
		}
		return c.JSON(p)
	})

	v1.Put("/preferences/coordinates", func(c *fiber.Ctx) error {
		var req coordinatesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		coords := weather.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude}
		if err := prefs.SetCoordinates(c.UserContext(), coords); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save coordinates")
		}
		return c.JSON(coords)
	})

	v1.Delete("/preferences/coordinates", func(c *fiber.Ctx) error {
		if err := prefs.ClearCoordinates(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear coordinates")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Put("/preferences/notifications", func(c *fiber.Ctx) error {
		var req notificationsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := prefs.SetNotificationsEnabled(c.UserContext(), *req.Enabled); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save notification permission")
		}
		return c.JSON(fiber.Map{"notificationsEnabled": *req.Enabled})
	})

	v1.Get("/notifications/latest", func(c *fiber.Ctx) error {
		n, err := feed.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no notification posted yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch notification")
		}
		return c.JSON(n)
	})

	v1.Get("/notifications/history", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		list, err := feed.History(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no notifications for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch notifications")
		}

		return c.JSON(fiber.Map{
			"from":          req.From,
			"to":            req.To,
			"notifications": list,
		})
	})
}

// coordinatesRequest is the body for updating the stored location fix.
type coordinatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

type notificationsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// rangeQuery holds from/to query parameters for the history endpoints.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (q *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	q.From = from
	q.To = to
	return validate.Struct(q)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
