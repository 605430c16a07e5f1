package preferences

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/i474232898/weather-forecast-worker/internal/weather"

	_ "modernc.org/sqlite"
)

// Preferences is the user-controlled state the worker depends on.
type Preferences struct {
	Coordinates          weather.Coordinates `json:"coordinates"`
	NotificationsEnabled bool                `json:"notificationsEnabled"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// SQLiteStore keeps user preferences in a single-row SQLite table
// (pure Go driver modernc.org/sqlite).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path and applies the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("warning: could not set WAL mode:", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS user_preferences (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        latitude REAL,
        longitude REAL,
        notifications_enabled INTEGER NOT NULL DEFAULT 1,
        updated_at TEXT
    );
    INSERT OR IGNORE INTO user_preferences(id) VALUES (1);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying preferences schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Coordinates returns the stored location fix. Absent components stay nil.
func (s *SQLiteStore) Coordinates(ctx context.Context) (weather.Coordinates, error) {
	var lat, lon sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT latitude, longitude FROM user_preferences WHERE id = 1`).Scan(&lat, &lon)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("reading coordinates: %w", err)
	}

	var c weather.Coordinates
	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lon.Valid {
		c.Longitude = &lon.Float64
	}
	return c, nil
}

// SetCoordinates stores a new location fix. Nil components are stored as NULL.
func (s *SQLiteStore) SetCoordinates(ctx context.Context, c weather.Coordinates) error {
	_, err := s.db.ExecContext(ctx, `UPDATE user_preferences SET latitude = ?, longitude = ?, updated_at = ? WHERE id = 1`,
		nullable(c.Latitude), nullable(c.Longitude), s.timestamp())
	if err != nil {
		return fmt.Errorf("saving coordinates: %w", err)
	}
	return nil
}

// ClearCoordinates forgets the stored location fix.
func (s *SQLiteStore) ClearCoordinates(ctx context.Context) error {
	return s.SetCoordinates(ctx, weather.Coordinates{})
}

// NotificationsEnabled reports whether the user allows forecast notifications.
func (s *SQLiteStore) NotificationsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, `SELECT notifications_enabled FROM user_preferences WHERE id = 1`).Scan(&enabled)
	if err != nil {
		return false, fmt.Errorf("reading notification permission: %w", err)
	}
	return enabled, nil
}

// SetNotificationsEnabled updates the notification permission.
func (s *SQLiteStore) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE user_preferences SET notifications_enabled = ?, updated_at = ? WHERE id = 1`,
		enabled, s.timestamp())
	if err != nil {
		return fmt.Errorf("saving notification permission: %w", err)
	}
	return nil
}

// Get returns all preferences at once.
func (s *SQLiteStore) Get(ctx context.Context) (Preferences, error) {
	var (
		lat, lon  sql.NullFloat64
		enabled   bool
		updatedAt sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, notifications_enabled, updated_at FROM user_preferences WHERE id = 1`).
		Scan(&lat, &lon, &enabled, &updatedAt)
	if err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}

	p := Preferences{NotificationsEnabled: enabled}
	if lat.Valid {
		p.Coordinates.Latitude = &lat.Float64
	}
	if lon.Valid {
		p.Coordinates.Longitude = &lon.Float64
	}
	if updatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			p.UpdatedAt = t
		}
	}
	return p, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
