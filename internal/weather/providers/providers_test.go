package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-forecast-worker/internal/weather"
)

var testBackoff = BackoffConfig{
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func newTestWeatherAPI(t *testing.T, handler http.HandlerFunc, units weather.Units) (*WeatherAPIProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewWeatherAPIProvider(srv.Client(), "test-key", units)
	p.baseURL = srv.URL + "/v1/current.json"
	p.httpCfg.Backoff = testBackoff
	return p, srv
}

func TestWeatherAPIFetchCurrent(t *testing.T) {
	var gotQuery, gotKey string
	p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"location": {"name": "New York", "localtime_epoch": 1717243200},
			"current": {"last_updated_epoch": 1717243200, "temp_c": 22.2, "temp_f": 72.0,
			            "condition": {"text": "Sunny"}}
		}`))
	}, weather.UnitsImperial)

	report, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40.0, -74.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "40.0,-74.0" {
		t.Fatalf("expected q=40.0,-74.0, got %q", gotQuery)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected api key to be sent, got %q", gotKey)
	}

	summary := report.Summary()
	if summary.LocationName != "New York" || summary.Text != "Sunny, 72°F" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !report.ObservedAt.Equal(time.Unix(1717243200, 0)) {
		t.Fatalf("unexpected observation time: %v", report.ObservedAt)
	}
}

func TestWeatherAPIMetricUnits(t *testing.T) {
	p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"location":{"name":"Paris"},"current":{"temp_c":18.4,"temp_f":65.1,"condition":{"text":"Partly cloudy"}}}`))
	}, weather.UnitsMetric)

	report, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(48.8566, 2.3522))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := report.Summary().Text; got != "Partly cloudy, 18°C" {
		t.Fatalf("unexpected summary text: %q", got)
	}
}

func TestWeatherAPIServerErrorRetriesThenFails(t *testing.T) {
	var calls int32
	p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}, weather.UnitsImperial)

	_, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74))
	var statusErr *weather.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected code 500, got %d", statusErr.Code)
	}
	if got := atomic.LoadInt32(&calls); got != int32(testBackoff.MaxRetries+1) {
		t.Fatalf("expected %d attempts, got %d", testBackoff.MaxRetries+1, got)
	}
}

func TestWeatherAPIClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}, weather.UnitsImperial)

	_, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74))
	var statusErr *weather.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestWeatherAPIEmptyBody(t *testing.T) {
	p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, weather.UnitsImperial)

	_, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74))
	if !errors.Is(err, weather.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestWeatherAPINullBody(t *testing.T) {
	for _, body := range []string{`null`, `{}`, `{"location":{"name":"New York"}}`} {
		p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, weather.UnitsImperial)

		report, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74))
		if !errors.Is(err, weather.ErrEmptyResponse) {
			t.Fatalf("body %s: expected ErrEmptyResponse, got %v (report %+v)", body, err, report)
		}
	}
}

type fixedCoordinates struct{}

func (fixedCoordinates) Coordinates(context.Context) (weather.Coordinates, error) {
	return weather.NewCoordinates(40, -74), nil
}

type recordingNotifier struct {
	posted []string
}

func (n *recordingNotifier) Enabled(context.Context) bool { return true }

func (n *recordingNotifier) PostWeatherForecast(_ context.Context, location, forecast string) error {
	n.posted = append(n.posted, location+"|"+forecast)
	return nil
}

type discardRelay struct{}

func (discardRelay) Send(context.Context, string, string, int64) error { return nil }

func TestWorkerRetriesOnNullWeatherAPIBody(t *testing.T) {
	for _, body := range []string{`null`, `{}`} {
		p, _ := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, weather.UnitsImperial)
		notifier := &recordingNotifier{}

		outcome := weather.NewWorker(fixedCoordinates{}, p, notifier, discardRelay{}).RunCycle(context.Background())
		if outcome != weather.OutcomeRetry {
			t.Fatalf("body %s: expected retry, got %s", body, outcome)
		}
		if len(notifier.posted) != 0 {
			t.Fatalf("body %s: expected no notification, got %v", body, notifier.posted)
		}
	}
}

func TestWeatherAPIRequiresKey(t *testing.T) {
	p := NewWeatherAPIProvider(http.DefaultClient, "", weather.UnitsImperial)
	if _, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(1, 2)); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestOpenWeatherFetchCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "51.5072" || q.Get("lon") != "-0.1276" || q.Get("units") != "metric" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"name":"London","dt":1717243200,"main":{"temp":14.6},
			"weather":[{"main":"Clouds","description":"broken clouds"}]}`))
	}))
	defer srv.Close()

	p := NewOpenWeatherProvider(srv.Client(), "key", weather.UnitsMetric)
	p.baseURL = srv.URL
	p.httpCfg.Backoff = testBackoff

	report, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(51.5072, -0.1276))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary := report.Summary()
	if summary.LocationName != "London" || summary.Text != "Broken Clouds, 15°C" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestOpenWeatherNullBody(t *testing.T) {
	for _, body := range []string{`null`, `{}`, `{"name":"London"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		p := NewOpenWeatherProvider(srv.Client(), "key", weather.UnitsMetric)
		p.baseURL = srv.URL
		p.httpCfg.Backoff = testBackoff

		_, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(51.5072, -0.1276))
		srv.Close()
		if !errors.Is(err, weather.ErrEmptyResponse) {
			t.Fatalf("body %s: expected ErrEmptyResponse, got %v", body, err)
		}
	}
}

type stubGeocoder struct {
	name string
	err  error
}

func (s stubGeocoder) PlaceName(context.Context, float64, float64) (string, error) {
	return s.name, s.err
}

func TestOpenMeteoFetchCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("temperature_unit") != "fahrenheit" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":72.3,"time":"2024-06-01T12:00","weathercode":0}}`))
	}))
	defer srv.Close()

	cases := []struct {
		name     string
		geocoder ReverseGeocoder
		want     string
	}{
		{"resolved", stubGeocoder{name: "New York"}, "New York"},
		{"geocoder error", stubGeocoder{err: errors.New("quota exceeded")}, "40.0,-74.0"},
		{"no geocoder", nil, "40.0,-74.0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewOpenMeteoProvider(srv.Client(), tc.geocoder, weather.UnitsImperial)
			p.baseURL = srv.URL
			p.httpCfg.Backoff = testBackoff

			report, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			summary := report.Summary()
			if summary.LocationName != tc.want || summary.Text != "Clear sky, 72°F" {
				t.Fatalf("unexpected summary: %+v", summary)
			}
		})
	}
}

func TestOpenMeteoMissingCurrentWeather(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), nil, weather.UnitsMetric)
	p.baseURL = srv.URL
	p.httpCfg.Backoff = testBackoff

	if _, err := p.FetchCurrent(context.Background(), weather.NewCoordinates(40, -74)); !errors.Is(err, weather.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

type staticProvider struct {
	name   string
	report *weather.Report
	err    error
	calls  int
}

func (s *staticProvider) Name() string { return s.name }

func (s *staticProvider) FetchCurrent(context.Context, weather.Coordinates) (*weather.Report, error) {
	s.calls++
	return s.report, s.err
}

func TestFailoverUsesFirstSuccessfulProvider(t *testing.T) {
	first := &staticProvider{name: "first", err: &weather.StatusError{Provider: "first", Code: 503}}
	second := &staticProvider{name: "second", report: &weather.Report{LocationName: "Lisbon"}}
	third := &staticProvider{name: "third", report: &weather.Report{LocationName: "Porto"}}

	report, err := NewFailover(first, second, third).FetchCurrent(context.Background(), weather.NewCoordinates(38.7, -9.1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.LocationName != "Lisbon" {
		t.Fatalf("expected report from second provider, got %q", report.LocationName)
	}
	if third.calls != 0 {
		t.Fatalf("third provider should not be called")
	}
}

func TestFailoverJoinsErrors(t *testing.T) {
	first := &staticProvider{name: "first", err: errors.New("timeout")}
	second := &staticProvider{name: "second", err: &weather.StatusError{Provider: "second", Code: 500}}
	third := &staticProvider{name: "third"}

	_, err := NewFailover(first, second, third).FetchCurrent(context.Background(), weather.NewCoordinates(1, 1))
	var statusErr *weather.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 500 {
		t.Fatalf("expected joined StatusError, got %v", err)
	}
	if !errors.Is(err, weather.ErrEmptyResponse) {
		t.Fatalf("expected nil report to surface as ErrEmptyResponse, got %v", err)
	}
}

func TestDescribeWMOCode(t *testing.T) {
	cases := map[int]string{0: "Clear sky", 2: "Partly cloudy", 3: "Overcast", 45: "Fog", 63: "Rain", 81: "Rain", 73: "Snow", 95: "Thunderstorm", 42: "Unknown"}
	for code, want := range cases {
		if got := describeWMOCode(code); got != want {
			t.Errorf("describeWMOCode(%d) = %q, want %q", code, got, want)
		}
	}
}
