package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// HTTPSender pushes data items to a companion device over HTTP.
type HTTPSender struct {
	client  *http.Client
	baseURL string
	circuit *gobreaker.CircuitBreaker
}

// NewHTTPSender creates a sender targeting the companion device at baseURL.
func NewHTTPSender(client *http.Client, baseURL string) *HTTPSender {
	return &HTTPSender{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "companion-relay",
			MaxRequests: 1,
			Interval:    5 * time.Minute,
			Timeout:     10 * time.Minute,
		}),
	}
}

// Send stores the current weather on the companion device.
func (s *HTTPSender) Send(ctx context.Context, city, summary string, timestampMillis int64) error {
	data, err := json.Marshal(CurrentWeather{City: city, Summary: summary, Timestamp: timestampMillis})
	if err != nil {
		return err
	}
	return s.Put(ctx, DataItem{
		ID:     uuid.NewString(),
		Path:   CurrentWeatherPath,
		Data:   data,
		Urgent: true,
	})
}

// Put uploads a single data item under its path.
func (s *HTTPSender) Put(ctx context.Context, item DataItem) error {
	if s.client == nil {
		return errors.New("relay: http client not configured")
	}

	body, err := json.Marshal(item)
	if err != nil {
		return err
	}

	_, err = s.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.baseURL+"/v1/data-items"+item.Path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("relay: companion responded with status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// Unpaired is used when no companion device is configured.
type Unpaired struct{}

func (Unpaired) Send(context.Context, string, string, int64) error {
	return ErrNotPaired
}
