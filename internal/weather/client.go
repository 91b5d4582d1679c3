// Package weather provides pass-through clients for the external weather
// provider: free-text geocoding and the one-call forecast. No forecast math
// happens here; bodies are forwarded and only error shapes are normalized.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

const (
	defaultGeocodeURL  = "https://api.openweathermap.org/geo/1.0/direct"
	defaultForecastURL = "https://api.openweathermap.org/data/3.0/onecall"
)

// Client calls the OpenWeather geocoding and one-call endpoints with retries
// and a shared circuit breaker.
type Client struct {
	apiKey      string
	geocodeURL  string
	forecastURL string
	httpCfg     HTTPClientConfig
	circuit     *gobreaker.CircuitBreaker
}

// Option customizes a Client.
type Option func(*Client)

// WithGeocodeURL overrides the geocoding endpoint (used in tests).
func WithGeocodeURL(u string) Option { return func(c *Client) { c.geocodeURL = u } }

// WithForecastURL overrides the forecast endpoint (used in tests).
func WithForecastURL(u string) Option { return func(c *Client) { c.forecastURL = u } }

// NewClient creates a weather client using the shared HTTP client.
func NewClient(httpClient *http.Client, apiKey string, opts ...Option) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	c := &Client{
		apiKey:      apiKey,
		geocodeURL:  defaultGeocodeURL,
		forecastURL: defaultForecastURL,
		httpCfg: HTTPClientConfig{
			Client: httpClient,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a free-text query into location candidates.
func (c *Client) Geocode(ctx context.Context, query string, limit int) ([]GeocodeResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}
	if limit <= 0 {
		limit = 5
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", c.apiKey)

	body, err := c.get(ctx, c.geocodeURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var out []GeocodeResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode geocoding response: %w", err)
	}
	return out, nil
}

// Forecast fetches current/hourly/daily conditions for the coordinates and
// returns the provider's JSON body unchanged.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")
	values.Set("exclude", "minutely,alerts")

	body, err := c.get(ctx, c.forecastURL+"?"+values.Encode())
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &payload)
		if payload.Message == "" {
			payload.Message = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: payload.Message}
	}
	return body, nil
}
