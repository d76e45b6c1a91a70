// Package openweather provides a client for the OpenWeather Air Pollution API.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aqibeacon/aqibeacon/internal/provider/resilience"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

const (
	// DefaultBaseURL is the base URL for the OpenWeather API.
	DefaultBaseURL = "https://api.openweathermap.org"

	// ProviderName identifies this provider.
	ProviderName = "openweather"
)

// ClientConfig holds configuration for the OpenWeather client.
type ClientConfig struct {
	// APIKey is the OpenWeather API key (required).
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 8s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenWeather Air Pollution API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new OpenWeather client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    ProviderName,
			Timeout: cfg.Timeout,
		})
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API response types (from the OpenWeather Air Pollution API).

type pollutionResponse struct {
	List []pollutionEntry `json:"list"`
}

type pollutionEntry struct {
	Main       pollutionIndex `json:"main"`
	Components componentData  `json:"components"`
}

type pollutionIndex struct {
	// AQI is OpenWeather's own 1-5 index, not the EPA scale. Only the raw
	// component concentrations are used downstream.
	AQI int `json:"aqi"`
}

type componentData struct {
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	O3   float64 `json:"o3"`
	NO2  float64 `json:"no2"`
}

// FetchPM25 retrieves the current PM2.5 concentration (µg/m³) at the
// coordinates.
func (c *Client) FetchPM25(ctx context.Context, lat, lon float64) (float64, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)

	u := fmt.Sprintf("%s/data/2.5/air_pollution?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch air pollution: %w: %w", err, reading.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("air pollution endpoint status %d: %w", resp.StatusCode, reading.ErrSourceUnavailable)
	}

	var result pollutionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode air pollution response: %w", err)
	}

	if len(result.List) == 0 {
		return 0, reading.ErrNoData
	}
	return result.List[0].Components.PM25, nil
}

// Ensure Client implements the secondary source contract.
var _ reading.SecondarySource = (*Client)(nil)
