// Package waqi provides a client for the World Air Quality Index API.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aqibeacon/aqibeacon/internal/provider/resilience"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

const (
	// DefaultBaseURL is the base URL for the WAQI API.
	DefaultBaseURL = "https://api.waqi.info"

	// ProviderName identifies this provider.
	ProviderName = "waqi"
)

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI API token (required).
	Token string

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

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a new WAQI client.
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
		token:      cfg.Token,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// API response types (from the WAQI API).

type feedResponse struct {
	Status string   `json:"status"`
	Data   feedData `json:"data"`
}

type feedData struct {
	// AQI is a number on success but the string "-" when the station has
	// no current index, so it cannot decode into a numeric type directly.
	AQI  json.RawMessage `json:"aqi"`
	City cityData        `json:"city"`
	IAQI map[string]iaqi `json:"iaqi"`
}

type cityData struct {
	Name string    `json:"name"`
	Geo  []float64 `json:"geo"`
}

type iaqi struct {
	V float64 `json:"v"`
}

// errorResponse is the shape of a non-ok payload; Data degrades to a string.
type errorResponse struct {
	Status string `json:"status"`
	Data   string `json:"data"`
}

// FetchByCoords retrieves the nearest station's feed for the coordinates.
func (c *Client) FetchByCoords(ctx context.Context, lat, lon float64) (*reading.Sample, error) {
	path := fmt.Sprintf("/feed/geo:%f;%f/", lat, lon)
	return c.fetchFeed(ctx, path)
}

// FetchByQuery retrieves a feed by free text: a city name, or a station id
// prefixed with "@".
func (c *Client) FetchByQuery(ctx context.Context, query string) (*reading.Sample, error) {
	path := "/feed/" + url.PathEscape(query) + "/"
	return c.fetchFeed(ctx, path)
}

func (c *Client) fetchFeed(ctx context.Context, path string) (*reading.Sample, error) {
	u := fmt.Sprintf("%s%s?token=%s", c.baseURL, path, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w: %w", err, reading.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed endpoint status %d: %w", resp.StatusCode, reading.ErrSourceUnavailable)
	}

	var envelope struct {
		Status string `json:"status"`
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode feed status: %w", err)
	}

	if envelope.Status != "ok" {
		var e errorResponse
		if err := json.Unmarshal(raw, &e); err == nil && e.Data != "" {
			return nil, fmt.Errorf("feed status %q (%s): %w", e.Status, e.Data, reading.ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("feed status %q: %w", envelope.Status, reading.ErrSourceUnavailable)
	}

	var result feedResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	return c.toSample(&result.Data)
}

// toSample converts API feed data to a domain Sample.
func (c *Client) toSample(d *feedData) (*reading.Sample, error) {
	var aqiValue float64
	if err := json.Unmarshal(d.AQI, &aqiValue); err != nil {
		// The station exists but reports no current index ("-").
		return nil, reading.ErrNoData
	}

	sample := &reading.Sample{
		AQI:     reading.ClampAQI(int(aqiValue)),
		Station: d.City.Name,
	}
	if pm, ok := d.IAQI["pm25"]; ok {
		v := pm.V
		sample.PM25 = &v
	}
	return sample, nil
}

// Ensure Client implements the primary source contract.
var _ reading.PrimarySource = (*Client)(nil)
