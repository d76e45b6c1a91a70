// Package sensor integrates the personal MQ135 indoor air sensor: a small
// HTTP client for the device endpoint and a monitor that polls it and raises
// threshold alerts.
package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aqibeacon/aqibeacon/internal/aqi"
	"github.com/aqibeacon/aqibeacon/internal/provider/resilience"
)

// ClientConfig holds configuration for the sensor client.
type ClientConfig struct {
	// BaseURL is the device endpoint, e.g. "http://192.168.1.40" (required).
	BaseURL string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual requests (default: 8s).
	Timeout time.Duration
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Snapshot is one sensor measurement.
type Snapshot struct {
	// PPM is the CO2-equivalent concentration the MQ135 reports.
	PPM float64 `json:"ppm"`

	// AQI is the 0-500 equivalent derived from PPM.
	AQI int `json:"aqi"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Client reads measurements from the device.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a sensor client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:    "indoor-sensor",
			Timeout: cfg.Timeout,
		})
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// deviceReading is the firmware's JSON payload. The aqi field appears only on
// newer firmware; older devices report ppm alone.
type deviceReading struct {
	PPM float64 `json:"ppm"`
	AQI *int    `json:"aqi"`
}

// FetchSnapshot reads the current measurement from the device.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reading", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sensor reading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sensor endpoint status %d", resp.StatusCode)
	}

	var d deviceReading
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode sensor reading: %w", err)
	}

	snap := &Snapshot{
		PPM:       d.PPM,
		FetchedAt: time.Now(),
	}
	if d.AQI != nil {
		snap.AQI = *d.AQI
	} else {
		snap.AQI = aqi.FromCO2PPM(d.PPM)
	}
	return snap, nil
}
