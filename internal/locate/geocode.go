package locate

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// GeocodeConfig holds configuration for the address-based locator.
type GeocodeConfig struct {
	// APIKey is the Google Maps Geocoding API key (required).
	APIKey string

	// City, State and Country describe the configured home location.
	// City is required; the rest narrow the match.
	City    string
	State   string
	Country string
}

// Geocode resolves a configured address to coordinates once and serves the
// cached result afterwards. The address is static configuration, so a single
// upstream call per process is enough.
type Geocode struct {
	cfg  GeocodeConfig
	once sync.Once
	lat  float64
	lon  float64
	err  error
}

// NewGeocode creates an address-based locator.
func NewGeocode(cfg GeocodeConfig) *Geocode {
	return &Geocode{cfg: cfg}
}

// Current returns the geocoded coordinates of the configured address.
func (g *Geocode) Current(_ context.Context) (float64, float64, error) {
	g.once.Do(func() {
		geocoder.ApiKey = g.cfg.APIKey

		address := geocoder.Address{
			City:    g.cfg.City,
			State:   g.cfg.State,
			Country: g.cfg.Country,
		}
		location, err := geocoder.Geocoding(address)
		if err != nil {
			g.err = fmt.Errorf("geocode %q: %w", g.cfg.City, err)
			return
		}
		g.lat = location.Latitude
		g.lon = location.Longitude
	})
	if g.err != nil {
		return 0, 0, g.err
	}
	return g.lat, g.lon, nil
}
