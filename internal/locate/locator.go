// Package locate resolves the coordinates the acquisition pipeline queries
// for. Implementations range from a fixed configured point to the last
// position reported by a paired device.
package locate

import (
	"context"
	"errors"
)

// ErrNoLocation is returned when a locator cannot produce coordinates.
var ErrNoLocation = errors.New("no location available")

// Locator resolves the current coordinates of interest.
type Locator interface {
	Current(ctx context.Context) (lat, lon float64, err error)
}

// Static always returns a fixed configured coordinate pair.
type Static struct {
	Lat float64
	Lon float64
}

// Current returns the configured coordinates.
func (s Static) Current(_ context.Context) (float64, float64, error) {
	return s.Lat, s.Lon, nil
}

// Chain tries each locator in order and returns the first success. An empty
// chain, or one where every locator fails, yields ErrNoLocation.
type Chain []Locator

// Current returns the first successfully resolved coordinates.
func (c Chain) Current(ctx context.Context) (float64, float64, error) {
	for _, l := range c {
		lat, lon, err := l.Current(ctx)
		if err == nil {
			return lat, lon, nil
		}
		if ctx.Err() != nil {
			return 0, 0, ctx.Err()
		}
	}
	return 0, 0, ErrNoLocation
}
