package locate

import (
	"context"
	"fmt"
	"time"

	"github.com/aqibeacon/aqibeacon/internal/history"
)

// BeaconReader is the slice of the history store the beacon locator needs.
type BeaconReader interface {
	LastBeacon(ctx context.Context, ownerID string) (*history.Beacon, error)
}

// BeaconConfig holds configuration for the beacon locator.
type BeaconConfig struct {
	// Reader looks up the last reported device location (required).
	Reader BeaconReader

	// OwnerID selects whose beacon to read (required).
	OwnerID string

	// MaxAge rejects beacons older than this. Zero means any age.
	MaxAge time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Beacon resolves coordinates from the last position a paired device
// reported. A missing or expired beacon is ErrNoLocation, so a Chain can
// move on to a configured fallback.
type Beacon struct {
	reader  BeaconReader
	ownerID string
	maxAge  time.Duration
	now     func() time.Time
}

// NewBeacon creates a beacon-backed locator.
func NewBeacon(cfg BeaconConfig) *Beacon {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Beacon{
		reader:  cfg.Reader,
		ownerID: cfg.OwnerID,
		maxAge:  cfg.MaxAge,
		now:     now,
	}
}

// Current returns the last reported device coordinates.
func (b *Beacon) Current(ctx context.Context) (float64, float64, error) {
	beacon, err := b.reader.LastBeacon(ctx, b.ownerID)
	if err != nil {
		return 0, 0, fmt.Errorf("read beacon: %w", ErrNoLocation)
	}
	if b.maxAge > 0 && b.now().Sub(beacon.UpdatedAt) > b.maxAge {
		return 0, 0, fmt.Errorf("beacon expired: %w", ErrNoLocation)
	}
	return beacon.Lat, beacon.Lon, nil
}

// Ensure implementations satisfy Locator.
var (
	_ Locator = Static{}
	_ Locator = Chain(nil)
	_ Locator = (*Geocode)(nil)
	_ Locator = (*Beacon)(nil)
)
