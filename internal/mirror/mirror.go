// Package mirror replicates recorded readings to a cloud backend so other
// clients of the same account see the history without talking to the
// providers themselves. Replication is best effort: the local store is the
// source of truth and a mirror failure never fails a record cycle.
package mirror

import (
	"context"
	"fmt"

	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// Mirror is the replication contract.
type Mirror interface {
	// Replicate pushes one hourly reading.
	Replicate(ctx context.Context, rec reading.Reading) error

	// ReplicateDailyMax pushes a daily maximum update.
	ReplicateDailyMax(ctx context.Context, dm history.DailyMax) error

	// Close releases the mirror's resources.
	Close() error
}

// Envelope is the wire format for a mirrored hourly reading.
type Envelope struct {
	// Path is the document path in the remote hierarchy,
	// "users/{owner}/history/{date}/hourly/{hour}".
	Path string `json:"path"`

	Owner    string `json:"owner"`
	Date     string `json:"date"`
	Hour     int    `json:"hour"`
	AQI      int    `json:"aqi"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

// DailyMaxEnvelope is the wire format for a mirrored daily maximum.
type DailyMaxEnvelope struct {
	// Path is "users/{owner}/history/{date}".
	Path string `json:"path"`

	Owner    string `json:"owner"`
	Date     string `json:"date"`
	MaxAQI   int    `json:"max_aqi"`
	Location string `json:"location"`
}

// NewEnvelope builds the hourly envelope for an owner.
func NewEnvelope(owner string, rec reading.Reading) Envelope {
	return Envelope{
		Path:     fmt.Sprintf("users/%s/history/%s/hourly/%d", owner, rec.Date, rec.Hour),
		Owner:    owner,
		Date:     rec.Date,
		Hour:     rec.Hour,
		AQI:      rec.Value,
		Location: rec.Location,
		Source:   string(rec.Source),
	}
}

// NewDailyMaxEnvelope builds the daily maximum envelope for an owner.
func NewDailyMaxEnvelope(owner string, dm history.DailyMax) DailyMaxEnvelope {
	return DailyMaxEnvelope{
		Path:     fmt.Sprintf("users/%s/history/%s", owner, dm.Date),
		Owner:    owner,
		Date:     dm.Date,
		MaxAQI:   dm.Value,
		Location: dm.Location,
	}
}

// Noop discards everything. Used when no cloud backend is configured.
type Noop struct{}

func (Noop) Replicate(context.Context, reading.Reading) error          { return nil }
func (Noop) ReplicateDailyMax(context.Context, history.DailyMax) error { return nil }
func (Noop) Close() error                                              { return nil }

// Ensure Noop implements Mirror.
var _ Mirror = Noop{}
