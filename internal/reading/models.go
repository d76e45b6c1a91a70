// Package reading defines the canonical air quality reading model shared by
// the acquisition pipeline, the history store and the cloud mirror.
package reading

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider errors.
var (
	ErrSourceUnavailable = errors.New("air quality source unavailable")
	ErrNoData            = errors.New("no air quality data for location")
)

// AQI bounds on the US EPA scale.
const (
	MinAQI = 0
	MaxAQI = 500
)

// Source identifies which acquisition tier produced a reading. It is recorded
// at creation time and never inferred later.
type Source string

const (
	SourcePrimary   Source = "waqi"
	SourceSecondary Source = "openweather"
	SourceEstimated Source = "trend_prediction"
)

// Reading is one hourly air quality record. The Date/Hour pair is the time
// bucket the reading represents in the reporting timezone, not the wall-clock
// fetch time. Readings are immutable; a later write for the same
// (Location, Date, Hour) key supersedes the earlier one.
type Reading struct {
	// Value is the AQI on the 0-500 US EPA scale, always clamped.
	Value int

	// Location is the human-readable station or city label. It doubles as
	// the series key in the history store.
	Location string

	// Source is the provenance tag.
	Source Source

	// Date is the bucket date, "2006-01-02".
	Date string

	// Hour is the bucket hour, 0-23.
	Hour int

	// RecordedAt is when the reading was created.
	RecordedAt time.Time
}

// Key returns the idempotency key for hourly persistence.
func (r Reading) Key() string {
	return fmt.Sprintf("%s|%s|%02d", r.Location, r.Date, r.Hour)
}

// ClampAQI bounds a value to the valid AQI range.
func ClampAQI(v int) int {
	if v < MinAQI {
		return MinAQI
	}
	if v > MaxAQI {
		return MaxAQI
	}
	return v
}

// Bucket maps an instant to its reporting-timezone (date, hour) bucket.
func Bucket(t time.Time, loc *time.Location) (date string, hour int) {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02"), t.Hour()
}

// Sample is a normalized provider payload before it becomes a Reading. It is
// transient: either promoted into a Reading by the resolver or discarded.
type Sample struct {
	// AQI is the index value as reported (primary) or converted (secondary).
	AQI int

	// Station is the provider's label for the measuring station or area.
	Station string

	// PM25 is the raw PM2.5 concentration in µg/m³ when the provider
	// exposes it, nil otherwise.
	PM25 *float64
}

// PrimarySource is the station-network provider contract. Any transport
// error, timeout or non-success payload is just an error; callers treat all
// failure causes alike.
type PrimarySource interface {
	// FetchByCoords queries by geographic coordinates.
	FetchByCoords(ctx context.Context, lat, lon float64) (*Sample, error)

	// FetchByQuery queries by free text: a city name, or a station id
	// prefixed with "@".
	FetchByQuery(ctx context.Context, query string) (*Sample, error)
}

// SecondarySource is the backup provider contract. It reports a raw PM2.5
// concentration, not an AQI, and only supports coordinate lookups.
type SecondarySource interface {
	FetchPM25(ctx context.Context, lat, lon float64) (float64, error)
}
