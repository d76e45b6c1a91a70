// Package history persists hourly readings, daily maxima and the last known
// device location. It is the read model for trend estimation and the source
// of truth the cloud mirror replicates from.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// Repository errors.
var (
	ErrNotFound = errors.New("history record not found")
)

// DailyMax is the worst hourly reading observed on a given date.
type DailyMax struct {
	// Date is the bucket date, "2006-01-02".
	Date string

	// Value is the maximum AQI recorded that day.
	Value int

	// Location labels the reading that set the maximum.
	Location string

	UpdatedAt time.Time
}

// Beacon is the last reported device location for an owner. It feeds the
// coordinate resolution chain when a fresh fix is unavailable.
type Beacon struct {
	OwnerID   string
	Lat       float64
	Lon       float64
	UpdatedAt time.Time
}

// Store defines the persistence contract for readings and beacons.
type Store interface {
	// UpsertHourly writes a reading keyed by (location, date, hour). A
	// later write for the same key replaces the earlier one.
	UpsertHourly(ctx context.Context, rec reading.Reading) error

	// LastTwo returns up to the two most recent readings, newest first.
	// An empty series matches any location.
	LastTwo(ctx context.Context, series string) ([]reading.Reading, error)

	// HourlyForDay returns all readings for a date, ordered by hour.
	HourlyForDay(ctx context.Context, date string) ([]reading.Reading, error)

	// DailyForMonth returns the daily maxima for a month ("2006-01"),
	// ordered by date.
	DailyForMonth(ctx context.Context, month string) ([]DailyMax, error)

	// UpsertDailyMax records rec's value as the daily maximum if it
	// exceeds the stored one; lower values leave the row untouched.
	UpsertDailyMax(ctx context.Context, rec reading.Reading) error

	// SaveBeacon stores the owner's last reported location.
	SaveBeacon(ctx context.Context, b Beacon) error

	// LastBeacon returns the owner's last reported location, or
	// ErrNotFound when the owner never reported one.
	LastBeacon(ctx context.Context, ownerID string) (*Beacon, error)

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing storage.
	Close() error
}
