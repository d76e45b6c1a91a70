package models

import (
	"time"

	"github.com/aqibeacon/aqibeacon/internal/forecast"
	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// CurrentAir is the response body for the current reading.
type CurrentAir struct {
	AQI      int    `json:"aqi"`
	Category string `json:"category"`
	Location string `json:"location"`
	Source   string `json:"source"`
	Date     string `json:"date"`
	Hour     int    `json:"hour"`

	// Stale marks a reading served from history because every live
	// acquisition tier failed.
	Stale bool `json:"stale"`

	// Note carries a degradation hint such as "regional backup in use".
	Note string `json:"note,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// HourlyReading is one history entry.
type HourlyReading struct {
	Hour     int    `json:"hour"`
	AQI      int    `json:"aqi"`
	Category string `json:"category"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

// DayHistory is the response body for one day of hourly readings.
type DayHistory struct {
	Date     string          `json:"date"`
	Readings []HourlyReading `json:"readings"`
}

// DailyMax is one day's maximum.
type DailyMax struct {
	Date     string `json:"date"`
	MaxAQI   int    `json:"max_aqi"`
	Category string `json:"category"`
	Location string `json:"location"`
}

// MonthDaily is the response body for a month of daily maxima.
type MonthDaily struct {
	Month string     `json:"month"`
	Days  []DailyMax `json:"days"`
}

// Outlook is the response body for the short-horizon prediction.
type Outlook struct {
	BasedOn CurrentAir       `json:"based_on"`
	Points  []forecast.Point `json:"points"`
}

// BeaconRequest is the request body for a device location update.
type BeaconRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// IndoorAir is the response body for the personal sensor.
type IndoorAir struct {
	PPM       float64   `json:"ppm"`
	AQI       int       `json:"aqi"`
	Category  string    `json:"category"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Health is the response body for the health endpoint.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewCurrentAir maps a domain reading.
func NewCurrentAir(rec reading.Reading, category string, stale bool, note string) CurrentAir {
	return CurrentAir{
		AQI:        rec.Value,
		Category:   category,
		Location:   rec.Location,
		Source:     string(rec.Source),
		Date:       rec.Date,
		Hour:       rec.Hour,
		Stale:      stale,
		Note:       note,
		RecordedAt: rec.RecordedAt,
	}
}

// NewDailyMax maps a stored daily maximum.
func NewDailyMax(dm history.DailyMax, category string) DailyMax {
	return DailyMax{
		Date:     dm.Date,
		MaxAQI:   dm.Value,
		Category: category,
		Location: dm.Location,
	}
}
