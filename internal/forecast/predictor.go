// Package forecast produces a short-horizon AQI outlook from the current
// reading and a typical diurnal pollution curve.
package forecast

import (
	"time"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// hourlyMultiplier maps an hour of day to the typical deviation from the
// daily baseline: overnight dip, morning and evening rush rises, midday dip.
var hourlyMultiplier = map[int]float64{
	0: 0.9, 1: 0.85, 2: 0.8, 3: 0.8, 4: 0.85, 5: 0.9,
	6: 1.0, 7: 1.1, 8: 1.15, 9: 1.1,
	10: 1.0, 11: 0.95, 12: 0.9, 13: 0.9, 14: 0.95,
	15: 1.0, 16: 1.05, 17: 1.1, 18: 1.15, 19: 1.1,
	20: 1.05, 21: 1.0, 22: 0.95, 23: 0.9,
}

// Hours is the outlook horizon.
const Hours = 3

// Point is one predicted hour.
type Point struct {
	Hour int `json:"hour"`
	AQI  int `json:"aqi"`
}

// Predictor computes the hourly outlook.
type Predictor struct {
	// Now overrides the clock in tests.
	Now func() time.Time

	// TimeZone is the reporting timezone (default: UTC).
	TimeZone *time.Location
}

// NextHours predicts the coming Hours hourly values from the current AQI.
// tomorrowAvg is the provider's forecast average for the next day when
// available; pass a negative value to fall back to a flat trend.
func (p Predictor) NextHours(currentAQI int, tomorrowAvg int) []Point {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	tz := p.TimeZone
	if tz == nil {
		tz = time.UTC
	}

	if tomorrowAvg < 0 {
		tomorrowAvg = currentAQI
	}
	trendPerStep := float64(tomorrowAvg-currentAQI) / 24.0

	currentHour := now().In(tz).Hour()
	out := make([]Point, 0, Hours)
	for i := 1; i <= Hours; i++ {
		futureHour := (currentHour + i) % 24
		base := float64(currentAQI) + trendPerStep*float64(i)

		multiplier, ok := hourlyMultiplier[futureHour]
		if !ok {
			multiplier = 1.0
		}

		value := int(base * multiplier)
		out = append(out, Point{
			Hour: futureHour,
			AQI:  reading.ClampAQI(value),
		})
	}
	return out
}
