// Package aqi converts raw pollutant measurements to the US EPA 0-500 index.
package aqi

import (
	"math"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// pm25Breakpoints is the EPA PM2.5 breakpoint table: concentration range
// [CLo, CHi] in µg/m³ maps linearly onto AQI range [ILo, IHi].
var pm25Breakpoints = []breakpoint{
	{0.0, 12.0, 0, 50},
	{12.1, 35.4, 51, 100},
	{35.5, 55.4, 101, 150},
	{55.5, 150.4, 151, 200},
	{150.5, 250.4, 201, 300},
	{250.5, 500.4, 301, 500},
}

type breakpoint struct {
	cLo, cHi float64
	iLo, iHi int
}

// FromPM25 converts a PM2.5 concentration in µg/m³ to the US AQI.
// Non-positive input maps to 0; anything above the top breakpoint clamps to
// 500 rather than extrapolating.
func FromPM25(c float64) int {
	if c <= 0 {
		return reading.MinAQI
	}
	for _, bp := range pm25Breakpoints {
		if c <= bp.cHi {
			v := float64(bp.iHi-bp.iLo)/(bp.cHi-bp.cLo)*(c-bp.cLo) + float64(bp.iLo)
			return reading.ClampAQI(int(math.Round(v)))
		}
	}
	return reading.MaxAQI
}

// FromCO2PPM converts an indoor CO2-equivalent ppm value from the personal
// sensor into an AQI-like 0-500 number. The curve matches the sensor
// firmware's calibration, not an EPA table.
func FromCO2PPM(ppm float64) int {
	var v float64
	switch {
	case ppm <= 0:
		return reading.MinAQI
	case ppm <= 600:
		v = ppm / 12
	case ppm <= 1000:
		v = 51 + (ppm-600)/8
	default:
		v = 101 + (ppm-1000)/10
	}
	return reading.ClampAQI(int(v))
}

// Category returns the EPA descriptive band for an AQI value.
func Category(v int) string {
	switch {
	case v <= 50:
		return "Good"
	case v <= 100:
		return "Moderate"
	case v <= 150:
		return "Unhealthy for Sensitive Groups"
	case v <= 200:
		return "Unhealthy"
	case v <= 300:
		return "Very Unhealthy"
	default:
		return "Hazardous"
	}
}
