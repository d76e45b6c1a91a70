package aqi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqibeacon/aqibeacon/internal/aqi"
)

func TestFromPM25_Breakpoints(t *testing.T) {
	tests := []struct {
		name string
		pm25 float64
		want int
	}{
		{"zero", 0, 0},
		{"negative", -3.2, 0},
		{"good midpoint", 6.0, 25},
		{"good upper edge", 12.0, 50},
		{"moderate lower edge", 12.1, 51},
		{"moderate", 35.4, 100},
		{"usg lower edge", 35.5, 101},
		{"usg upper edge", 55.4, 150},
		{"unhealthy", 150.4, 200},
		{"very unhealthy", 250.4, 300},
		{"hazardous lower edge", 250.5, 301},
		{"hazardous upper edge", 500.4, 500},
		{"above table clamps", 800.0, 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, aqi.FromPM25(tc.pm25))
		})
	}
}

func TestFromPM25_Monotonic(t *testing.T) {
	prev := aqi.FromPM25(0)
	for c := 0.1; c <= 600; c += 0.1 {
		got := aqi.FromPM25(c)
		assert.GreaterOrEqual(t, got, prev, "not monotonic at %.1f", c)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 500)
		prev = got
	}
}

func TestFromPM25_BreakpointContinuity(t *testing.T) {
	// The table's own step between bands is one point; the seam between
	// 12.0 and 12.1 must not jump further than that.
	lo := aqi.FromPM25(12.0)
	hi := aqi.FromPM25(12.1)
	assert.Equal(t, 50, lo)
	assert.Equal(t, 51, hi)
}

func TestFromCO2PPM(t *testing.T) {
	tests := []struct {
		ppm  float64
		want int
	}{
		{0, 0},
		{-10, 0},
		{420, 35},
		{600, 50},
		{1000, 101},
		{1500, 151},
		{10000, 500},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, aqi.FromCO2PPM(tc.ppm), "ppm=%.0f", tc.ppm)
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "Good", aqi.Category(0))
	assert.Equal(t, "Good", aqi.Category(50))
	assert.Equal(t, "Moderate", aqi.Category(51))
	assert.Equal(t, "Unhealthy for Sensitive Groups", aqi.Category(150))
	assert.Equal(t, "Unhealthy", aqi.Category(200))
	assert.Equal(t, "Very Unhealthy", aqi.Category(300))
	assert.Equal(t, "Hazardous", aqi.Category(301))
}
