package acquire

import "github.com/aqibeacon/aqibeacon/internal/reading"

// maxTrendStep bounds a single extrapolation step so one noisy pair of
// historical readings cannot produce an absurd estimate.
const maxTrendStep = 25

// EstimateNext extrapolates the next AQI value from the last two stored
// values: the last delta, damped to ±25 points, applied once and clamped to
// the valid range.
func EstimateNext(last, secondLast int) int {
	delta := last - secondLast
	if delta > maxTrendStep {
		delta = maxTrendStep
	}
	if delta < -maxTrendStep {
		delta = -maxTrendStep
	}
	return reading.ClampAQI(last + delta)
}
