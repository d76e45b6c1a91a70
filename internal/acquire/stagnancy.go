package acquire

import "github.com/aqibeacon/aqibeacon/internal/reading"

// Detector flags a freshly fetched primary value that exactly matches very
// recent history. Several station networks keep serving their last known
// value during an outage, which is indistinguishable from a genuine "no
// change" except by this comparison. It is a pragmatic heuristic, not a
// liveness proof.
type Detector struct {
	// Window is how many of the most recent stored readings the new value
	// must match to count as stagnant. Zero or negative means 1.
	Window int
}

// IsStagnant reports whether value matches the Window most recent stored
// readings. Absent or too-short history is never stagnant: a first reading
// is always trusted.
func (d Detector) IsStagnant(value int, history []reading.Reading) bool {
	window := d.Window
	if window <= 0 {
		window = 1
	}
	if len(history) < window {
		return false
	}
	for _, r := range history[:window] {
		if r.Value != value {
			return false
		}
	}
	return true
}
