package acquire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

func readings(values ...int) []reading.Reading {
	out := make([]reading.Reading, 0, len(values))
	for _, v := range values {
		out = append(out, reading.Reading{Value: v})
	}
	return out
}

func TestDetector_IsStagnant(t *testing.T) {
	tests := []struct {
		name    string
		window  int
		value   int
		history []reading.Reading
		want    bool
	}{
		{"no history is never stagnant", 0, 90, nil, false},
		{"matches most recent", 0, 90, readings(90, 84), true},
		{"differs from most recent", 0, 91, readings(90, 84), false},
		{"single record suffices for default window", 0, 90, readings(90), true},
		{"window 2 needs both to match", 2, 90, readings(90, 84), false},
		{"window 2 both match", 2, 90, readings(90, 90, 12), true},
		{"window 2 short history is fresh", 2, 90, readings(90), false},
		{"zero is a legitimate value", 0, 0, readings(0), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := acquire.Detector{Window: tc.window}
			assert.Equal(t, tc.want, d.IsStagnant(tc.value, tc.history))
		})
	}
}
