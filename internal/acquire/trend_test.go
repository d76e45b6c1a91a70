package acquire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
)

func TestEstimateNext(t *testing.T) {
	tests := []struct {
		name             string
		last, secondLast int
		want             int
	}{
		{"rising trend continues", 100, 90, 110},
		{"falling trend continues", 90, 100, 80},
		{"flat trend holds", 75, 75, 75},
		{"rise damped to 25", 200, 100, 225},
		{"fall damped to 25", 100, 200, 75},
		{"never below zero", 5, 40, 0},
		{"never above 500", 495, 470, 500},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, acquire.EstimateNext(tc.last, tc.secondLast))
		})
	}
}

func TestEstimateNext_AlwaysInRange(t *testing.T) {
	for last := 0; last <= 500; last += 25 {
		for second := 0; second <= 500; second += 25 {
			got := acquire.EstimateNext(last, second)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 500)
		}
	}
}
