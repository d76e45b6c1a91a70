package handler

import (
	"net/http"

	"github.com/aqibeacon/aqibeacon/internal/api/models"
	"github.com/aqibeacon/aqibeacon/internal/api/response"
	"github.com/aqibeacon/aqibeacon/internal/aqi"
	"github.com/aqibeacon/aqibeacon/internal/sensor"
)

// SnapshotProvider exposes the most recent sensor snapshot.
type SnapshotProvider interface {
	Latest() *sensor.Snapshot
}

// SensorHandler handles personal sensor endpoints.
type SensorHandler struct {
	monitor SnapshotProvider
}

// NewSensorHandler creates a new SensorHandler. A nil monitor means no sensor
// is configured.
func NewSensorHandler(monitor SnapshotProvider) *SensorHandler {
	return &SensorHandler{monitor: monitor}
}

// GetIndoor handles GET /v1/sensor/indoor - the latest indoor measurement.
func (h *SensorHandler) GetIndoor(w http.ResponseWriter, r *http.Request) {
	if h.monitor == nil {
		response.ServiceUnavailable(w, r, "no indoor sensor configured")
		return
	}

	snap := h.monitor.Latest()
	if snap == nil {
		response.ServiceUnavailable(w, r, "indoor sensor has not reported yet")
		return
	}

	body := models.IndoorAir{
		PPM:       snap.PPM,
		AQI:       snap.AQI,
		Category:  aqi.Category(snap.AQI),
		FetchedAt: snap.FetchedAt,
	}
	response.JSON(w, r, http.StatusOK, body)
}
