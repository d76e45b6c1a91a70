package handler

import (
	"context"
	"net/http"

	"github.com/aqibeacon/aqibeacon/internal/api/models"
	"github.com/aqibeacon/aqibeacon/internal/api/response"
)

// Pinger checks that backing storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version string
	store   Pinger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version string, store Pinger) *OpsHandler {
	return &OpsHandler{
		version: version,
		store:   store,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  "ok",
		Version: h.version,
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check including the
// history store.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		response.ServiceUnavailable(w, r, "history store unreachable")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  "ok",
		Version: h.version,
	})
}
