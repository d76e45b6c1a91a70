package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/api/models"
	"github.com/aqibeacon/aqibeacon/internal/api/response"
	"github.com/aqibeacon/aqibeacon/internal/history"
)

// LocationHandler handles device location reports.
type LocationHandler struct {
	store    history.Store
	ownerID  string
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(store history.Store, ownerID string, logger zerolog.Logger) *LocationHandler {
	return &LocationHandler{
		store:    store,
		ownerID:  ownerID,
		validate: validator.New(),
		logger:   logger,
	}
}

// UpdateBeacon handles POST /v1/location - store the device's last known
// coordinates for the coordinate resolution chain.
func (h *LocationHandler) UpdateBeacon(w http.ResponseWriter, r *http.Request) {
	var input models.BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if err := h.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]models.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, models.FieldError{
					Field:   fe.Field(),
					Message: "must be a valid " + fe.Tag(),
					Code:    fe.Tag(),
				})
			}
			response.BadRequest(w, r, "invalid coordinates", fields)
			return
		}
		response.BadRequest(w, r, "invalid coordinates", nil)
		return
	}

	beacon := history.Beacon{
		OwnerID:   h.ownerID,
		Lat:       input.Lat,
		Lon:       input.Lon,
		UpdatedAt: time.Now(),
	}
	if err := h.store.SaveBeacon(r.Context(), beacon); err != nil {
		h.logger.Error().Err(err).Msg("beacon save failed")
		response.InternalError(w, r, "could not store location")
		return
	}

	response.NoContent(w, r)
}
