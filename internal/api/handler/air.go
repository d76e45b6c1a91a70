// Package handler provides HTTP handlers for the AQI Beacon API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/api/models"
	"github.com/aqibeacon/aqibeacon/internal/api/response"
	"github.com/aqibeacon/aqibeacon/internal/aqi"
	"github.com/aqibeacon/aqibeacon/internal/forecast"
	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/record"
)

// Recorder runs one record cycle and returns the resulting reading.
type Recorder interface {
	Record(ctx context.Context, query string) (*record.Result, error)
}

// AirHandler handles air quality endpoints.
type AirHandler struct {
	recorder  Recorder
	store     history.Store
	predictor forecast.Predictor
	tz        *time.Location
	logger    zerolog.Logger
}

// NewAirHandler creates a new AirHandler.
func NewAirHandler(recorder Recorder, store history.Store, predictor forecast.Predictor, tz *time.Location, logger zerolog.Logger) *AirHandler {
	if tz == nil {
		tz = time.UTC
	}
	return &AirHandler{
		recorder:  recorder,
		store:     store,
		predictor: predictor,
		tz:        tz,
		logger:    logger,
	}
}

// GetCurrent handles GET /v1/air/current - resolve and return the current reading.
//
// The optional "query" parameter targets a named station; without it the
// tracked location is used. When every live tier fails the last stored
// reading is served with stale=true.
func (h *AirHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	result, err := h.recorder.Record(r.Context(), query)
	if err != nil {
		if errors.Is(err, acquire.ErrExhausted) {
			h.serveCached(w, r)
			return
		}
		h.logger.Error().Err(err).Msg("record cycle failed")
		response.InternalError(w, r, "could not record a reading")
		return
	}

	body := models.NewCurrentAir(
		result.Reading,
		aqi.Category(result.Reading.Value),
		false,
		result.Outcome.Note,
	)
	response.JSON(w, r, http.StatusOK, body)
}

// serveCached falls back to the most recent stored reading after a full
// acquisition outage.
func (h *AirHandler) serveCached(w http.ResponseWriter, r *http.Request) {
	recent, err := h.store.LastTwo(r.Context(), "")
	if err != nil || len(recent) == 0 {
		response.ServiceUnavailable(w, r, "no air quality data available")
		return
	}

	last := recent[0]
	body := models.NewCurrentAir(last, aqi.Category(last.Value), true, "")
	response.JSON(w, r, http.StatusOK, body)
}

// GetHistory handles GET /v1/air/history/{date} - hourly readings for a day.
func (h *AirHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		response.BadRequest(w, r, "date must be formatted as YYYY-MM-DD", nil)
		return
	}

	recs, err := h.store.HourlyForDay(r.Context(), date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("history lookup failed")
		response.InternalError(w, r, "could not load history")
		return
	}

	body := models.DayHistory{
		Date:     date,
		Readings: make([]models.HourlyReading, 0, len(recs)),
	}
	for _, rec := range recs {
		body.Readings = append(body.Readings, models.HourlyReading{
			Hour:     rec.Hour,
			AQI:      rec.Value,
			Category: aqi.Category(rec.Value),
			Location: rec.Location,
			Source:   string(rec.Source),
		})
	}
	response.JSON(w, r, http.StatusOK, body)
}

// GetDaily handles GET /v1/air/daily - daily maxima for a month.
//
// The "month" parameter defaults to the current month in the reporting
// timezone.
func (h *AirHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().In(h.tz).Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		response.BadRequest(w, r, "month must be formatted as YYYY-MM", nil)
		return
	}

	maxima, err := h.store.DailyForMonth(r.Context(), month)
	if err != nil {
		h.logger.Error().Err(err).Str("month", month).Msg("daily maxima lookup failed")
		response.InternalError(w, r, "could not load daily maxima")
		return
	}

	body := models.MonthDaily{
		Month: month,
		Days:  make([]models.DailyMax, 0, len(maxima)),
	}
	for _, dm := range maxima {
		body.Days = append(body.Days, models.NewDailyMax(dm, aqi.Category(dm.Value)))
	}
	response.JSON(w, r, http.StatusOK, body)
}

// GetOutlook handles GET /v1/air/outlook - the short-horizon prediction
// seeded from the latest stored reading.
func (h *AirHandler) GetOutlook(w http.ResponseWriter, r *http.Request) {
	recent, err := h.store.LastTwo(r.Context(), "")
	if err != nil {
		h.logger.Error().Err(err).Msg("outlook lookup failed")
		response.InternalError(w, r, "could not load readings")
		return
	}
	if len(recent) == 0 {
		response.NotFound(w, r, "no readings recorded yet")
		return
	}

	last := recent[0]
	body := models.Outlook{
		BasedOn: models.NewCurrentAir(last, aqi.Category(last.Value), false, ""),
		Points:  h.predictor.NextHours(last.Value, -1),
	}
	response.JSON(w, r, http.StatusOK, body)
}
