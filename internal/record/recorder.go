// Package record runs the hourly record cycle: resolve one reading, persist
// it, roll the daily maximum forward and replicate to the cloud mirror.
package record

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/mirror"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

const meterName = "aqibeacon/record"

// mirrorTimeout bounds one background replication, independent of the
// request context that triggered the cycle.
const mirrorTimeout = 30 * time.Second

// Resolver produces one authoritative reading.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*reading.Reading, acquire.Outcome, error)
}

// Config holds the recorder's collaborators.
type Config struct {
	Resolver Resolver
	Store    history.Store
	Mirror   mirror.Mirror
	Logger   zerolog.Logger
}

// Result summarizes a completed record cycle.
type Result struct {
	Reading reading.Reading
	Outcome acquire.Outcome
}

// Recorder executes record cycles. Persistence must succeed for the cycle to
// count; mirroring happens in the background and its failure is logged,
// never returned and never waited on by the caller.
type Recorder struct {
	resolver Resolver
	store    history.Store
	mirror   mirror.Mirror
	logger   zerolog.Logger

	replications sync.WaitGroup

	cycleTotal metric.Int64Counter
	aqiGauge   metric.Int64Gauge
}

// NewRecorder creates a Recorder.
func NewRecorder(cfg Config) (*Recorder, error) {
	meter := otel.Meter(meterName)

	cycleTotal, err := meter.Int64Counter(
		"record_cycles_total",
		metric.WithDescription("Completed record cycles by tier and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create cycle counter: %w", err)
	}

	aqiGauge, err := meter.Int64Gauge(
		"recorded_aqi",
		metric.WithDescription("Most recently recorded AQI value"),
	)
	if err != nil {
		return nil, fmt.Errorf("create aqi gauge: %w", err)
	}

	m := cfg.Mirror
	if m == nil {
		m = mirror.Noop{}
	}

	return &Recorder{
		resolver:   cfg.Resolver,
		store:      cfg.Store,
		mirror:     m,
		logger:     cfg.Logger,
		cycleTotal: cycleTotal,
		aqiGauge:   aqiGauge,
	}, nil
}

// Record runs one cycle for the query (usually empty: the tracked location).
// It returns acquire.ErrExhausted when no tier produced a reading; that is
// the only condition under which nothing is persisted.
func (r *Recorder) Record(ctx context.Context, query string) (*Result, error) {
	rec, outcome, err := r.resolver.Resolve(ctx, query)
	if err != nil {
		r.cycleTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", string(outcome.Tier)),
			attribute.String("result", "failed"),
		))
		r.logger.Error().Err(err).Msg("record cycle produced no reading")
		return nil, err
	}

	if err := r.store.UpsertHourly(ctx, *rec); err != nil {
		r.cycleTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", string(outcome.Tier)),
			attribute.String("result", "store_error"),
		))
		return nil, fmt.Errorf("persist hourly reading: %w", err)
	}

	if err := r.store.UpsertDailyMax(ctx, *rec); err != nil {
		// The hourly write is already durable; losing one daily-max
		// update is recoverable from the hourly rows.
		r.logger.Warn().Err(err).Msg("daily max update failed")
	}

	r.replications.Add(1)
	go r.replicate(*rec)

	r.cycleTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", string(outcome.Tier)),
		attribute.String("result", "ok"),
	))
	r.aqiGauge.Record(ctx, int64(rec.Value), metric.WithAttributes(
		attribute.String("source", string(rec.Source)),
	))

	r.logger.Info().
		Int("aqi", rec.Value).
		Str("location", rec.Location).
		Str("source", string(rec.Source)).
		Str("tier", string(outcome.Tier)).
		Bool("stagnant_primary", outcome.StagnantPrimary).
		Msg("reading recorded")

	return &Result{Reading: *rec, Outcome: outcome}, nil
}

// replicate pushes one reading and its daily-max update to the mirror. It
// runs off the request path with its own deadline, so a slow or unreachable
// mirror cannot stall a record cycle.
func (r *Recorder) replicate(rec reading.Reading) {
	defer r.replications.Done()

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	if err := r.mirror.Replicate(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("key", rec.Key()).Msg("mirror replication failed")
		return
	}

	dm := history.DailyMax{
		Date:      rec.Date,
		Value:     rec.Value,
		Location:  rec.Location,
		UpdatedAt: rec.RecordedAt,
	}
	if err := r.mirror.ReplicateDailyMax(ctx, dm); err != nil {
		r.logger.Warn().Err(err).Str("date", rec.Date).Msg("daily max replication failed")
	}
}

// Wait blocks until all in-flight replications have finished. Callers that
// are about to exit (the one-shot recorder, server shutdown) use it to let
// the mirror flush before its client is closed.
func (r *Recorder) Wait() {
	r.replications.Wait()
}
