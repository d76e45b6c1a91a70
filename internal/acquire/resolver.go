// Package acquire implements the tiered acquisition pipeline that turns
// several unreliable external sources into one authoritative reading.
package acquire

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/aqi"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// ErrExhausted is returned when every acquisition tier failed and no reading
// could be produced. It is the only failure that crosses the resolver
// boundary; individual tier errors are swallowed.
var ErrExhausted = errors.New("all acquisition tiers exhausted")

// Tier identifies which step of the pipeline produced (or rejected) a value.
type Tier string

const (
	TierPrimaryQuery  Tier = "primary_query"
	TierPrimaryCoords Tier = "primary_coords"
	TierSecondary     Tier = "secondary"
	TierEstimate      Tier = "estimate"
	TierNone          Tier = "none"
)

// Outcome describes how a resolution concluded.
type Outcome struct {
	// Tier is the step that produced the reading, or TierNone on failure.
	Tier Tier

	// Source is the provenance tag of the produced reading.
	Source reading.Source

	// StagnantPrimary is set when the primary source answered but was
	// rejected for repeating the last stored value.
	StagnantPrimary bool

	// Note is an optional human-readable explanation for the caller,
	// e.g. "regional backup in use".
	Note string
}

// Locator resolves the current device or account coordinates. Failure means
// "coordinates unavailable" and skips the coordinate-dependent tiers.
type Locator interface {
	Current(ctx context.Context) (lat, lon float64, err error)
}

// HistoryReader is the slice of the history store the resolver needs: the
// most recent readings, newest first. An empty series means "any series".
type HistoryReader interface {
	LastTwo(ctx context.Context, series string) ([]reading.Reading, error)
}

// Config holds the resolver's injected collaborators. Sources and stores are
// always passed in explicitly; the resolver keeps no ambient state.
type Config struct {
	Primary   reading.PrimarySource
	Secondary reading.SecondarySource
	Locator   Locator
	History   HistoryReader

	// Stagnancy guards tier 2 against frozen primary feeds.
	Stagnancy Detector

	// FallbackLabel names secondary-tier readings when the caller gave no
	// query (default: "Local Area").
	FallbackLabel string

	// TimeZone is the reporting timezone used for (date, hour) buckets
	// (default: UTC).
	TimeZone *time.Location

	// Now overrides the clock in tests.
	Now func() time.Time

	Logger zerolog.Logger
}

// Resolver runs the fixed tier sequence: primary by query, primary by
// coordinates (with stagnancy rejection), secondary with unit conversion,
// trend estimation, terminal failure. The order never changes and no tier is
// retried within a single Resolve call.
type Resolver struct {
	primary   reading.PrimarySource
	secondary reading.SecondarySource
	locator   Locator
	history   HistoryReader
	stagnancy Detector
	fallback  string
	tz        *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(cfg Config) *Resolver {
	fallback := cfg.FallbackLabel
	if fallback == "" {
		fallback = "Local Area"
	}
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		locator:   cfg.Locator,
		history:   cfg.History,
		stagnancy: cfg.Stagnancy,
		fallback:  fallback,
		tz:        tz,
		now:       now,
		logger:    cfg.Logger,
	}
}

// Resolve produces one authoritative reading for the given query, or
// ErrExhausted when every tier failed. A non-empty query is free text (city
// name or "@station") sent to the primary source verbatim; an empty query
// resolves the current coordinates instead.
func (r *Resolver) Resolve(ctx context.Context, query string) (*reading.Reading, Outcome, error) {
	out := Outcome{Tier: TierNone}

	var (
		lat, lon     float64
		haveCords    bool
		locatorTried bool
	)

	if query != "" {
		// Tier 1: primary by explicit query. Coordinates are not used
		// in this branch, and no stagnancy check applies: the caller
		// asked for a specific place, not the tracked series.
		if s, err := r.primary.FetchByQuery(ctx, query); err == nil {
			out.Tier = TierPrimaryQuery
			out.Source = reading.SourcePrimary
			r.logAccepted(out.Tier, s)
			return r.newReading(s.AQI, s.Station, reading.SourcePrimary), out, nil
		} else {
			r.logger.Debug().Err(err).Str("query", query).Msg("primary query tier failed")
		}
	} else {
		locatorTried = true
		la, lo, err := r.locator.Current(ctx)
		if err != nil {
			r.logger.Debug().Err(err).Msg("coordinates unavailable")
		} else {
			lat, lon, haveCords = la, lo, true

			// Tier 2: primary by coordinates, rejected if stagnant.
			s, err := r.primary.FetchByCoords(ctx, lat, lon)
			if err != nil {
				r.logger.Debug().Err(err).Msg("primary coords tier failed")
			} else {
				hist, herr := r.history.LastTwo(ctx, s.Station)
				if herr != nil {
					r.logger.Debug().Err(herr).Msg("stagnancy history lookup failed")
					hist = nil
				}
				if r.stagnancy.IsStagnant(s.AQI, hist) {
					out.StagnantPrimary = true
					out.Note = "regional backup in use"
					r.logger.Info().
						Int("aqi", s.AQI).
						Str("station", s.Station).
						Msg("primary value stagnant, forcing fallback")
				} else {
					out.Tier = TierPrimaryCoords
					out.Source = reading.SourcePrimary
					r.logAccepted(out.Tier, s)
					return r.newReading(s.AQI, s.Station, reading.SourcePrimary), out, nil
				}
			}
		}
	}

	// Tier 3: secondary by coordinates with PM2.5 conversion. When tier 1
	// failed we still try the device coordinates here.
	if !haveCords && !locatorTried && r.locator != nil {
		if la, lo, err := r.locator.Current(ctx); err == nil {
			lat, lon, haveCords = la, lo, true
		} else {
			r.logger.Debug().Err(err).Msg("coordinates unavailable")
		}
	}
	if haveCords && r.secondary != nil {
		pm25, err := r.secondary.FetchPM25(ctx, lat, lon)
		if err != nil {
			r.logger.Debug().Err(err).Msg("secondary tier failed")
		} else {
			label := query
			if label == "" {
				label = r.fallback
			}
			out.Tier = TierSecondary
			out.Source = reading.SourceSecondary
			return r.newReading(aqi.FromPM25(pm25), label, reading.SourceSecondary), out, nil
		}
	}

	// Tier 4: trend estimation from the two most recent stored readings,
	// whichever series they belong to.
	hist, err := r.history.LastTwo(ctx, "")
	if err != nil {
		r.logger.Debug().Err(err).Msg("trend history lookup failed")
	} else if len(hist) >= 2 {
		out.Tier = TierEstimate
		out.Source = reading.SourceEstimated
		est := EstimateNext(hist[0].Value, hist[1].Value)
		return r.newReading(est, hist[0].Location, reading.SourceEstimated), out, nil
	}

	if ctx.Err() != nil {
		return nil, out, ctx.Err()
	}
	return nil, out, ErrExhausted
}

// logAccepted records the accepted primary sample. The PM2.5 sub-index is
// included when the station reports one, so a composite index driven by
// another pollutant shows up in the logs.
func (r *Resolver) logAccepted(tier Tier, s *reading.Sample) {
	evt := r.logger.Debug().
		Str("tier", string(tier)).
		Int("aqi", s.AQI).
		Str("station", s.Station)
	if s.PM25 != nil {
		evt = evt.Float64("pm25", *s.PM25)
	}
	evt.Msg("primary reading accepted")
}

func (r *Resolver) newReading(value int, label string, src reading.Source) *reading.Reading {
	now := r.now()
	date, hour := reading.Bucket(now, r.tz)
	return &reading.Reading{
		Value:      reading.ClampAQI(value),
		Location:   label,
		Source:     src,
		Date:       date,
		Hour:       hour,
		RecordedAt: now,
	}
}
