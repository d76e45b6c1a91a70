package acquire_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/aqi"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

var errDown = errors.New("provider down")

type fakePrimary struct {
	byCoords    *reading.Sample
	byCoordsErr error
	byQuery     *reading.Sample
	byQueryErr  error

	coordsCalls int
	queryCalls  int
	lastQuery   string
}

func (f *fakePrimary) FetchByCoords(_ context.Context, _, _ float64) (*reading.Sample, error) {
	f.coordsCalls++
	return f.byCoords, f.byCoordsErr
}

func (f *fakePrimary) FetchByQuery(_ context.Context, q string) (*reading.Sample, error) {
	f.queryCalls++
	f.lastQuery = q
	return f.byQuery, f.byQueryErr
}

type fakeSecondary struct {
	pm25  float64
	err   error
	calls int
}

func (f *fakeSecondary) FetchPM25(_ context.Context, _, _ float64) (float64, error) {
	f.calls++
	return f.pm25, f.err
}

type fakeLocator struct {
	lat, lon float64
	err      error
	calls    int
}

func (f *fakeLocator) Current(_ context.Context) (float64, float64, error) {
	f.calls++
	return f.lat, f.lon, f.err
}

type fakeHistory struct {
	readings []reading.Reading
	err      error
}

func (f *fakeHistory) LastTwo(_ context.Context, series string) ([]reading.Reading, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []reading.Reading
	for _, r := range f.readings {
		if series == "" || r.Location == series {
			out = append(out, r)
		}
		if len(out) == 2 {
			break
		}
	}
	return out, nil
}

func hist(values ...int) *fakeHistory {
	h := &fakeHistory{}
	for i, v := range values {
		h.readings = append(h.readings, reading.Reading{
			Value:    v,
			Location: "Chennai US Consulate",
			Date:     "2026-08-28",
			Hour:     12 - i,
		})
	}
	return h
}

func newResolver(t *testing.T, cfg acquire.Config) *acquire.Resolver {
	t.Helper()
	cfg.Logger = zerolog.Nop()
	if cfg.Now == nil {
		cfg.Now = func() time.Time {
			return time.Date(2026, 8, 28, 14, 5, 0, 0, time.UTC)
		}
	}
	return acquire.NewResolver(cfg)
}

func TestResolve_PrimaryWinsRegardlessOfRest(t *testing.T) {
	primary := &fakePrimary{byCoords: &reading.Sample{AQI: 87, Station: "Chennai US Consulate"}}
	secondary := &fakeSecondary{pm25: 10}
	r := newResolver(t, acquire.Config{
		Primary:   primary,
		Secondary: secondary,
		Locator:   &fakeLocator{lat: 13.08, lon: 80.27},
		History:   hist(90, 100),
	})

	rd, out, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 87, rd.Value)
	assert.Equal(t, reading.SourcePrimary, rd.Source)
	assert.Equal(t, "Chennai US Consulate", rd.Location)
	assert.Equal(t, acquire.TierPrimaryCoords, out.Tier)
	assert.False(t, out.StagnantPrimary)
	assert.Zero(t, secondary.calls, "secondary must not be consulted when primary wins")
}

func TestResolve_AcceptedPrimaryLogsPM25(t *testing.T) {
	var buf bytes.Buffer
	pm := 87.0
	primary := &fakePrimary{byCoords: &reading.Sample{AQI: 92, Station: "Chennai US Consulate", PM25: &pm}}
	r := acquire.NewResolver(acquire.Config{
		Primary: primary,
		Locator: &fakeLocator{lat: 13.08, lon: 80.27},
		History: hist(),
		Logger:  zerolog.New(&buf).Level(zerolog.DebugLevel),
	})

	_, out, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, acquire.TierPrimaryCoords, out.Tier)
	assert.Contains(t, buf.String(), `"pm25":87`,
		"the station's PM2.5 sub-index must be logged with the accepted reading")
	assert.Contains(t, buf.String(), `"aqi":92`)
}

func TestResolve_QueryGoesToPrimaryVerbatim(t *testing.T) {
	primary := &fakePrimary{byQuery: &reading.Sample{AQI: 42, Station: "Delhi"}}
	locator := &fakeLocator{err: errDown}
	r := newResolver(t, acquire.Config{
		Primary: primary,
		Locator: locator,
		History: hist(),
	})

	rd, out, err := r.Resolve(context.Background(), "@7024")
	require.NoError(t, err)
	assert.Equal(t, "@7024", primary.lastQuery)
	assert.Equal(t, acquire.TierPrimaryQuery, out.Tier)
	assert.Equal(t, reading.SourcePrimary, rd.Source)
	assert.Zero(t, primary.coordsCalls)
	assert.Zero(t, locator.calls, "query branch must not resolve coordinates")
}

func TestResolve_FallsBackToSecondaryWithConversion(t *testing.T) {
	primary := &fakePrimary{byCoordsErr: errDown}
	secondary := &fakeSecondary{pm25: 10.0}
	r := newResolver(t, acquire.Config{
		Primary:   primary,
		Secondary: secondary,
		Locator:   &fakeLocator{lat: 13.08, lon: 80.27},
		History:   hist(),
	})

	rd, out, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, aqi.FromPM25(10.0), rd.Value)
	assert.Equal(t, reading.SourceSecondary, rd.Source)
	assert.Equal(t, "Local Area", rd.Location)
	assert.Equal(t, acquire.TierSecondary, out.Tier)
}

func TestResolve_StagnantPrimaryForcesFallback(t *testing.T) {
	h := hist(90, 84)
	primary := &fakePrimary{byCoords: &reading.Sample{AQI: 90, Station: "Chennai US Consulate"}}
	secondary := &fakeSecondary{pm25: 22.0}
	r := newResolver(t, acquire.Config{
		Primary:   primary,
		Secondary: secondary,
		Locator:   &fakeLocator{lat: 13.08, lon: 80.27},
		History:   h,
	})

	rd, out, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, reading.SourceSecondary, rd.Source, "stagnant primary value must not be returned")
	assert.True(t, out.StagnantPrimary)
	assert.Equal(t, "regional backup in use", out.Note)
	assert.Equal(t, acquire.TierSecondary, out.Tier)
}

func TestResolve_QueryFailureStillTriesSecondaryByCoords(t *testing.T) {
	primary := &fakePrimary{byQueryErr: errDown}
	secondary := &fakeSecondary{pm25: 35.4}
	locator := &fakeLocator{lat: 13.08, lon: 80.27}
	r := newResolver(t, acquire.Config{
		Primary:   primary,
		Secondary: secondary,
		Locator:   locator,
		History:   hist(),
	})

	rd, out, err := r.Resolve(context.Background(), "chennai")
	require.NoError(t, err)
	assert.Equal(t, acquire.TierSecondary, out.Tier)
	assert.Equal(t, 100, rd.Value)
	assert.Equal(t, "chennai", rd.Location, "query label is kept for secondary readings")
}

func TestResolve_FullOutageEstimatesFromTrend(t *testing.T) {
	r := newResolver(t, acquire.Config{
		Primary:   &fakePrimary{byCoordsErr: errDown},
		Secondary: &fakeSecondary{err: errDown},
		Locator:   &fakeLocator{lat: 13.08, lon: 80.27},
		History:   hist(100, 90),
	})

	rd, out, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 110, rd.Value)
	assert.Equal(t, reading.SourceEstimated, rd.Source)
	assert.Equal(t, acquire.TierEstimate, out.Tier)
	assert.Equal(t, "Chennai US Consulate", rd.Location)
}

func TestResolve_CoordinatesUnavailableSkipsToTrend(t *testing.T) {
	locator := &fakeLocator{err: errDown}
	secondary := &fakeSecondary{pm25: 10}
	r := newResolver(t, acquire.Config{
		Primary:   &fakePrimary{byCoordsErr: errDown},
		Secondary: secondary,
		Locator:   locator,
		History:   hist(60, 60),
	})

	rd, _, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, reading.SourceEstimated, rd.Source)
	assert.Zero(t, secondary.calls, "secondary needs coordinates")
	assert.Equal(t, 1, locator.calls, "locator is consulted once per resolve")
}

func TestResolve_TerminalFailureWithoutHistory(t *testing.T) {
	r := newResolver(t, acquire.Config{
		Primary:   &fakePrimary{byCoordsErr: errDown},
		Secondary: &fakeSecondary{err: errDown},
		Locator:   &fakeLocator{err: errDown},
		History:   hist(77),
	})

	rd, out, err := r.Resolve(context.Background(), "")
	require.ErrorIs(t, err, acquire.ErrExhausted)
	assert.Nil(t, rd)
	assert.Equal(t, acquire.TierNone, out.Tier)
}

func TestResolve_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newResolver(t, acquire.Config{
		Primary:   &fakePrimary{byCoordsErr: context.Canceled},
		Secondary: &fakeSecondary{err: context.Canceled},
		Locator:   &fakeLocator{err: context.Canceled},
		History:   hist(),
	})

	rd, _, err := r.Resolve(ctx, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rd)
}

func TestResolve_ReadingBucketUsesReportingTimezone(t *testing.T) {
	ist := time.FixedZone("IST", int(5.5*3600))
	r := newResolver(t, acquire.Config{
		Primary:  &fakePrimary{byCoords: &reading.Sample{AQI: 55, Station: "Chennai US Consulate"}},
		Locator:  &fakeLocator{lat: 13.08, lon: 80.27},
		History:  hist(),
		TimeZone: ist,
		Now: func() time.Time {
			// 21:05 UTC is 02:35 the next day in IST.
			return time.Date(2026, 8, 28, 21, 5, 0, 0, time.UTC)
		},
	})

	rd, _, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-29", rd.Date)
	assert.Equal(t, 2, rd.Hour)
}
