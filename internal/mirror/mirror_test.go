package mirror_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/mirror"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

type flakyMirror struct {
	failures int
	calls    int
}

func (f *flakyMirror) Replicate(_ context.Context, _ reading.Reading) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient publish failure")
	}
	return nil
}

func (f *flakyMirror) ReplicateDailyMax(_ context.Context, _ history.DailyMax) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient publish failure")
	}
	return nil
}

func (f *flakyMirror) Close() error { return nil }

func TestNewEnvelope(t *testing.T) {
	rec := reading.Reading{
		Value:    87,
		Location: "Chennai US Consulate",
		Source:   reading.SourcePrimary,
		Date:     "2026-08-28",
		Hour:     14,
	}

	env := mirror.NewEnvelope("user-1", rec)
	assert.Equal(t, "users/user-1/history/2026-08-28/hourly/14", env.Path)
	assert.Equal(t, 87, env.AQI)
	assert.Equal(t, "waqi", env.Source)
}

func TestNewDailyMaxEnvelope(t *testing.T) {
	dm := history.DailyMax{Date: "2026-08-28", Value: 120, Location: "Delhi"}

	env := mirror.NewDailyMaxEnvelope("user-1", dm)
	assert.Equal(t, "users/user-1/history/2026-08-28", env.Path)
	assert.Equal(t, 120, env.MaxAQI)
}

func TestRetrying_RecoversFromTransientFailure(t *testing.T) {
	flaky := &flakyMirror{failures: 2}
	r := mirror.NewRetrying(flaky, mirror.RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		Logger:          zerolog.Nop(),
	})

	err := r.Replicate(context.Background(), reading.Reading{Date: "2026-08-28", Hour: 14})
	require.NoError(t, err)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetrying_GivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyMirror{failures: 10}
	r := mirror.NewRetrying(flaky, mirror.RetryConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		Logger:          zerolog.Nop(),
	})

	err := r.Replicate(context.Background(), reading.Reading{Date: "2026-08-28", Hour: 14})
	require.Error(t, err)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetrying_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flaky := &flakyMirror{failures: 10}
	r := mirror.NewRetrying(flaky, mirror.RetryConfig{
		MaxRetries:      5,
		InitialInterval: 50 * time.Millisecond,
		Logger:          zerolog.Nop(),
	})

	err := r.Replicate(ctx, reading.Reading{})
	require.Error(t, err)
	assert.LessOrEqual(t, flaky.calls, 2)
}

func TestNoop(t *testing.T) {
	n := mirror.Noop{}
	assert.NoError(t, n.Replicate(context.Background(), reading.Reading{}))
	assert.NoError(t, n.ReplicateDailyMax(context.Background(), history.DailyMax{}))
	assert.NoError(t, n.Close())
}
