package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqibeacon/aqibeacon/internal/scheduler"
)

type countingRecorder struct {
	calls atomic.Int32
}

func (c *countingRecorder) Record(_ context.Context, _ string) error {
	c.calls.Add(1)
	return nil
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	rec := &countingRecorder{}
	s := scheduler.New(scheduler.Config{
		Recorder: rec,
		Interval: 20 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return rec.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_StopPreventsFurtherRuns(t *testing.T) {
	rec := &countingRecorder{}
	s := scheduler.New(scheduler.Config{
		Recorder: rec,
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})

	require.NoError(t, s.Start())
	assert.Eventually(t, func() bool {
		return rec.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	after := rec.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, rec.calls.Load(), after+1)
}
