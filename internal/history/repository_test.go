package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

func rec(loc, date string, hour, value int) reading.Reading {
	return reading.Reading{
		Value:      value,
		Location:   loc,
		Source:     reading.SourcePrimary,
		Date:       date,
		Hour:       hour,
		RecordedAt: time.Date(2026, 8, 28, hour, 0, 0, 0, time.UTC),
	}
}

// runStoreSuite exercises the Store contract against any implementation.
func runStoreSuite(t *testing.T, open func(t *testing.T) history.Store) {
	ctx := context.Background()

	t.Run("upsert hourly is idempotent, last write wins", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 9, 80)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 9, 95)))

		got, err := s.LastTwo(ctx, "Chennai")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 95, got[0].Value)
	})

	t.Run("last two is newest first", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-27", 23, 60)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 8, 70)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 9, 90)))

		got, err := s.LastTwo(ctx, "Chennai")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 90, got[0].Value)
		assert.Equal(t, 70, got[1].Value)
	})

	t.Run("last two filters by series, empty matches any", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 8, 70)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Delhi", "2026-08-28", 9, 140)))

		got, err := s.LastTwo(ctx, "Chennai")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Chennai", got[0].Location)

		any, err := s.LastTwo(ctx, "")
		require.NoError(t, err)
		require.Len(t, any, 2)
		assert.Equal(t, "Delhi", any[0].Location)
	})

	t.Run("hourly for day ordered by hour", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 14, 90)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-28", 6, 40)))
		require.NoError(t, s.UpsertHourly(ctx, rec("Chennai", "2026-08-27", 6, 55)))

		got, err := s.HourlyForDay(ctx, "2026-08-28")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 6, got[0].Hour)
		assert.Equal(t, 14, got[1].Hour)
	})

	t.Run("daily max only moves upward", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertDailyMax(ctx, rec("Chennai", "2026-08-28", 9, 90)))
		require.NoError(t, s.UpsertDailyMax(ctx, rec("Chennai", "2026-08-28", 10, 60)))

		got, err := s.DailyForMonth(ctx, "2026-08")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 90, got[0].Value)

		require.NoError(t, s.UpsertDailyMax(ctx, rec("Delhi", "2026-08-28", 11, 120)))
		got, err = s.DailyForMonth(ctx, "2026-08")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 120, got[0].Value)
		assert.Equal(t, "Delhi", got[0].Location)
	})

	t.Run("daily for month excludes other months", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.UpsertDailyMax(ctx, rec("Chennai", "2026-07-31", 9, 90)))
		require.NoError(t, s.UpsertDailyMax(ctx, rec("Chennai", "2026-08-01", 9, 80)))
		require.NoError(t, s.UpsertDailyMax(ctx, rec("Chennai", "2026-08-02", 9, 85)))

		got, err := s.DailyForMonth(ctx, "2026-08")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2026-08-01", got[0].Date)
		assert.Equal(t, "2026-08-02", got[1].Date)
	})

	t.Run("beacon roundtrip", func(t *testing.T) {
		s := open(t)
		_, err := s.LastBeacon(ctx, "device-1")
		assert.ErrorIs(t, err, history.ErrNotFound)

		b := history.Beacon{
			OwnerID:   "device-1",
			Lat:       13.0827,
			Lon:       80.2707,
			UpdatedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.SaveBeacon(ctx, b))

		got, err := s.LastBeacon(ctx, "device-1")
		require.NoError(t, err)
		assert.InDelta(t, 13.0827, got.Lat, 1e-9)
		assert.InDelta(t, 80.2707, got.Lon, 1e-9)

		b.Lat = 28.6139
		require.NoError(t, s.SaveBeacon(ctx, b))
		got, err = s.LastBeacon(ctx, "device-1")
		require.NoError(t, err)
		assert.InDelta(t, 28.6139, got.Lat, 1e-9)
	})

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) history.Store {
		return history.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) history.Store {
		s, err := history.OpenSQLite(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
