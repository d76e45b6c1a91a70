package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqibeacon/aqibeacon/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WAQI_TOKEN", "test-token")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	assert.Equal(t, "Local Area", cfg.FallbackLabel)
	assert.Equal(t, 1, cfg.StagnancyWindow)
	assert.Equal(t, 150, cfg.SensorThreshold)
	assert.Equal(t, time.Hour, cfg.RecordInterval)
	assert.False(t, cfg.MirrorEnabled())
}

func TestLoad_MissingToken(t *testing.T) {
	t.Setenv("WAQI_TOKEN", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_BadDriver(t *testing.T) {
	t.Setenv("WAQI_TOKEN", "test-token")
	t.Setenv("STORE_DRIVER", "oracle")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("WAQI_TOKEN", "test-token")
	t.Setenv("REPORTING_TIMEZONE", "Mars/Olympus")

	_, err := config.Load()
	require.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("WAQI_TOKEN", "test-token")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("HOME_LAT", "13.0827")
	t.Setenv("HOME_LON", "80.2707")
	t.Setenv("RECORD_INTERVAL", "30m")
	t.Setenv("PUBSUB_PROJECT_ID", "my-project")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DriverPostgres, cfg.StoreDriver)
	assert.InDelta(t, 13.0827, cfg.HomeLat, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.RecordInterval)
	assert.True(t, cfg.MirrorEnabled())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}
