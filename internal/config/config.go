// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/aqibeacon/aqibeacon/internal/database"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full service configuration.
type Config struct {
	Port        string `validate:"required"`
	Environment string
	LogLevel    string

	// Providers.
	WAQIToken          string `validate:"required"`
	WAQIBaseURL        string
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	ProviderTimeout    time.Duration

	// Reporting timezone for (date, hour) buckets.
	Timezone string

	// FallbackLabel names readings when no station label is available.
	FallbackLabel string

	// StagnancyWindow is how many stored readings a repeated primary value
	// must match before it is rejected.
	StagnancyWindow int `validate:"min=1"`

	// Location resolution.
	HomeLat        float64 `validate:"omitempty,latitude"`
	HomeLon        float64 `validate:"omitempty,longitude"`
	GeocoderAPIKey string
	GeocodeCity    string
	GeocodeState   string
	GeocodeCountry string
	BeaconOwnerID  string
	BeaconMaxAge   time.Duration

	// Storage.
	StoreDriver string `validate:"oneof=postgres sqlite memory"`
	SQLitePath  string
	Database    database.Config

	// Cloud mirror. Empty project disables mirroring.
	PubSubProjectID string
	PubSubTopic     string
	MirrorOwner     string

	// Indoor sensor. Empty URL disables the monitor.
	SensorURL       string
	SensorThreshold int
	SensorInterval  time.Duration

	// RecordInterval is the scheduled record cadence.
	RecordInterval time.Duration

	// RateLimit is requests per minute per client on the HTTP API.
	RateLimit int

	// Telemetry.
	TelemetryEnabled bool
	OTLPEndpoint     string
}

// Load reads configuration from the environment with sensible defaults. A
// .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // absence of .env is the normal case

	cfg := &Config{
		Port:        getenvDefault("PORT", "8080"),
		Environment: getenvDefault("ENVIRONMENT", "development"),
		LogLevel:    getenvDefault("LOG_LEVEL", "info"),

		WAQIToken:          os.Getenv("WAQI_TOKEN"),
		WAQIBaseURL:        os.Getenv("WAQI_BASE_URL"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),

		Timezone:      getenvDefault("REPORTING_TIMEZONE", "Asia/Kolkata"),
		FallbackLabel: getenvDefault("FALLBACK_LABEL", "Local Area"),

		StagnancyWindow: getenvInt("STAGNANCY_WINDOW", 1),

		HomeLat:        getenvFloat("HOME_LAT", 0),
		HomeLon:        getenvFloat("HOME_LON", 0),
		GeocoderAPIKey: os.Getenv("GEOCODER_API_KEY"),
		GeocodeCity:    os.Getenv("GEOCODE_CITY"),
		GeocodeState:   os.Getenv("GEOCODE_STATE"),
		GeocodeCountry: os.Getenv("GEOCODE_COUNTRY"),
		BeaconOwnerID:  getenvDefault("BEACON_OWNER_ID", "default"),

		StoreDriver: getenvDefault("STORE_DRIVER", DriverSQLite),
		SQLitePath:  getenvDefault("SQLITE_PATH", "aqibeacon.db"),

		PubSubProjectID: os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:     getenvDefault("PUBSUB_TOPIC", "aqi-mirror"),
		MirrorOwner:     getenvDefault("MIRROR_OWNER", "default"),

		SensorURL:       os.Getenv("SENSOR_URL"),
		SensorThreshold: getenvInt("SENSOR_THRESHOLD", 150),

		RateLimit: getenvInt("RATE_LIMIT_PER_MINUTE", 60),

		TelemetryEnabled: getenvBool("TELEMETRY_ENABLED", false),
		OTLPEndpoint:     getenvDefault("OTLP_ENDPOINT", "localhost:4317"),
	}

	var err error
	if cfg.ProviderTimeout, err = getenvDuration("PROVIDER_TIMEOUT", 8*time.Second); err != nil {
		return nil, err
	}
	if cfg.BeaconMaxAge, err = getenvDuration("BEACON_MAX_AGE", 2*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SensorInterval, err = getenvDuration("SENSOR_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RecordInterval, err = getenvDuration("RECORD_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	dbLifetime, err := getenvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Database = database.Config{
		Host:            getenvDefault("DB_HOST", "localhost"),
		Port:            getenvInt("DB_PORT", 5432),
		User:            getenvDefault("DB_USER", "aqibeacon"),
		Password:        getenvDefault("DB_PASSWORD", "localdev"),
		Database:        getenvDefault("DB_NAME", "aqibeacon"),
		SSLMode:         getenvDefault("DB_SSL_MODE", "disable"),
		MaxOpenConns:    getenvInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getenvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: dbLifetime,
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid REPORTING_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location returns the parsed reporting timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MirrorEnabled reports whether a cloud mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.PubSubProjectID != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
