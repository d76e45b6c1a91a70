// Package main provides the entrypoint for the AQI Beacon API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/api"
	"github.com/aqibeacon/aqibeacon/internal/config"
	"github.com/aqibeacon/aqibeacon/internal/database"
	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/locate"
	"github.com/aqibeacon/aqibeacon/internal/mirror"
	"github.com/aqibeacon/aqibeacon/internal/provider/openweather"
	"github.com/aqibeacon/aqibeacon/internal/provider/waqi"
	"github.com/aqibeacon/aqibeacon/internal/record"
	"github.com/aqibeacon/aqibeacon/internal/scheduler"
	"github.com/aqibeacon/aqibeacon/internal/sensor"
	"github.com/aqibeacon/aqibeacon/internal/telemetry"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// recordJob adapts the recorder to the scheduler's job contract.
type recordJob struct {
	recorder *record.Recorder
}

func (j recordJob) Record(ctx context.Context, query string) error {
	_, err := j.recorder.Record(ctx, query)
	return err
}

func main() {
	const serviceName = "aqibeacon-api"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("environment", cfg.Environment).
		Str("timezone", cfg.Timezone).
		Msg("starting AQI Beacon API")

	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	// Open the history store
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close history store")
		}
	}()

	// Providers
	primary := waqi.NewClient(waqi.ClientConfig{
		Token:   cfg.WAQIToken,
		BaseURL: cfg.WAQIBaseURL,
		Timeout: cfg.ProviderTimeout,
	})

	resolverCfg := acquire.Config{
		Primary:       primary,
		Locator:       buildLocator(cfg, store, log),
		History:       store,
		Stagnancy:     acquire.Detector{Window: cfg.StagnancyWindow},
		FallbackLabel: cfg.FallbackLabel,
		TimeZone:      cfg.Location(),
		Logger:        log,
	}
	if cfg.OpenWeatherAPIKey != "" {
		resolverCfg.Secondary = openweather.NewClient(openweather.ClientConfig{
			APIKey:  cfg.OpenWeatherAPIKey,
			BaseURL: cfg.OpenWeatherBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
	} else {
		log.Warn().Msg("no OpenWeather API key configured - secondary tier disabled")
	}
	resolver := acquire.NewResolver(resolverCfg)

	// Cloud mirror
	var replicator mirror.Mirror
	if cfg.MirrorEnabled() {
		pubsubMirror, err := mirror.NewPubSubMirror(ctx, mirror.PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			TopicName: cfg.PubSubTopic,
			Owner:     cfg.MirrorOwner,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub mirror")
		}
		defer func() {
			if closeErr := pubsubMirror.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub mirror")
			}
		}()
		replicator = mirror.NewRetrying(pubsubMirror, mirror.RetryConfig{Logger: log})
		log.Info().
			Str("project", cfg.PubSubProjectID).
			Str("topic", cfg.PubSubTopic).
			Msg("cloud mirror enabled")
	} else {
		log.Info().Msg("no cloud mirror configured - readings stay local")
	}

	recorder, err := record.NewRecorder(record.Config{
		Resolver: resolver,
		Store:    store,
		Mirror:   replicator,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create recorder")
	}
	// Runs before the mirror's Close on shutdown, flushing in-flight
	// replications.
	defer recorder.Wait()

	routerCfg := api.RouterConfig{
		Version:     Version,
		Logger:      log,
		Recorder:    recorder,
		Store:       store,
		BeaconOwner: cfg.BeaconOwnerID,
		TimeZone:    cfg.Location(),
		RateLimit:   cfg.RateLimit,
	}

	// Indoor sensor monitor
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	if cfg.SensorURL != "" {
		monitor := sensor.NewMonitor(sensor.MonitorConfig{
			Source: sensor.NewClient(sensor.ClientConfig{
				BaseURL: cfg.SensorURL,
				Timeout: cfg.ProviderTimeout,
			}),
			Interval:  cfg.SensorInterval,
			Threshold: cfg.SensorThreshold,
			Logger:    log,
		})
		go monitor.Run(monitorCtx)
		routerCfg.Sensor = monitor
		log.Info().Str("url", cfg.SensorURL).Msg("indoor sensor monitor started")
	}

	// Hourly record schedule
	sched := scheduler.New(scheduler.Config{
		Recorder: recordJob{recorder: recorder},
		Interval: cfg.RecordInterval,
		TimeZone: cfg.Location(),
		Logger:   log,
	})
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	router := api.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// openStore selects the history backend from configuration.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (history.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		store := history.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Str("database", cfg.Database.Database).
			Msg("postgres history store ready")
		return store, nil

	case config.DriverSQLite:
		store, err := history.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite history store ready")
		return store, nil

	default:
		log.Warn().Msg("using in-memory history store - readings are lost on restart")
		return history.NewMemoryStore(), nil
	}
}

// buildLocator assembles the coordinate resolution chain: freshest device
// beacon first, then the configured home coordinates, then the geocoded home
// address.
func buildLocator(cfg *config.Config, store history.Store, log zerolog.Logger) locate.Locator {
	var chain locate.Chain

	chain = append(chain, locate.NewBeacon(locate.BeaconConfig{
		Reader:  store,
		OwnerID: cfg.BeaconOwnerID,
		MaxAge:  cfg.BeaconMaxAge,
	}))

	if cfg.HomeLat != 0 || cfg.HomeLon != 0 {
		chain = append(chain, locate.Static{Lat: cfg.HomeLat, Lon: cfg.HomeLon})
	}

	if cfg.GeocoderAPIKey != "" && cfg.GeocodeCity != "" {
		chain = append(chain, locate.NewGeocode(locate.GeocodeConfig{
			APIKey:  cfg.GeocoderAPIKey,
			City:    cfg.GeocodeCity,
			State:   cfg.GeocodeState,
			Country: cfg.GeocodeCountry,
		}))
	}

	if len(chain) == 1 {
		log.Warn().Msg("no home coordinates or geocode address configured - relying on device beacons")
	}
	return chain
}
