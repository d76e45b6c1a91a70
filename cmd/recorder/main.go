// Package main provides a one-shot record cycle, suitable for cron or a
// scheduled container job as an alternative to the API server's built-in
// scheduler.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/acquire"
	"github.com/aqibeacon/aqibeacon/internal/config"
	"github.com/aqibeacon/aqibeacon/internal/database"
	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/locate"
	"github.com/aqibeacon/aqibeacon/internal/mirror"
	"github.com/aqibeacon/aqibeacon/internal/provider/openweather"
	"github.com/aqibeacon/aqibeacon/internal/provider/waqi"
	"github.com/aqibeacon/aqibeacon/internal/record"
)

func main() {
	query := flag.String("query", "", "station query (city name or @id); empty uses the tracked location")
	timeout := flag.Duration("timeout", 2*time.Minute, "cycle timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", "aqibeacon-recorder").
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer store.Close() //nolint:errcheck // process is exiting

	resolverCfg := acquire.Config{
		Primary: waqi.NewClient(waqi.ClientConfig{
			Token:   cfg.WAQIToken,
			BaseURL: cfg.WAQIBaseURL,
			Timeout: cfg.ProviderTimeout,
		}),
		Locator:       buildLocator(cfg, store),
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
	}

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
		defer pubsubMirror.Close() //nolint:errcheck // process is exiting
		replicator = mirror.NewRetrying(pubsubMirror, mirror.RetryConfig{Logger: log})
	}

	recorder, err := record.NewRecorder(record.Config{
		Resolver: acquire.NewResolver(resolverCfg),
		Store:    store,
		Mirror:   replicator,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create recorder")
	}

	result, err := recorder.Record(ctx, *query)
	if err != nil {
		log.Error().Err(err).Msg("record cycle failed")
		os.Exit(1)
	}

	// One-shot mode: let replication finish before the mirror is closed.
	recorder.Wait()

	log.Info().
		Int("aqi", result.Reading.Value).
		Str("location", result.Reading.Location).
		Str("tier", string(result.Outcome.Tier)).
		Msg("record cycle completed")
}

func buildLocator(cfg *config.Config, store history.Store) locate.Locator {
	chain := locate.Chain{locate.NewBeacon(locate.BeaconConfig{
		Reader:  store,
		OwnerID: cfg.BeaconOwnerID,
		MaxAge:  cfg.BeaconMaxAge,
	})}
	if cfg.HomeLat != 0 || cfg.HomeLon != 0 {
		chain = append(chain, locate.Static{Lat: cfg.HomeLat, Lon: cfg.HomeLon})
	}
	return chain
}

func openStore(ctx context.Context, cfg *config.Config) (history.Store, error) {
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
		return store, nil
	case config.DriverSQLite:
		return history.OpenSQLite(cfg.SQLitePath)
	default:
		return history.NewMemoryStore(), nil
	}
}
