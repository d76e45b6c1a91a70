package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// Message kinds carried in the "kind" attribute.
const (
	KindHourly   = "hourly_reading"
	KindDailyMax = "daily_max"
)

// PubSubConfig holds configuration for the Pub/Sub mirror.
type PubSubConfig struct {
	ProjectID string
	TopicName string

	// Owner is the account whose remote hierarchy receives the records.
	Owner string

	Logger zerolog.Logger
}

// PubSubMirror publishes replication envelopes to a Pub/Sub topic; a cloud
// function on the other side applies them to the account's document store.
type PubSubMirror struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	owner     string
	logger    zerolog.Logger
}

// NewPubSubMirror creates a Pub/Sub-backed mirror.
func NewPubSubMirror(ctx context.Context, cfg PubSubConfig) (*PubSubMirror, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubMirror{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		owner:     cfg.Owner,
		logger:    cfg.Logger,
	}, nil
}

// Replicate publishes one hourly reading and waits for the server ack.
func (m *PubSubMirror) Replicate(ctx context.Context, rec reading.Reading) error {
	env := NewEnvelope(m.owner, rec)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	result := m.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":   KindHourly,
			"owner":  env.Owner,
			"date":   env.Date,
			"hour":   strconv.Itoa(env.Hour),
			"source": env.Source,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}

	m.logger.Debug().
		Str("message_id", id).
		Str("path", env.Path).
		Int("aqi", env.AQI).
		Msg("reading mirrored")
	return nil
}

// ReplicateDailyMax publishes a daily maximum update.
func (m *PubSubMirror) ReplicateDailyMax(ctx context.Context, dm history.DailyMax) error {
	env := NewDailyMaxEnvelope(m.owner, dm)
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal daily max envelope: %w", err)
	}

	result := m.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"kind":  KindDailyMax,
			"owner": env.Owner,
			"date":  env.Date,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish daily max: %w", err)
	}

	m.logger.Debug().
		Str("message_id", id).
		Str("path", env.Path).
		Int("max_aqi", env.MaxAQI).
		Msg("daily max mirrored")
	return nil
}

// Close flushes outstanding publishes and closes the client.
func (m *PubSubMirror) Close() error {
	m.publisher.Stop()
	return m.client.Close()
}

// Ensure PubSubMirror implements Mirror.
var _ Mirror = (*PubSubMirror)(nil)
