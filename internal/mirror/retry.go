package mirror

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/aqibeacon/aqibeacon/internal/history"
	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// RetryConfig holds configuration for the retrying decorator.
type RetryConfig struct {
	// MaxRetries is the number of retry attempts after the first try.
	// Default: 3
	MaxRetries uint64

	// InitialInterval is the initial backoff interval. Default: 500ms
	InitialInterval time.Duration

	// MaxInterval is the maximum backoff interval. Default: 10s
	MaxInterval time.Duration

	Logger zerolog.Logger
}

// Retrying wraps a Mirror with exponential backoff. Unlike the provider
// adapters, the mirror can afford retries: it runs after the reading is
// already persisted locally and nothing downstream waits on it.
type Retrying struct {
	next Mirror
	cfg  RetryConfig
}

// NewRetrying creates a retrying decorator around next.
func NewRetrying(next Mirror, cfg RetryConfig) *Retrying {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	return &Retrying{next: next, cfg: cfg}
}

func (r *Retrying) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.cfg.InitialInterval
	bo.MaxInterval = r.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.cfg.MaxRetries), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil {
			r.cfg.Logger.Warn().Err(err).Int("attempt", attempt).Msg("mirror publish failed")
		}
		return err
	}, policy)
}

// Replicate pushes one hourly reading, retrying transient failures.
func (r *Retrying) Replicate(ctx context.Context, rec reading.Reading) error {
	return r.retry(ctx, func() error { return r.next.Replicate(ctx, rec) })
}

// ReplicateDailyMax pushes a daily maximum update, retrying transient
// failures.
func (r *Retrying) ReplicateDailyMax(ctx context.Context, dm history.DailyMax) error {
	return r.retry(ctx, func() error { return r.next.ReplicateDailyMax(ctx, dm) })
}

// Close closes the wrapped mirror.
func (r *Retrying) Close() error {
	return r.next.Close()
}

// Ensure Retrying implements Mirror.
var _ Mirror = (*Retrying)(nil)
