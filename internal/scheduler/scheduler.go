// Package scheduler runs the record cycle on a fixed cadence.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Recorder is the job the scheduler drives.
type Recorder interface {
	Record(ctx context.Context, query string) error
}

// Config holds scheduler configuration.
type Config struct {
	// Recorder runs once per tick (required).
	Recorder Recorder

	// Interval between record cycles. Default: 1 hour
	Interval time.Duration

	// JobTimeout bounds a single cycle. Default: 2 minutes
	JobTimeout time.Duration

	// TimeZone the scheduler ticks in (default: UTC).
	TimeZone *time.Location

	Logger zerolog.Logger
}

// Scheduler wraps gocron for the periodic record job.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	recorder   Recorder
	interval   time.Duration
	jobTimeout time.Duration
	logger     zerolog.Logger
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	tz := cfg.TimeZone
	if tz == nil {
		tz = time.UTC
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(tz),
		recorder:   cfg.Recorder,
		interval:   interval,
		jobTimeout: jobTimeout,
		logger:     cfg.Logger,
	}
}

// Start schedules the record job and starts the scheduler in the background.
// The first run happens immediately rather than one interval in.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).StartImmediately().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()

		start := time.Now()
		if err := s.recorder.Record(ctx, ""); err != nil {
			s.logger.Error().Err(err).Msg("scheduled record cycle failed")
			return
		}
		s.logger.Info().Dur("duration", time.Since(start)).Msg("scheduled record cycle completed")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
