package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAlertThreshold is the AQI level above which an alert fires.
const DefaultAlertThreshold = 150

// SnapshotSource reads the current sensor measurement.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) (*Snapshot, error)
}

// AlertFunc is invoked when the sensor AQI crosses the alert threshold.
type AlertFunc func(snap Snapshot)

// MonitorConfig holds configuration for the monitor.
type MonitorConfig struct {
	// Source reads the device (required).
	Source SnapshotSource

	// Interval between polls. Default: 1 minute
	Interval time.Duration

	// Threshold is the AQI level that triggers an alert.
	// Default: DefaultAlertThreshold
	Threshold int

	// Cooldown suppresses repeat alerts after one fires. Default: 30 minutes
	Cooldown time.Duration

	// OnAlert is called for threshold crossings. Optional.
	OnAlert AlertFunc

	Logger zerolog.Logger
}

// Monitor polls the sensor on an interval, keeps the latest snapshot and
// raises at most one alert per cooldown window.
type Monitor struct {
	source    SnapshotSource
	interval  time.Duration
	threshold int
	cooldown  time.Duration
	onAlert   AlertFunc
	logger    zerolog.Logger

	mu        sync.RWMutex
	latest    *Snapshot
	lastAlert time.Time
}

// NewMonitor creates a Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultAlertThreshold
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Minute
	}
	return &Monitor{
		source:    cfg.Source,
		interval:  cfg.Interval,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		onAlert:   cfg.OnAlert,
		logger:    cfg.Logger,
	}
}

// Run polls until the context is cancelled. An immediate first poll happens
// before the ticker starts so Latest is populated right away.
func (m *Monitor) Run(ctx context.Context) {
	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// Latest returns the most recent snapshot, or nil before the first
// successful poll.
func (m *Monitor) Latest() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return nil
	}
	snap := *m.latest
	return &snap
}

func (m *Monitor) poll(ctx context.Context) {
	snap, err := m.source.FetchSnapshot(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("sensor poll failed")
		return
	}

	m.mu.Lock()
	m.latest = snap
	fire := snap.AQI >= m.threshold &&
		m.onAlert != nil &&
		time.Since(m.lastAlert) >= m.cooldown
	if fire {
		m.lastAlert = time.Now()
	}
	m.mu.Unlock()

	if fire {
		m.logger.Info().
			Int("aqi", snap.AQI).
			Float64("ppm", snap.PPM).
			Int("threshold", m.threshold).
			Msg("indoor air quality alert")
		m.onAlert(*snap)
	}
}
