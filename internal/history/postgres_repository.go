package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL history store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the required tables and indexes if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS aqi_hourly (
			location TEXT NOT NULL,
			date TEXT NOT NULL,
			hour INT NOT NULL,
			aqi INT NOT NULL,
			source TEXT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (location, date, hour)
		);

		CREATE INDEX IF NOT EXISTS idx_aqi_hourly_bucket
			ON aqi_hourly (date DESC, hour DESC);

		CREATE TABLE IF NOT EXISTS aqi_daily_max (
			date TEXT PRIMARY KEY,
			aqi INT NOT NULL,
			location TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS location_beacons (
			owner_id TEXT PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

// UpsertHourly writes a reading keyed by (location, date, hour).
func (s *PostgresStore) UpsertHourly(ctx context.Context, rec reading.Reading) error {
	query := `
		INSERT INTO aqi_hourly (location, date, hour, aqi, source, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (location, date, hour) DO UPDATE SET
			aqi = EXCLUDED.aqi,
			source = EXCLUDED.source,
			recorded_at = EXCLUDED.recorded_at
	`
	_, err := s.pool.Exec(ctx, query,
		rec.Location, rec.Date, rec.Hour, rec.Value, string(rec.Source), rec.RecordedAt,
	)
	return err
}

// LastTwo returns up to the two most recent readings, newest first.
func (s *PostgresStore) LastTwo(ctx context.Context, series string) ([]reading.Reading, error) {
	query := `
		SELECT location, date, hour, aqi, source, recorded_at
		FROM aqi_hourly
		WHERE $1 = '' OR location = $1
		ORDER BY date DESC, hour DESC, recorded_at DESC
		LIMIT 2
	`
	rows, err := s.pool.Query(ctx, query, series)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

// HourlyForDay returns all readings for a date, ordered by hour.
func (s *PostgresStore) HourlyForDay(ctx context.Context, date string) ([]reading.Reading, error) {
	query := `
		SELECT location, date, hour, aqi, source, recorded_at
		FROM aqi_hourly
		WHERE date = $1
		ORDER BY hour ASC, location ASC
	`
	rows, err := s.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

// DailyForMonth returns the daily maxima for a month, ordered by date.
func (s *PostgresStore) DailyForMonth(ctx context.Context, month string) ([]DailyMax, error) {
	query := `
		SELECT date, aqi, location, updated_at
		FROM aqi_daily_max
		WHERE date LIKE $1 || '-%'
		ORDER BY date ASC
	`
	rows, err := s.pool.Query(ctx, query, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyMax
	for rows.Next() {
		var dm DailyMax
		if err := rows.Scan(&dm.Date, &dm.Value, &dm.Location, &dm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, dm)
	}
	return out, rows.Err()
}

// UpsertDailyMax records rec's value as the daily maximum if it exceeds the
// stored one. The comparison happens inside the statement so concurrent
// writers cannot regress the maximum.
func (s *PostgresStore) UpsertDailyMax(ctx context.Context, rec reading.Reading) error {
	query := `
		INSERT INTO aqi_daily_max (date, aqi, location, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date) DO UPDATE SET
			aqi = EXCLUDED.aqi,
			location = EXCLUDED.location,
			updated_at = EXCLUDED.updated_at
		WHERE aqi_daily_max.aqi < EXCLUDED.aqi
	`
	_, err := s.pool.Exec(ctx, query, rec.Date, rec.Value, rec.Location, rec.RecordedAt)
	return err
}

// SaveBeacon stores the owner's last reported location.
func (s *PostgresStore) SaveBeacon(ctx context.Context, b Beacon) error {
	query := `
		INSERT INTO location_beacons (owner_id, lat, lon, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query, b.OwnerID, b.Lat, b.Lon, b.UpdatedAt)
	return err
}

// LastBeacon returns the owner's last reported location.
func (s *PostgresStore) LastBeacon(ctx context.Context, ownerID string) (*Beacon, error) {
	query := `
		SELECT owner_id, lat, lon, updated_at
		FROM location_beacons
		WHERE owner_id = $1
	`
	var b Beacon
	err := s.pool.QueryRow(ctx, query, ownerID).Scan(&b.OwnerID, &b.Lat, &b.Lon, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Ping verifies the connection pool is healthy.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanReadings(rows pgx.Rows) ([]reading.Reading, error) {
	var out []reading.Reading
	for rows.Next() {
		var (
			rec reading.Reading
			src string
		)
		if err := rows.Scan(&rec.Location, &rec.Date, &rec.Hour, &rec.Value, &src, &rec.RecordedAt); err != nil {
			return nil, err
		}
		rec.Source = reading.Source(src)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
