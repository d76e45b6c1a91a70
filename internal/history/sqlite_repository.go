package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// SQLiteStore is a file-backed implementation of Store for single-node
// deployments that don't carry a PostgreSQL instance.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite creates a SQLiteStore at the given path, creating tables if they
// don't exist. Uses WAL mode for better concurrent read performance
// (file-based DBs only).
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS aqi_hourly (
		location TEXT NOT NULL,
		date TEXT NOT NULL,
		hour INTEGER NOT NULL,
		aqi INTEGER NOT NULL,
		source TEXT NOT NULL,
		recorded_at DATETIME NOT NULL,
		PRIMARY KEY (location, date, hour)
	);

	CREATE INDEX IF NOT EXISTS idx_aqi_hourly_bucket ON aqi_hourly(date DESC, hour DESC);

	CREATE TABLE IF NOT EXISTS aqi_daily_max (
		date TEXT PRIMARY KEY,
		aqi INTEGER NOT NULL,
		location TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS location_beacons (
		owner_id TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// UpsertHourly writes a reading keyed by (location, date, hour).
func (s *SQLiteStore) UpsertHourly(ctx context.Context, rec reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aqi_hourly (location, date, hour, aqi, source, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (location, date, hour) DO UPDATE SET
			aqi = excluded.aqi,
			source = excluded.source,
			recorded_at = excluded.recorded_at
	`, rec.Location, rec.Date, rec.Hour, rec.Value, string(rec.Source), rec.RecordedAt)
	return err
}

// LastTwo returns up to the two most recent readings, newest first.
func (s *SQLiteStore) LastTwo(ctx context.Context, series string) ([]reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT location, date, hour, aqi, source, recorded_at
		FROM aqi_hourly
		WHERE ? = '' OR location = ?
		ORDER BY date DESC, hour DESC, recorded_at DESC
		LIMIT 2
	`, series, series)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLReadings(rows)
}

// HourlyForDay returns all readings for a date, ordered by hour.
func (s *SQLiteStore) HourlyForDay(ctx context.Context, date string) ([]reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT location, date, hour, aqi, source, recorded_at
		FROM aqi_hourly
		WHERE date = ?
		ORDER BY hour ASC, location ASC
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSQLReadings(rows)
}

// DailyForMonth returns the daily maxima for a month, ordered by date.
func (s *SQLiteStore) DailyForMonth(ctx context.Context, month string) ([]DailyMax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, aqi, location, updated_at
		FROM aqi_daily_max
		WHERE date LIKE ? || '-%'
		ORDER BY date ASC
	`, month)
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
// stored one.
func (s *SQLiteStore) UpsertDailyMax(ctx context.Context, rec reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aqi_daily_max (date, aqi, location, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			aqi = excluded.aqi,
			location = excluded.location,
			updated_at = excluded.updated_at
		WHERE aqi_daily_max.aqi < excluded.aqi
	`, rec.Date, rec.Value, rec.Location, rec.RecordedAt)
	return err
}

// SaveBeacon stores the owner's last reported location.
func (s *SQLiteStore) SaveBeacon(ctx context.Context, b Beacon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO location_beacons (owner_id, lat, lon, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			lat = excluded.lat,
			lon = excluded.lon,
			updated_at = excluded.updated_at
	`, b.OwnerID, b.Lat, b.Lon, b.UpdatedAt)
	return err
}

// LastBeacon returns the owner's last reported location.
func (s *SQLiteStore) LastBeacon(ctx context.Context, ownerID string) (*Beacon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b Beacon
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_id, lat, lon, updated_at
		FROM location_beacons
		WHERE owner_id = ?
	`, ownerID).Scan(&b.OwnerID, &b.Lat, &b.Lon, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func scanSQLReadings(rows *sql.Rows) ([]reading.Reading, error) {
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

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
