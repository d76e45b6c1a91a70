package history

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aqibeacon/aqibeacon/internal/reading"
)

// MemoryStore is an in-memory implementation of Store. It is intended for
// tests and single-process development runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	hourly  map[string]memEntry
	daily   map[string]DailyMax
	beacons map[string]Beacon
	seq     int64
}

type memEntry struct {
	rec reading.Reading
	seq int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hourly:  make(map[string]memEntry),
		daily:   make(map[string]DailyMax),
		beacons: make(map[string]Beacon),
	}
}

// UpsertHourly writes a reading; the last write for a key wins.
func (s *MemoryStore) UpsertHourly(_ context.Context, rec reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.hourly[rec.Key()] = memEntry{rec: rec, seq: s.seq}
	return nil
}

// LastTwo returns up to the two most recent readings, newest first.
func (s *MemoryStore) LastTwo(_ context.Context, series string) ([]reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]memEntry, 0, len(s.hourly))
	for _, e := range s.hourly {
		if series == "" || e.rec.Location == series {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].rec, entries[j].rec
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.Hour != b.Hour {
			return a.Hour > b.Hour
		}
		return entries[i].seq > entries[j].seq
	})

	if len(entries) > 2 {
		entries = entries[:2]
	}
	out := make([]reading.Reading, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec)
	}
	return out, nil
}

// HourlyForDay returns all readings for a date, ordered by hour.
func (s *MemoryStore) HourlyForDay(_ context.Context, date string) ([]reading.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []reading.Reading
	for _, e := range s.hourly {
		if e.rec.Date == date {
			out = append(out, e.rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Location < out[j].Location
	})
	return out, nil
}

// DailyForMonth returns the daily maxima for a month, ordered by date.
func (s *MemoryStore) DailyForMonth(_ context.Context, month string) ([]DailyMax, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DailyMax
	for date, dm := range s.daily {
		if strings.HasPrefix(date, month+"-") {
			out = append(out, dm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// UpsertDailyMax records rec's value as the daily maximum if it exceeds the
// stored one.
func (s *MemoryStore) UpsertDailyMax(_ context.Context, rec reading.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.daily[rec.Date]; ok && cur.Value >= rec.Value {
		return nil
	}
	s.daily[rec.Date] = DailyMax{
		Date:      rec.Date,
		Value:     rec.Value,
		Location:  rec.Location,
		UpdatedAt: rec.RecordedAt,
	}
	return nil
}

// SaveBeacon stores the owner's last reported location.
func (s *MemoryStore) SaveBeacon(_ context.Context, b Beacon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.beacons[b.OwnerID] = b
	return nil
}

// LastBeacon returns the owner's last reported location.
func (s *MemoryStore) LastBeacon(_ context.Context, ownerID string) (*Beacon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.beacons[ownerID]
	if !ok {
		return nil, ErrNotFound
	}
	out := b
	return &out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
