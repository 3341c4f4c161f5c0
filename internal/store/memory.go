package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/weather-etl/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of
// weather.Store. It mirrors the PostgreSQL semantics — including the
// (location_name, utc_timestamp) duplicate key — and backs tests and runs
// without a configured database.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location name, value: records ordered by utc_timestamp
	records map[string][]weather.WeatherRecord
	// duplicate keys already stored, weather.WeatherRecord.Key()
	seen map[string]struct{}

	locations []weather.Location
	runs      []weather.RunSummary

	maxHistory int // max records per location, <= 0 means unlimited
}

// NewMemoryStore creates a MemoryStore with an optional per-location record
// limit.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		records:    make(map[string][]weather.WeatherRecord),
		seen:       make(map[string]struct{}),
		maxHistory: maxHistory,
	}
}

// SeedLocations sets the locations returned by ActiveLocations.
func (s *MemoryStore) SeedLocations(locs []weather.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append([]weather.Location(nil), locs...)
}

// InsertRecord appends a record unless its (location_name, utc_timestamp)
// key already exists, in which case it reports a skipped duplicate.
func (s *MemoryStore) InsertRecord(_ context.Context, rec weather.WeatherRecord) (bool, error) {
	key := rec.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = struct{}{}

	history := append(s.records[rec.LocationName], rec)
	sort.Slice(history, func(i, j int) bool {
		return recordTime(history[i]).Before(recordTime(history[j]))
	})

	if s.maxHistory > 0 && len(history) > s.maxHistory {
		over := len(history) - s.maxHistory
		for _, old := range history[:over] {
			delete(s.seen, old.Key())
		}
		history = history[over:]
	}

	s.records[rec.LocationName] = history
	return true, nil
}

// ActiveLocations returns the seeded locations.
func (s *MemoryStore) ActiveLocations(_ context.Context) ([]weather.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]weather.Location(nil), s.locations...), nil
}

// SaveRunSummary appends the run summary.
func (s *MemoryStore) SaveRunSummary(_ context.Context, sum weather.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, sum)
	return nil
}

// LatestRecords returns the most recent record per location, ordered by
// location name.
func (s *MemoryStore) LatestRecords(_ context.Context) ([]weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.records))
	for name, history := range s.records {
		if len(history) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	latest := make([]weather.WeatherRecord, 0, len(names))
	for _, name := range names {
		history := s.records[name]
		latest = append(latest, history[len(history)-1])
	}
	return latest, nil
}

// History returns a location's records with utc_timestamp in [from, to].
func (s *MemoryStore) History(_ context.Context, locationName string, from, to time.Time) ([]weather.WeatherRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.records[locationName]
	if !ok || len(history) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.WeatherRecord
	for _, rec := range history {
		ts := recordTime(rec)
		if (ts.Equal(from) || ts.After(from)) && (ts.Equal(to) || ts.Before(to)) {
			result = append(result, rec)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// RecentRuns returns up to limit run summaries, newest first.
func (s *MemoryStore) RecentRuns(_ context.Context, limit int) ([]weather.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.runs)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]weather.RunSummary, 0, n)
	for i := len(s.runs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.runs[i])
	}
	return result, nil
}

func recordTime(rec weather.WeatherRecord) time.Time {
	if rec.UTCTimestamp != nil {
		return rec.UTCTimestamp.UTC()
	}
	return time.Time{}
}
