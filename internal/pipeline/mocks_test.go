package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

// stubStore implements weather.Store with per-test hooks. The default
// InsertRecord behavior mirrors the production duplicate key semantics.
type stubStore struct {
	mu sync.Mutex

	insertFn  func(weather.WeatherRecord) (bool, error)
	inserted  []weather.WeatherRecord
	seen      map[string]struct{}
	summaries []weather.RunSummary

	locations    []weather.Location
	locationsErr error
}

func newStubStore() *stubStore {
	return &stubStore{seen: make(map[string]struct{})}
}

func (s *stubStore) InsertRecord(_ context.Context, rec weather.WeatherRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertFn != nil {
		return s.insertFn(rec)
	}

	key := rec.Key()
	if _, dup := s.seen[key]; dup {
		return false, nil
	}
	s.seen[key] = struct{}{}
	s.inserted = append(s.inserted, rec)
	return true, nil
}

func (s *stubStore) ActiveLocations(_ context.Context) ([]weather.Location, error) {
	return s.locations, s.locationsErr
}

func (s *stubStore) SaveRunSummary(_ context.Context, sum weather.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, sum)
	return nil
}

func (s *stubStore) LatestRecords(context.Context) ([]weather.WeatherRecord, error) {
	return nil, nil
}

func (s *stubStore) History(context.Context, string, time.Time, time.Time) ([]weather.WeatherRecord, error) {
	return nil, store.ErrNotFound
}

func (s *stubStore) RecentRuns(context.Context, int) ([]weather.RunSummary, error) {
	return nil, nil
}

// stubFetcher routes each location through the configured function.
type stubFetcher struct {
	fn func(weather.Location) (weather.RawObservation, error)
}

func (f *stubFetcher) Fetch(_ context.Context, loc weather.Location) (weather.RawObservation, error) {
	return f.fn(loc)
}

func testLogger() *zap.Logger { return zap.NewNop() }

func fptr(v float64) *float64 { return &v }

var testFetchTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// observationFor builds a healthy raw observation whose timestamp matches
// the fetch time.
func observationFor(loc weather.Location) weather.RawObservation {
	return weather.RawObservation{
		Location:  loc,
		FetchedAt: testFetchTime,
		Current: weather.CurrentConditions{
			Time:        testFetchTime.Format(time.RFC3339),
			Temperature: fptr(18.4),
			Humidity:    fptr(62),
		},
	}
}

func testLocations(names ...string) []weather.Location {
	locs := make([]weather.Location, 0, len(names))
	for i, name := range names {
		locs = append(locs, weather.Location{
			Name:      name,
			Country:   "Testland",
			Latitude:  float64(10 + i),
			Longitude: float64(20 + i),
			Timezone:  "+00:00",
		})
	}
	return locs
}

func newTestPipeline(fetcher weather.Fetcher, st weather.Store, defaults []weather.Location, cfg Config) *Pipeline {
	registry := NewRegistry(st, defaults, testLogger())
	return New(fetcher, st, registry, cfg, testLogger())
}
