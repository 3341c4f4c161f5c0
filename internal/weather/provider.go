package weather

import (
	"context"
	"time"
)

// Fetcher abstracts the upstream weather API. The production implementation
// is the Open-Meteo client; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, loc Location) (RawObservation, error)
}

// Store is the contract the persistent store (and the in-memory test double)
// must satisfy. InsertRecord reports false when the record was skipped as a
// duplicate of an existing (location_name, utc_timestamp) row.
type Store interface {
	InsertRecord(ctx context.Context, rec WeatherRecord) (bool, error)
	ActiveLocations(ctx context.Context) ([]Location, error)
	SaveRunSummary(ctx context.Context, summary RunSummary) error
	LatestRecords(ctx context.Context) ([]WeatherRecord, error)
	History(ctx context.Context, locationName string, from, to time.Time) ([]WeatherRecord, error)
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
}
