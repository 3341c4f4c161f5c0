// Package store provides the persistent weather record store. The primary
// implementation is PostgreSQL via pgx; MemoryStore backs tests and local
// runs without a database.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/i474232898/weather-etl/internal/weather"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when no data is available for a query.
	ErrNotFound = errors.New("no weather data for location")
	// ErrConstraint marks a per-record storage constraint violation. It
	// isolates to the offending record and never aborts a batch.
	ErrConstraint = errors.New("storage constraint violation")
	// ErrConnectivity marks loss of connectivity to the store. It is the
	// only load failure fatal to a run.
	ErrConnectivity = errors.New("store connectivity lost")
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx, so the
// same store code works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements weather.Store on PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store backed by the given connection (pool or
// transaction).
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. All statements are idempotent
// (IF NOT EXISTS), so it is safe to run on every startup.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", classifyError(err))
	}
	return nil
}

// recordColumns is the canonical column list for weather record reads.
// sunrise/sunset are TIME columns read back as text.
const recordColumns = `location_name, country, latitude, longitude,
	temperature, feels_like, humidity, pressure, windspeed, winddirection,
	visibility, uv_index, cloud_cover, weather_code, weather_description,
	sunrise::text, sunset::text, timezone, local_timestamp, utc_timestamp,
	validation_status, validation_reasons`

// InsertRecord writes one canonical record with insert-if-not-exists
// semantics on (location_name, utc_timestamp). It returns false when the row
// already existed. No pre-check is performed; the unique index is the
// race-safety net between concurrent runs.
func (s *PostgresStore) InsertRecord(ctx context.Context, rec weather.WeatherRecord) (bool, error) {
	reasons := rec.ValidationReasons
	if reasons == nil {
		reasons = []string{}
	}

	tag, err := s.db.Exec(ctx,
		`INSERT INTO weather_records (
		   location_name, country, latitude, longitude,
		   temperature, feels_like, humidity, pressure, windspeed,
		   winddirection, visibility, uv_index, cloud_cover, weather_code,
		   weather_description, sunrise, sunset, timezone,
		   local_timestamp, utc_timestamp, validation_status, validation_reasons
		 ) VALUES (
		   $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		   $15, $16::time, $17::time, $18, $19, $20, $21, $22
		 )
		 ON CONFLICT (location_name, utc_timestamp) DO NOTHING`,
		rec.LocationName,
		rec.Country,
		rec.Latitude,
		rec.Longitude,
		rec.Temperature,
		rec.FeelsLike,
		rec.Humidity,
		rec.Pressure,
		rec.WindSpeed,
		rec.WindDirection,
		rec.Visibility,
		rec.UVIndex,
		rec.CloudCover,
		rec.WeatherCode,
		rec.WeatherDescription,
		rec.Sunrise,
		rec.Sunset,
		rec.Timezone,
		rec.LocalTimestamp,
		rec.UTCTimestamp,
		string(rec.ValidationStatus),
		reasons,
	)
	if err != nil {
		return false, classifyError(err)
	}
	return tag.RowsAffected() > 0, nil
}

// ActiveLocations returns the configured locations marked active.
func (s *PostgresStore) ActiveLocations(ctx context.Context) ([]weather.Location, error) {
	rows, err := s.db.Query(ctx,
		`SELECT name, country, latitude, longitude, timezone
		 FROM locations
		 WHERE active = TRUE
		 ORDER BY name`)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var locs []weather.Location
	for rows.Next() {
		var loc weather.Location
		if err := rows.Scan(&loc.Name, &loc.Country, &loc.Latitude, &loc.Longitude, &loc.Timezone); err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// SaveRunSummary records the run outcome in etl_runs. Conflicting run IDs
// are ignored so retried summary writes stay idempotent.
func (s *PostgresStore) SaveRunSummary(ctx context.Context, sum weather.RunSummary) error {
	errs := sum.Errors
	if errs == nil {
		errs = []string{}
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO etl_runs (
		   run_id, started_at, finished_at,
		   locations_attempted, locations_succeeded,
		   records_accepted, records_flagged, records_rejected,
		   records_inserted, records_skipped, records_failed,
		   degraded, failed, errors
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (run_id) DO NOTHING`,
		sum.RunID,
		sum.StartTime,
		sum.EndTime,
		sum.LocationsAttempted,
		sum.LocationsSucceeded,
		sum.RecordsAccepted,
		sum.RecordsFlagged,
		sum.RecordsRejected,
		sum.RecordsInserted,
		sum.RecordsSkipped,
		sum.RecordsFailed,
		sum.Degraded,
		sum.Failed,
		errs,
	)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// LatestRecords returns the most recent record per location, ordered by
// location name. This is the view the dashboard consumes.
func (s *PostgresStore) LatestRecords(ctx context.Context) ([]weather.WeatherRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT ON (location_name) `+recordColumns+`
		 FROM weather_records
		 ORDER BY location_name, utc_timestamp DESC`)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// History returns a location's records with utc_timestamp in [from, to],
// oldest first. ErrNotFound is returned for an empty range.
func (s *PostgresStore) History(ctx context.Context, locationName string, from, to time.Time) ([]weather.WeatherRecord, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM weather_records
		 WHERE location_name = $1 AND utc_timestamp BETWEEN $2 AND $3
		 ORDER BY utc_timestamp`,
		locationName, from, to)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	recs, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return recs, nil
}

// RecentRuns returns the latest run summaries, newest first.
func (s *PostgresStore) RecentRuns(ctx context.Context, limit int) ([]weather.RunSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT run_id, started_at, finished_at,
		        locations_attempted, locations_succeeded,
		        records_accepted, records_flagged, records_rejected,
		        records_inserted, records_skipped, records_failed,
		        degraded, failed, errors
		 FROM etl_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var runs []weather.RunSummary
	for rows.Next() {
		var sum weather.RunSummary
		if err := rows.Scan(
			&sum.RunID,
			&sum.StartTime,
			&sum.EndTime,
			&sum.LocationsAttempted,
			&sum.LocationsSucceeded,
			&sum.RecordsAccepted,
			&sum.RecordsFlagged,
			&sum.RecordsRejected,
			&sum.RecordsInserted,
			&sum.RecordsSkipped,
			&sum.RecordsFailed,
			&sum.Degraded,
			&sum.Failed,
			&sum.Errors,
		); err != nil {
			return nil, err
		}
		runs = append(runs, sum)
	}
	return runs, rows.Err()
}

// collectRecords scans rows in recordColumns order.
func collectRecords(rows pgx.Rows) ([]weather.WeatherRecord, error) {
	var recs []weather.WeatherRecord
	for rows.Next() {
		var (
			rec    weather.WeatherRecord
			status string
		)
		if err := rows.Scan(
			&rec.LocationName,
			&rec.Country,
			&rec.Latitude,
			&rec.Longitude,
			&rec.Temperature,
			&rec.FeelsLike,
			&rec.Humidity,
			&rec.Pressure,
			&rec.WindSpeed,
			&rec.WindDirection,
			&rec.Visibility,
			&rec.UVIndex,
			&rec.CloudCover,
			&rec.WeatherCode,
			&rec.WeatherDescription,
			&rec.Sunrise,
			&rec.Sunset,
			&rec.Timezone,
			&rec.LocalTimestamp,
			&rec.UTCTimestamp,
			&status,
			&rec.ValidationReasons,
		); err != nil {
			return nil, err
		}
		rec.ValidationStatus = weather.ValidationStatus(status)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// classifyError maps driver errors to the store taxonomy. A PgError means
// the server responded, so a class 23 code is a per-record constraint
// violation and anything else passes through. Errors without a server
// response are transport-level and therefore connectivity loss.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
			return fmt.Errorf("%w: %s", ErrConstraint, pgErr.Message)
		}
		return err
	}

	return fmt.Errorf("%w: %v", ErrConnectivity, err)
}
