package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

// RecordOutcome is the per-record result of a batch load.
type RecordOutcome string

const (
	OutcomeInserted         RecordOutcome = "inserted"
	OutcomeSkippedDuplicate RecordOutcome = "skipped_duplicate"
	OutcomeFailed           RecordOutcome = "failed"
)

// RecordLoad tracks one record's load outcome independently of its siblings.
type RecordLoad struct {
	Key     string        `json:"key"`
	Outcome RecordOutcome `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// LoadResult is the outcome of one logical batch write.
type LoadResult struct {
	Inserted int          `json:"inserted"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Records  []RecordLoad `json:"records,omitempty"`
}

// Loader writes validated records into the store with duplicate-safe
// semantics.
type Loader struct {
	store  weather.Store
	logger *zap.Logger
}

// NewLoader creates a Loader over the given store.
func NewLoader(st weather.Store, logger *zap.Logger) *Loader {
	return &Loader{store: st, logger: logger}
}

// Load writes the batch record by record. Duplicates are skipped without
// error, and a constraint violation fails only the offending record. Loss of
// store connectivity aborts the remaining batch and is returned as the only
// fatal error.
func (l *Loader) Load(ctx context.Context, batch []weather.WeatherRecord) (LoadResult, error) {
	var result LoadResult
	if len(batch) == 0 {
		return result, nil
	}

	// A batch handed to the loader completes as a unit: a cancelled run
	// context must not leave it half-written without a completion marker.
	ctx = context.WithoutCancel(ctx)

	for i, rec := range batch {
		key := rec.Key()

		inserted, err := l.store.InsertRecord(ctx, rec)
		switch {
		case err == nil && inserted:
			result.Inserted++
			result.Records = append(result.Records, RecordLoad{Key: key, Outcome: OutcomeInserted})

		case err == nil:
			result.Skipped++
			result.Records = append(result.Records, RecordLoad{Key: key, Outcome: OutcomeSkippedDuplicate})

		case errors.Is(err, store.ErrConnectivity):
			result.Failed += len(batch) - i
			result.Records = append(result.Records, RecordLoad{Key: key, Outcome: OutcomeFailed, Error: err.Error()})
			for _, rest := range batch[i+1:] {
				result.Records = append(result.Records, RecordLoad{
					Key:     rest.Key(),
					Outcome: OutcomeFailed,
					Error:   "not attempted: batch aborted",
				})
			}
			return result, fmt.Errorf("batch aborted after %d of %d records: %w", i, len(batch), err)

		default:
			result.Failed++
			result.Records = append(result.Records, RecordLoad{Key: key, Outcome: OutcomeFailed, Error: err.Error()})
			l.logger.Warn("record load failed",
				zap.String("record", key),
				zap.Error(err),
			)
		}
	}

	return result, nil
}
