package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-etl/internal/weather"
)

func TestSummarizeReconcilesCounts(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	fetches := []FetchOutcome{
		{Location: weather.Location{Name: "London"}},
		{Location: weather.Location{Name: "Paris"}},
		{Location: weather.Location{Name: "Tokyo"}, Err: errors.New("fetch failed for Tokyo: timeout")},
	}
	outcomes := []weather.Outcome{
		{Status: weather.StatusAccepted},
		{Status: weather.StatusFlagged, Reasons: []string{weather.ReasonHumidityOutOfRange}},
	}
	load := LoadResult{
		Inserted: 1,
		Skipped:  1,
		Records: []RecordLoad{
			{Key: "London@2024-06-01T11:00:00Z", Outcome: OutcomeInserted},
			{Key: "Paris@2024-06-01T11:00:00Z", Outcome: OutcomeSkippedDuplicate},
		},
	}

	sum := Summarize("run-1", start, end, fetches, outcomes, load, false)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, 3, sum.LocationsAttempted)
	assert.Equal(t, 2, sum.LocationsSucceeded)
	assert.Equal(t, 1, sum.RecordsAccepted)
	assert.Equal(t, 1, sum.RecordsFlagged)
	assert.Zero(t, sum.RecordsRejected)
	assert.Equal(t, 1, sum.RecordsInserted)
	assert.Equal(t, 1, sum.RecordsSkipped)
	assert.False(t, sum.Degraded)
	assert.False(t, sum.Failed)

	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "Tokyo")

	assert.Equal(t, sum.RecordsAccepted+sum.RecordsFlagged+sum.RecordsRejected, len(outcomes),
		"every validated record lands in exactly one status bucket")
}

func TestSummarizeIncludesFailedLoadRecords(t *testing.T) {
	load := LoadResult{
		Failed: 1,
		Records: []RecordLoad{
			{Key: "London@2024-06-01T11:00:00Z", Outcome: OutcomeFailed, Error: "constraint violated"},
		},
	}

	sum := Summarize("run-2", time.Now(), time.Now(), nil, nil, load, true)

	assert.Equal(t, 1, sum.RecordsFailed)
	assert.True(t, sum.Degraded)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, "London@2024-06-01T11:00:00Z: constraint violated", sum.Errors[0])
}

func TestSummarizeEmptyInputs(t *testing.T) {
	sum := Summarize("run-3", time.Now(), time.Now(), nil, nil, LoadResult{}, false)

	assert.Zero(t, sum.LocationsAttempted)
	assert.Zero(t, sum.RecordsAccepted)
	assert.Empty(t, sum.Errors)
	assert.False(t, sum.Degraded)
}

func TestFailureSummaryIsMinimal(t *testing.T) {
	fetches := []FetchOutcome{
		{Location: weather.Location{Name: "London"}},
		{Location: weather.Location{Name: "Paris"}, Err: errors.New("boom")},
	}
	cause := errors.New("batch aborted after 0 of 2 records: connectivity lost")

	sum := FailureSummary("run-4", time.Now(), time.Now(), fetches, cause)

	assert.True(t, sum.Failed)
	assert.Equal(t, 2, sum.LocationsAttempted)
	assert.Equal(t, 1, sum.LocationsSucceeded)
	assert.Zero(t, sum.RecordsInserted)
	assert.Zero(t, sum.RecordsAccepted)
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "connectivity lost")
}
