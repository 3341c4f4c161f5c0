package pipeline

import (
	"time"

	"github.com/i474232898/weather-etl/internal/weather"
)

// FetchOutcome records one location's fetch-and-transform result for the
// run-level reduction.
type FetchOutcome struct {
	Location weather.Location
	Err      error
}

// Summarize reduces the per-stage outcomes into the single RunSummary. It is
// a pure aggregation: it performs no I/O and never fails — missing or partial
// upstream data simply counts as zero.
func Summarize(
	runID string,
	start, end time.Time,
	fetches []FetchOutcome,
	outcomes []weather.Outcome,
	load LoadResult,
	degraded bool,
) weather.RunSummary {
	sum := weather.RunSummary{
		RunID:              runID,
		StartTime:          start,
		EndTime:            end,
		LocationsAttempted: len(fetches),
		RecordsInserted:    load.Inserted,
		RecordsSkipped:     load.Skipped,
		RecordsFailed:      load.Failed,
		Degraded:           degraded,
	}

	for _, f := range fetches {
		if f.Err == nil {
			sum.LocationsSucceeded++
		} else {
			sum.Errors = append(sum.Errors, f.Err.Error())
		}
	}

	for _, o := range outcomes {
		switch o.Status {
		case weather.StatusAccepted:
			sum.RecordsAccepted++
		case weather.StatusFlagged:
			sum.RecordsFlagged++
		case weather.StatusRejected:
			sum.RecordsRejected++
		}
	}

	for _, rec := range load.Records {
		if rec.Outcome == OutcomeFailed && rec.Error != "" {
			sum.Errors = append(sum.Errors, rec.Key+": "+rec.Error)
		}
	}

	return sum
}

// FailureSummary builds the minimal summary for a run aborted by a fatal
// storage error. Record counters stay zero; the run still leaves a trace.
func FailureSummary(
	runID string,
	start, end time.Time,
	fetches []FetchOutcome,
	cause error,
) weather.RunSummary {
	sum := weather.RunSummary{
		RunID:              runID,
		StartTime:          start,
		EndTime:            end,
		LocationsAttempted: len(fetches),
		Failed:             true,
	}
	for _, f := range fetches {
		if f.Err == nil {
			sum.LocationsSucceeded++
		}
	}
	if cause != nil {
		sum.Errors = append(sum.Errors, cause.Error())
	}
	return sum
}
