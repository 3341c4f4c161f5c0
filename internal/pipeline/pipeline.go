// Package pipeline implements the extract-transform-validate-load run: fan
// out over locations, normalize and quality-check each observation, load the
// surviving records with duplicate-safe semantics, and reduce everything into
// one RunSummary.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-etl/internal/weather"
)

// RunState names the stages of a run. States are advanced strictly in order;
// Degraded is a side-channel flag settable from Fetching onward and Failed is
// reachable only from Loading.
type RunState string

const (
	StateScheduled    RunState = "scheduled"
	StateFetching     RunState = "fetching"
	StateTransforming RunState = "transforming"
	StateValidating   RunState = "validating"
	StateLoading      RunState = "loading"
	StateSummarizing  RunState = "summarizing"
	StateCompleted    RunState = "completed"
	StateFailed       RunState = "failed"
)

// Config carries the run-level tunables, passed in explicitly rather than
// read from globals.
type Config struct {
	// MinFetchSuccess is the minimum fraction of locations that must fetch
	// successfully before the run is marked degraded. Zero means the 0.5
	// default.
	MinFetchSuccess float64
	// LocationTimeout bounds one location's fetch including retries.
	LocationTimeout time.Duration
}

// Pipeline executes one ETL run at a time over the configured locations.
type Pipeline struct {
	fetcher  weather.Fetcher
	store    weather.Store
	registry *Registry
	loader   *Loader
	logger   *zap.Logger

	minFetchSuccess float64
	locationTimeout time.Duration

	now func() time.Time
}

// New creates a Pipeline.
func New(fetcher weather.Fetcher, st weather.Store, registry *Registry, cfg Config, logger *zap.Logger) *Pipeline {
	minSuccess := cfg.MinFetchSuccess
	if minSuccess <= 0 {
		minSuccess = 0.5
	}
	timeout := cfg.LocationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Pipeline{
		fetcher:         fetcher,
		store:           st,
		registry:        registry,
		loader:          NewLoader(st, logger),
		logger:          logger,
		minFetchSuccess: minSuccess,
		locationTimeout: timeout,
		now:             time.Now,
	}
}

// locationResult is one fan-out task's private outcome. Tasks never share an
// accumulator; each writes only its own slot and the slots are merged after
// the wait.
type locationResult struct {
	loc       weather.Location
	fetchedAt time.Time
	record    *weather.WeatherRecord
	err       error
}

// Run executes one complete ETL run and always returns a RunSummary, even
// for degraded and failed runs. The caller owns scheduling; Run never
// re-enters itself.
func (p *Pipeline) Run(ctx context.Context) weather.RunSummary {
	runID := uuid.NewString()
	start := p.now().UTC()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("run starting", zap.String("state", string(StateScheduled)))

	locations := p.registry.Active(ctx)

	// Fetching + Transforming, fan-out per location. A location failure is
	// isolated: it is recorded and must never block or corrupt its siblings.
	logger.Info("fetching locations",
		zap.String("state", string(StateFetching)),
		zap.Int("locations", len(locations)),
	)

	results := make([]locationResult, len(locations))
	var wg sync.WaitGroup
	for i, loc := range locations {
		wg.Add(1)
		go func(i int, loc weather.Location) {
			defer wg.Done()
			results[i] = p.fetchAndTransform(ctx, loc)
		}(i, loc)
	}
	wg.Wait()

	// Validating.
	logger.Info("validating records", zap.String("state", string(StateValidating)))

	fetches := make([]FetchOutcome, 0, len(results))
	outcomes := make([]weather.Outcome, 0, len(results))
	batch := make([]weather.WeatherRecord, 0, len(results))
	succeeded := 0

	for _, res := range results {
		fetches = append(fetches, FetchOutcome{Location: res.loc, Err: res.err})
		if res.err != nil {
			logger.Warn("location excluded from run",
				zap.String("location", res.loc.Name),
				zap.Error(res.err),
			)
			continue
		}
		succeeded++

		rec := *res.record
		outcome := weather.Validate(rec, res.fetchedAt)
		rec.ValidationStatus = outcome.Status
		rec.ValidationReasons = outcome.Reasons
		outcomes = append(outcomes, outcome)

		if outcome.Status == weather.StatusRejected {
			logger.Warn("record rejected",
				zap.String("location", rec.LocationName),
				zap.Strings("reasons", outcome.Reasons),
			)
			continue
		}
		batch = append(batch, rec)
	}

	// Batch-level check: a poor fetch ratio degrades the run but good data
	// from the surviving locations is still loaded.
	degraded := false
	if len(locations) > 0 {
		ratio := float64(succeeded) / float64(len(locations))
		if ratio < p.minFetchSuccess {
			degraded = true
			logger.Warn("run degraded by fetch failures",
				zap.Float64("success_ratio", ratio),
				zap.Float64("minimum", p.minFetchSuccess),
			)
		}
	}

	// Loading.
	logger.Info("loading batch",
		zap.String("state", string(StateLoading)),
		zap.Int("records", len(batch)),
	)
	load, loadErr := p.loader.Load(ctx, batch)

	end := p.now().UTC()

	var summary weather.RunSummary
	if loadErr != nil {
		// Fatal storage error short-circuits summarization into the minimal
		// failure summary. The run still leaves exactly one trace.
		logger.Error("run failed during load",
			zap.String("state", string(StateFailed)),
			zap.Error(loadErr),
		)
		summary = FailureSummary(runID, start, end, fetches, loadErr)
	} else {
		summary = Summarize(runID, start, end, fetches, outcomes, load, degraded)
	}

	// Best effort: the summary reaches the logs even when the store write
	// does not.
	if err := p.store.SaveRunSummary(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn("failed to persist run summary", zap.Error(err))
	}

	logger.Info("run finished",
		zap.String("state", string(finalState(summary))),
		zap.Int("locations_attempted", summary.LocationsAttempted),
		zap.Int("locations_succeeded", summary.LocationsSucceeded),
		zap.Int("records_accepted", summary.RecordsAccepted),
		zap.Int("records_flagged", summary.RecordsFlagged),
		zap.Int("records_rejected", summary.RecordsRejected),
		zap.Int("records_inserted", summary.RecordsInserted),
		zap.Int("records_skipped", summary.RecordsSkipped),
		zap.Int("records_failed", summary.RecordsFailed),
		zap.Bool("degraded", summary.Degraded),
		zap.Bool("failed", summary.Failed),
		zap.Duration("elapsed", end.Sub(start)),
	)

	return summary
}

func finalState(summary weather.RunSummary) RunState {
	if summary.Failed {
		return StateFailed
	}
	return StateCompleted
}

// fetchAndTransform handles one location end to end: bounded fetch, then
// normalization into the canonical record.
func (p *Pipeline) fetchAndTransform(ctx context.Context, loc weather.Location) locationResult {
	fctx, cancel := context.WithTimeout(ctx, p.locationTimeout)
	defer cancel()

	obs, err := p.fetcher.Fetch(fctx, loc)
	if err != nil {
		return locationResult{loc: loc, err: err}
	}

	rec, err := weather.Transform(obs)
	if err != nil {
		return locationResult{loc: loc, fetchedAt: obs.FetchedAt, err: err}
	}

	return locationResult{loc: loc, fetchedAt: obs.FetchedAt, record: &rec}
}
