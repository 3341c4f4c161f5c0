package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-etl/internal/pipeline"
)

// Scheduler triggers one pipeline run per interval. Runs are serialized
// (singleton mode): a tick is skipped while the previous run is still in
// flight.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	pipeline   *pipeline.Pipeline
	interval   time.Duration
	runTimeout time.Duration
	logger     *zap.Logger
}

// New creates a Scheduler that invokes the pipeline every interval, bounding
// each run by runTimeout.
func New(p *pipeline.Pipeline, interval, runTimeout time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		pipeline:   p,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start schedules the periodic run and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()

		summary := s.pipeline.Run(ctx)
		if summary.Failed {
			s.logger.Error("scheduled run failed", zap.String("run_id", summary.RunID))
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
