package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"BeerSync/internal/ports"
)

// ErrRunInProgress is returned when a run is requested while another is executing.
var ErrRunInProgress = errors.New("sync run already in progress")

// Runner serializes pipeline runs started by the trigger endpoint and the scheduler.
// Overlapping requests are rejected, not queued.
type Runner struct {
	pipeline *Pipeline
	running  atomic.Bool
}

// NewRunner guards pipeline.
func NewRunner(pipeline *Pipeline) *Runner {
	return &Runner{pipeline: pipeline}
}

// Run executes one sync or returns ErrRunInProgress.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	return r.pipeline.Run(ctx, opts)
}

// Scheduler wires the interval driver with the sync runner.
type Scheduler struct {
	driver ports.Scheduler
	runner *Runner
	opts   RunOptions
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring syncs.
func NewScheduler(driver ports.Scheduler, runner *Runner, opts RunOptions, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, runner: runner, opts: opts, logger: logger}
}

// Start registers the sync job with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled sync triggered", "at", trigger)
		summary, err := s.runner.Run(ctx, s.opts)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.logger.Warn("scheduled sync skipped", "reason", err)
		case err != nil:
			s.logger.Error("scheduled sync failed", "error", err)
		default:
			s.logger.Info("scheduled sync finished", "run_id", summary.RunID, "output", summary.OutputCount)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
