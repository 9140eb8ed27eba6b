package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amishk599/jobsift/internal/pipeline"
)

// Runner executes one batch.
type Runner interface {
	Run(ctx context.Context) (pipeline.Report, error)
}

// Scheduler owns the daemon loop: one immediate run, then one run per interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs runner at the given interval.
func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then waits interval after
// each run finishes. A failed run is logged and the loop continues. It
// returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.runner.Run(ctx)
	switch {
	case err == nil && report.Err() != nil:
		s.logger.Warn("run finished with errors", "report", report)
	case err == nil:
		s.logger.Info("run finished", "report", report)
	case errors.Is(err, pipeline.ErrRunLocked):
		s.logger.Warn("run skipped", "error", err)
	case ctx.Err() != nil:
		s.logger.Info("run interrupted", "report", report)
	default:
		s.logger.Error("run failed", "error", err, "report", report)
	}
}
