package usecase

import (
	"context"
	"log/slog"
	"time"

	"ContentDigest/internal/ports"
)

// Scheduler wires the interval driver with the ingest use case.
type Scheduler struct {
	driver   ports.Scheduler
	ingestor *Ingestor
	lookback time.Duration
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring ingest cycles. Each cycle asks the
// source for documents published within lookback of the trigger time.
func NewScheduler(driver ports.Scheduler, ingestor *Ingestor, lookback time.Duration, logger *slog.Logger) *Scheduler {
	s := &Scheduler{driver: driver, ingestor: ingestor, lookback: lookback}
	if logger != nil {
		s.logger = logger.With("component", "scheduler")
	}
	return s
}

// Start registers the ingest cycle with the provided driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingestor == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.ingestor.RunCycle(ctx, trigger.Add(-s.lookback)); err != nil && s.logger != nil {
			s.logger.Error("ingest cycle failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
