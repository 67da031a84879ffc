package usecase

import (
	"context"
	"io"
	"log/slog"
	"time"

	"HangarWatch/internal/ports"
)

// Scheduler wires the periodic driver with the collection use case.
type Scheduler struct {
	driver    ports.Scheduler
	collector *Collector
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring collection runs.
func NewScheduler(driver ports.Scheduler, collector *Collector, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{driver: driver, collector: collector, logger: logger}
}

// Start registers a weekly-mode collection with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.collector == nil {
		return nil
	}

	job := func(trigger time.Time) {
		res, err := s.collector.Collect(ctx, trigger, false)
		if err != nil {
			s.logger.Error("scheduled collection failed", "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("scheduled collection done",
			"trigger", trigger, "fetched", res.Fetched, "created", len(res.Created))
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
