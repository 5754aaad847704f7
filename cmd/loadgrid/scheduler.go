package main

import (
	"context"
	"log/slog"
	"sync"

	"loadgrid/internal/job"
)

// immediateScheduler is the minimal coordinator.Scheduler a standalone
// binary needs to start: it tracks the job-IDs currently handed to the
// core as dispatched (so register-stat/report-stat know which jobs are
// "known") and logs completions. Time-based queueing, retries, and
// result persistence are the out-of-core-scope scheduler engine (spec
// §1 Non-goals); this stub exists only so `loadgrid serve` has
// something real to wire into coordinator.Options.Scheduler.
type immediateScheduler struct {
	logger *slog.Logger

	mu   sync.Mutex
	jobs map[job.ID]struct{}
}

func newImmediateScheduler(logger *slog.Logger) *immediateScheduler {
	return &immediateScheduler{
		logger: logger.With("component", "scheduler"),
		jobs:   make(map[job.ID]struct{}),
	}
}

func (s *immediateScheduler) JobKnown(id job.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

func (s *immediateScheduler) JobCompleted(c job.Completion) {
	s.mu.Lock()
	delete(s.jobs, c.JobID)
	s.mu.Unlock()

	s.logger.Info("job completed", "job", c.JobID, "state", c.State, "message", c.Message)
}

func (s *immediateScheduler) Start(ctx context.Context) error {
	return nil
}

func (s *immediateScheduler) Stop(ctx context.Context) error {
	return nil
}
