// Package scheduler bounds how many pipelines run at once.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

// Runner executes one job's pipeline.
type Runner interface {
	Process(ctx context.Context, job jobs.Job) error
}

// Scheduler admits submitted jobs to a bounded worker pool. Submission never
// blocks the caller; each job waits for one of the permits and runs as a
// detached unit of work. A panicking pipeline fails its job and always
// returns the permit.
type Scheduler struct {
	runner  Runner
	sink    jobs.Sink
	permits chan struct{}
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// New creates a scheduler with the given permit count.
func New(runner Runner, sink jobs.Sink, permits int, logger *slog.Logger) *Scheduler {
	if permits < 1 {
		permits = 1
	}
	return &Scheduler{
		runner:  runner,
		sink:    sink,
		permits: make(chan struct{}, permits),
		logger:  logging.WithComponent(logger, "scheduler"),
	}
}

// Submit queues one job for execution and returns immediately.
func (s *Scheduler) Submit(ctx context.Context, job jobs.Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.permits <- struct{}{}:
		case <-ctx.Done():
			s.failJob(job.ID, fmt.Errorf("scheduler shutting down: %w", ctx.Err()))
			return
		}
		defer func() { <-s.permits }()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("pipeline panic",
					logging.String(logging.FieldJobID, job.ID),
					logging.Any("panic", r))
				s.failJob(job.ID, fmt.Errorf("pipeline panic: %v", r))
			}
		}()

		_ = s.runner.Process(ctx, job)
	}()
}

// Wait blocks until every submitted job has finished or been abandoned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) failJob(jobID string, err error) {
	publishErr := s.sink.Publish(jobs.Event{
		Type:         jobs.EventStateChanged,
		JobID:        jobID,
		State:        jobs.StateFailed,
		ErrorMessage: err.Error(),
	})
	if publishErr != nil {
		s.logger.Warn("mark job failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(publishErr))
	}
}
