package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SweepScheduler periodically enqueues entry-sweep jobs so open time
// entries abandoned by a dead session eventually get closed by a
// worker.
type SweepScheduler struct {
	queue    JobQueue
	logger   *zap.Logger
	interval time.Duration
	maxAge   time.Duration
}

// NewSweepScheduler creates a scheduler that every interval enqueues a
// job sweeping entries older than maxAge.
func NewSweepScheduler(queue JobQueue, logger *zap.Logger, interval, maxAge time.Duration) *SweepScheduler {
	return &SweepScheduler{
		queue:    queue,
		logger:   logger,
		interval: interval,
		maxAge:   maxAge,
	}
}

// Start runs the scheduling loop until ctx is cancelled.
func (s *SweepScheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.schedule(ctx); err != nil {
				s.logger.Error("sweep_schedule_failed", zap.Error(err))
			}
		}
	}
}

// schedule enqueues one sweep job with the current cutoff. The job
// expires before the next tick so a backlog of sweeps cannot pile up.
func (s *SweepScheduler) schedule(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	job := NewEntrySweepJob(time.Now().Add(-s.maxAge))
	notAfter := time.Now().Add(s.interval)
	job.NotAfter = &notAfter

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue sweep job: %w", err)
	}

	s.logger.Debug("sweep_job_enqueued",
		zap.String("job_id", job.ID.String()),
		zap.Time("cutoff", *job.Cutoff),
	)
	return nil
}
