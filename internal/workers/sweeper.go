package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/models"
	"github.com/petrhale/focustrack/internal/queue"
	"go.uber.org/zap"
)

// EntrySweeper processes entry-sweep jobs: it closes open time entries
// whose session died without a confirmed stop. Swept entries get their
// duration from the wall-clock delta, since the session's elapsed
// counter is gone with the process that held it.
type EntrySweeper struct {
	entryRepo database.TimeEntryRepositoryInterface
	jobQueue  queue.JobQueue
	logger    *zap.Logger
	now       func() time.Time
}

// NewEntrySweeper creates a new entry sweeper. jobQueue may be nil for
// one-shot direct sweeps; it is only used to republish failed jobs
// with their bumped retry count.
func NewEntrySweeper(entryRepo database.TimeEntryRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *EntrySweeper {
	return &EntrySweeper{
		entryRepo: entryRepo,
		jobQueue:  jobQueue,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessSweepJob closes every open entry started before the job's
// cutoff. Entries closed concurrently by their own session are skipped,
// not failed: the repository's close guard makes the race harmless.
func (s *EntrySweeper) ProcessSweepJob(ctx context.Context, job *queue.Job) error {
	if job.Cutoff == nil {
		return fmt.Errorf("cutoff is required for entry sweep job")
	}

	entries, err := s.entryRepo.ListOpenBefore(ctx, *job.Cutoff)
	if err != nil {
		return fmt.Errorf("failed to list open entries: %w", err)
	}

	swept := 0
	for _, entry := range entries {
		if err := s.sweepEntry(ctx, entry); err != nil {
			s.logger.Warn("entry_sweep_skipped",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
			continue
		}
		swept++
	}

	s.logger.Info("entry_sweep_completed",
		zap.String("job_id", job.ID.String()),
		zap.Time("cutoff", *job.Cutoff),
		zap.Int("candidates", len(entries)),
		zap.Int("swept", swept),
	)
	return nil
}

func (s *EntrySweeper) sweepEntry(ctx context.Context, entry *models.TimeEntry) error {
	endTime := s.now()
	duration := int64(endTime.Sub(entry.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	if _, err := s.entryRepo.Close(ctx, entry.ID, endTime, duration); err != nil {
		return err
	}
	return nil
}

// ProcessJob processes a job based on its type.
func (s *EntrySweeper) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeEntrySweep:
		if err := s.ProcessSweepJob(ctx, job); err != nil {
			return s.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		// Unknown job type goes to the DLQ.
		if nackErr := msg.Nack(false); nackErr != nil {
			s.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError retries failed jobs until the budget runs out, then
// dead-letters them. A plain requeue would redeliver the original
// bytes with the old retry count, so retries travel as a fresh publish
// of the mutated job; the original delivery is acked once the retry is
// safely on the queue.
func (s *EntrySweeper) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		s.logger.Warn("sweep_job_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if s.jobQueue != nil {
			if pubErr := s.jobQueue.Enqueue(ctx, job); pubErr != nil {
				s.logger.Error("retry_publish_failed",
					zap.String("job_id", job.ID.String()),
					zap.Error(pubErr),
				)
			} else {
				if ackErr := msg.Ack(); ackErr != nil {
					s.logger.Error("ack_failed", zap.Error(ackErr))
				}
				return fmt.Errorf("job failed (will retry): %w", err)
			}
		}
		// No queue to republish on: fall back to a broker requeue.
		if nackErr := msg.Nack(true); nackErr != nil {
			s.logger.Error("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	s.logger.Error("sweep_job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		s.logger.Error("nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
