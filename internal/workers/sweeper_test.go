package workers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/models"
	"github.com/petrhale/focustrack/internal/queue"
	"go.uber.org/zap"
)

type sweepEntryRepo struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*models.TimeEntry
	listErr  error
	closeErr map[uuid.UUID]error
}

func newSweepEntryRepo() *sweepEntryRepo {
	return &sweepEntryRepo{
		entries:  make(map[uuid.UUID]*models.TimeEntry),
		closeErr: make(map[uuid.UUID]error),
	}
}

func (f *sweepEntryRepo) Insert(_ context.Context, entry *models.TimeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = entry
	return nil
}

func (f *sweepEntryRepo) GetByID(_ context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return entry, nil
}

func (f *sweepEntryRepo) ListByUser(_ context.Context, userID uuid.UUID, _ int) ([]*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.TimeEntry
	for _, entry := range f.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *sweepEntryRepo) Close(_ context.Context, id uuid.UUID, endTime time.Time, durationSeconds int64) (*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.closeErr[id]; err != nil {
		return nil, err
	}
	entry, ok := f.entries[id]
	if !ok || !entry.IsOpen() {
		return nil, sql.ErrNoRows
	}
	entry.EndTime = &endTime
	entry.DurationSeconds = &durationSeconds
	return entry, nil
}

func (f *sweepEntryRepo) GetOpenByUser(_ context.Context, _ uuid.UUID) (*models.TimeEntry, error) {
	return nil, sql.ErrNoRows
}

func (f *sweepEntryRepo) ListOpenBefore(_ context.Context, cutoff time.Time) ([]*models.TimeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.TimeEntry
	for _, entry := range f.entries {
		if entry.IsOpen() && entry.StartTime.Before(cutoff) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func openEntry(repo *sweepEntryRepo, startedAgo time.Duration) *models.TimeEntry {
	entry := &models.TimeEntry{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		TaskID:    uuid.New(),
		StartTime: time.Now().Add(-startedAgo),
	}
	repo.entries[entry.ID] = entry
	return entry
}

func TestProcessSweepJobClosesAbandonedEntries(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	stale := openEntry(repo, 48*time.Hour)
	fresh := openEntry(repo, time.Minute)

	sweeper := NewEntrySweeper(repo, nil, zap.NewNop())
	job := queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))

	if err := sweeper.ProcessSweepJob(context.Background(), job); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if repo.entries[stale.ID].IsOpen() {
		t.Error("stale entry should be closed")
	}
	if !repo.entries[fresh.ID].IsOpen() {
		t.Error("fresh entry must stay open")
	}

	// Swept duration comes from the wall-clock delta.
	got := *repo.entries[stale.ID].DurationSeconds
	want := int64(48 * time.Hour / time.Second)
	if got < want-5 || got > want+5 {
		t.Errorf("expected ~%d seconds, got %d", want, got)
	}
}

func TestProcessSweepJobSkipsRacedEntries(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	raced := openEntry(repo, 48*time.Hour)
	other := openEntry(repo, 48*time.Hour)
	repo.closeErr[raced.ID] = sql.ErrNoRows

	sweeper := NewEntrySweeper(repo, nil, zap.NewNop())
	job := queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))

	// One entry racing its own session's stop must not fail the sweep.
	if err := sweeper.ProcessSweepJob(context.Background(), job); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if repo.entries[other.ID].IsOpen() {
		t.Error("remaining entry should still be swept")
	}
}

func TestProcessSweepJobRequiresCutoff(t *testing.T) {
	t.Parallel()

	sweeper := NewEntrySweeper(newSweepEntryRepo(), nil, zap.NewNop())
	job := &queue.Job{ID: uuid.New(), Type: queue.JobTypeEntrySweep}

	if err := sweeper.ProcessSweepJob(context.Background(), job); err == nil {
		t.Error("expected error for job without cutoff")
	}
}

func TestProcessSweepJobListFailure(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	repo.listErr = errors.New("connection reset")

	sweeper := NewEntrySweeper(repo, nil, zap.NewNop())
	job := queue.NewEntrySweepJob(time.Now())

	if err := sweeper.ProcessSweepJob(context.Background(), job); err == nil {
		t.Error("expected error when listing fails")
	}
}

type sweepMessage struct {
	job   *queue.Job
	acked bool
	nacks []bool
}

func (m *sweepMessage) Ack() error { m.acked = true; return nil }

func (m *sweepMessage) Nack(requeue bool) error {
	m.nacks = append(m.nacks, requeue)
	return nil
}

func (m *sweepMessage) GetJob() *queue.Job { return m.job }

type sweepJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (q *sweepJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *sweepJobQueue) Consume(_ context.Context, _ int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (q *sweepJobQueue) Close() error { return nil }

func (q *sweepJobQueue) HealthCheck(_ context.Context) error { return nil }

func TestProcessJobAcksSuccessfulSweep(t *testing.T) {
	t.Parallel()

	jq := &sweepJobQueue{}
	sweeper := NewEntrySweeper(newSweepEntryRepo(), jq, zap.NewNop())
	msg := &sweepMessage{job: queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))}

	if err := sweeper.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}
	if !msg.acked {
		t.Error("successful job must be acked")
	}
	if len(jq.enqueued) != 0 {
		t.Errorf("nothing should be republished, got %d jobs", len(jq.enqueued))
	}
}

func TestProcessJobRepublishesRetryWithBumpedCount(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	repo.listErr = errors.New("connection reset")
	jq := &sweepJobQueue{}
	sweeper := NewEntrySweeper(repo, jq, zap.NewNop())
	msg := &sweepMessage{job: queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))}

	if err := sweeper.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected a retryable failure")
	}

	// The retry travels as a fresh publish carrying the bumped count;
	// a plain requeue would redeliver the original bytes and reset the
	// budget forever.
	if len(jq.enqueued) != 1 {
		t.Fatalf("expected 1 republished job, got %d", len(jq.enqueued))
	}
	if got := jq.enqueued[0].RetryCount; got != 1 {
		t.Errorf("republished retry count = %d, want 1", got)
	}
	if jq.enqueued[0].ID != msg.job.ID {
		t.Error("republished job must keep its identity")
	}
	if !msg.acked {
		t.Error("original delivery must be acked once the retry is published")
	}
	if len(msg.nacks) != 0 {
		t.Errorf("expected no nacks, got %v", msg.nacks)
	}
}

func TestProcessJobDeadLettersExhaustedRetries(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	repo.listErr = errors.New("connection reset")
	jq := &sweepJobQueue{}
	sweeper := NewEntrySweeper(repo, jq, zap.NewNop())

	job := queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))
	job.RetryCount = job.MaxRetries
	msg := &sweepMessage{job: job}

	if err := sweeper.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected a failure after exhausting retries")
	}
	if len(jq.enqueued) != 0 {
		t.Errorf("exhausted job must not be republished, got %d jobs", len(jq.enqueued))
	}
	if msg.acked {
		t.Error("exhausted job must not be acked")
	}
	if len(msg.nacks) != 1 || msg.nacks[0] {
		t.Errorf("expected a single no-requeue nack, got %v", msg.nacks)
	}
}

func TestProcessJobFallsBackToRequeueWhenPublishFails(t *testing.T) {
	t.Parallel()

	repo := newSweepEntryRepo()
	repo.listErr = errors.New("connection reset")
	jq := &sweepJobQueue{enqueueErr: errors.New("channel closed")}
	sweeper := NewEntrySweeper(repo, jq, zap.NewNop())
	msg := &sweepMessage{job: queue.NewEntrySweepJob(time.Now().Add(-24 * time.Hour))}

	if err := sweeper.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected a retryable failure")
	}
	if msg.acked {
		t.Error("delivery must not be acked when the retry publish fails")
	}
	if len(msg.nacks) != 1 || !msg.nacks[0] {
		t.Errorf("expected a single requeue nack, got %v", msg.nacks)
	}
}

func TestProcessJobDeadLettersUnknownType(t *testing.T) {
	t.Parallel()

	sweeper := NewEntrySweeper(newSweepEntryRepo(), &sweepJobQueue{}, zap.NewNop())
	job := queue.NewEntrySweepJob(time.Now())
	job.Type = "mystery"
	msg := &sweepMessage{job: job}

	if err := sweeper.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected an error for an unknown job type")
	}
	if len(msg.nacks) != 1 || msg.nacks[0] {
		t.Errorf("expected a single no-requeue nack, got %v", msg.nacks)
	}
}
