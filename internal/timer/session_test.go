package timer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/models"
	"go.uber.org/zap"
)

// fakeEntryRepo is an in-memory TimeEntryRepositoryInterface that can
// be told to fail inserts or closes.
type fakeEntryRepo struct {
	entries    map[uuid.UUID]*models.TimeEntry
	insertErr  error
	closeErr   error
	inserts    int
	closeCalls int
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{entries: make(map[uuid.UUID]*models.TimeEntry)}
}

func (f *fakeEntryRepo) Insert(ctx context.Context, entry *models.TimeEntry) error {
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	stored := *entry
	f.entries[entry.ID] = &stored
	return nil
}

func (f *fakeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, fmt.Errorf("time entry not found")
	}
	return e, nil
}

func (f *fakeEntryRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.TimeEntry, error) {
	var out []*models.TimeEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEntryRepo) Close(ctx context.Context, id uuid.UUID, endTime time.Time, durationSeconds int64) (*models.TimeEntry, error) {
	f.closeCalls++
	if f.closeErr != nil {
		return nil, f.closeErr
	}
	e, ok := f.entries[id]
	if !ok || !e.IsOpen() {
		return nil, fmt.Errorf("time entry not found or already closed")
	}
	e.EndTime = &endTime
	e.DurationSeconds = &durationSeconds
	return e, nil
}

func (f *fakeEntryRepo) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*models.TimeEntry, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.IsOpen() {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no open time entry")
}

func (f *fakeEntryRepo) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.TimeEntry, error) {
	var out []*models.TimeEntry
	for _, e := range f.entries {
		if e.IsOpen() && e.StartTime.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestSession(repo *fakeEntryRepo) *Session {
	// A long tick interval keeps the background ticker quiet; tests
	// drive the counter through tick() directly.
	return NewSession(uuid.New(), repo, zap.NewNop(), WithTickInterval(time.Hour))
}

func TestSession_StartWithoutTaskFailsValidation(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)

	_, err := s.Start(context.Background(), uuid.Nil)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.inserts != 0 {
		t.Errorf("validation failure must not touch the repository, got %d inserts", repo.inserts)
	}
	if s.Status().State != StateIdle {
		t.Errorf("expected session to stay idle, got %s", s.Status().State)
	}
}

func TestSession_StartWhileRunningFailsPrecondition(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)
	defer s.Close()

	if _, err := s.Start(context.Background(), uuid.New()); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	_, err := s.Start(context.Background(), uuid.New())
	var perr *PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
	if repo.inserts != 1 {
		t.Errorf("second start must not insert another entry, got %d inserts", repo.inserts)
	}
}

func TestSession_StartRepositoryFailureStaysIdle(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	repo.insertErr = fmt.Errorf("connection refused")
	s := newTestSession(repo)

	_, err := s.Start(context.Background(), uuid.New())

	var rerr *RepositoryError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RepositoryError, got %v", err)
	}
	if s.Status().State != StateIdle {
		t.Errorf("unconfirmed insert must not transition the session, got %s", s.Status().State)
	}
}

func TestSession_StopWithNothingRunningFailsPrecondition(t *testing.T) {
	t.Parallel()

	s := newTestSession(newFakeEntryRepo())

	_, err := s.Stop(context.Background())
	var perr *PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestSession_StartTickStopPersistsCounterAsDuration(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)
	defer s.Close()

	entry, err := s.Start(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 1500; i++ {
		s.tick()
	}

	closed, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	if closed.ID != entry.ID {
		t.Errorf("stop closed entry %s, want %s", closed.ID, entry.ID)
	}
	if closed.DurationSeconds == nil || *closed.DurationSeconds != 1500 {
		t.Errorf("expected duration 1500, got %v", closed.DurationSeconds)
	}
	if closed.EndTime == nil || closed.EndTime.Before(closed.StartTime) {
		t.Errorf("closed entry must have end_time >= start_time, got %v", closed.EndTime)
	}
	if s.Status().State != StateIdle {
		t.Errorf("expected idle after stop, got %s", s.Status().State)
	}
}

func TestSession_PauseFreezesCounterAndIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)
	defer s.Close()

	if _, err := s.Start(context.Background(), uuid.New()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	s.tick()
	s.tick()

	if err := s.Pause(); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Errorf("pausing a paused session should be a no-op, got %v", err)
	}

	// Ticks while paused must not advance the counter.
	s.tick()
	s.tick()

	if got := s.Status().ElapsedSeconds; got != 2 {
		t.Errorf("elapsed = %d after pause, want 2", got)
	}
	if got := s.Status().State; got != StatePaused {
		t.Errorf("state = %s, want paused", got)
	}

	if err := s.Resume(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	s.tick()
	if got := s.Status().ElapsedSeconds; got != 3 {
		t.Errorf("elapsed = %d after resume, want 3", got)
	}

	// Resume keeps the same entry: no extra insert happened.
	if repo.inserts != 1 {
		t.Errorf("resume must not create a new entry, got %d inserts", repo.inserts)
	}
}

func TestSession_PauseAndResumeFromIdleFailPrecondition(t *testing.T) {
	t.Parallel()

	s := newTestSession(newFakeEntryRepo())

	var perr *PreconditionError
	if err := s.Pause(); !errors.As(err, &perr) {
		t.Errorf("pause from idle: expected PreconditionError, got %v", err)
	}
	if err := s.Resume(); !errors.As(err, &perr) {
		t.Errorf("resume from idle: expected PreconditionError, got %v", err)
	}
}

func TestSession_StopRepositoryFailureKeepsEntryOpen(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)
	defer s.Close()

	entry, err := s.Start(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.tick()

	repo.closeErr = fmt.Errorf("network timeout")
	_, err = s.Stop(context.Background())

	var rerr *RepositoryError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RepositoryError, got %v", err)
	}
	if got := s.Status().State; got != StateRunning {
		t.Errorf("unconfirmed stop must not transition the session, got %s", got)
	}

	stored := repo.entries[entry.ID]
	if !stored.IsOpen() {
		t.Error("entry must remain open after a failed stop")
	}

	// A retry after the repository recovers succeeds and reaches idle.
	repo.closeErr = nil
	closed, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("retried stop failed: %v", err)
	}
	if closed.DurationSeconds == nil || *closed.DurationSeconds != 1 {
		t.Errorf("expected duration 1 on retried stop, got %v", closed.DurationSeconds)
	}
	if s.Status().State != StateIdle {
		t.Errorf("expected idle after confirmed stop, got %s", s.Status().State)
	}
}

func TestSession_StatusReportsOpenEntry(t *testing.T) {
	t.Parallel()

	repo := newFakeEntryRepo()
	s := newTestSession(repo)
	defer s.Close()

	taskID := uuid.New()
	entry, err := s.Start(context.Background(), taskID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	st := s.Status()
	if st.State != StateRunning {
		t.Errorf("state = %s, want running", st.State)
	}
	if st.TaskID == nil || *st.TaskID != taskID {
		t.Errorf("task_id = %v, want %s", st.TaskID, taskID)
	}
	if st.EntryID == nil || *st.EntryID != entry.ID {
		t.Errorf("entry_id = %v, want %s", st.EntryID, entry.ID)
	}
}

func TestManager_OneSessionPerUser(t *testing.T) {
	t.Parallel()

	m := NewManager(newFakeEntryRepo(), zap.NewNop(), WithTickInterval(time.Hour))
	defer m.Close()

	alice := uuid.New()
	bob := uuid.New()

	if m.Session(alice) != m.Session(alice) {
		t.Error("expected the same session for the same user")
	}
	if m.Session(alice) == m.Session(bob) {
		t.Error("expected distinct sessions for distinct users")
	}
}
