// Package timer owns the per-user time-tracking session: a small state
// machine (Idle, Running, Paused) that produces TimeEntry records.
// Local state only transitions after the repository confirms the
// corresponding write, so the in-memory session always mirrors
// persisted state.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/models"
	"go.uber.org/zap"
)

// State is the session's tracking state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Status is a point-in-time snapshot of a session, safe to serialize.
type Status struct {
	State          State      `json:"state"`
	TaskID         *uuid.UUID `json:"task_id,omitempty"`
	EntryID        *uuid.UUID `json:"entry_id,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	ElapsedSeconds int64      `json:"elapsed_seconds"`
}

// Option configures a session.
type Option func(*Session)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithTickInterval overrides the one-second counter tick, for tests.
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) { s.tickInterval = d }
}

// Session is one user's timer. At most one open TimeEntry exists per
// session; the elapsed counter advances once per tick interval while
// Running and is frozen otherwise. The counter, not the wall-clock
// delta, is what gets persisted as the entry's duration on stop.
type Session struct {
	mu      sync.Mutex
	state   State
	entry   *models.TimeEntry
	elapsed int64

	userID       uuid.UUID
	entries      database.TimeEntryRepositoryInterface
	logger       *zap.Logger
	now          func() time.Time
	tickInterval time.Duration
	stopTick     chan struct{}
}

// NewSession creates an idle session for the user.
func NewSession(userID uuid.UUID, entries database.TimeEntryRepositoryInterface, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		state:        StateIdle,
		userID:       userID,
		entries:      entries,
		logger:       logger,
		now:          time.Now,
		tickInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new TimeEntry for the task and begins counting.
// The transition to Running happens only after the repository confirms
// the insert; on failure the session stays Idle.
func (s *Session) Start(ctx context.Context, taskID uuid.UUID) (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if taskID == uuid.Nil {
		return nil, &ValidationError{Msg: "no task selected"}
	}
	if s.state != StateIdle {
		return nil, &PreconditionError{Msg: "a time entry is already open"}
	}

	entry := &models.TimeEntry{
		ID:        uuid.New(),
		UserID:    s.userID,
		TaskID:    taskID,
		StartTime: s.now(),
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		return nil, &RepositoryError{Err: err}
	}

	s.entry = entry
	s.elapsed = 0
	s.state = StateRunning
	s.startTickLocked()

	s.logger.Info("timer_started",
		zap.String("user_id", s.userID.String()),
		zap.String("task_id", taskID.String()),
		zap.String("entry_id", entry.ID.String()),
	)

	return entry, nil
}

// Pause freezes the elapsed counter. The open TimeEntry is untouched;
// no persistence call is made. Pausing an already paused session is a
// no-op.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return &PreconditionError{Msg: "no time entry is open"}
	case StatePaused:
		return nil
	}

	s.stopTickLocked()
	s.state = StatePaused
	return nil
}

// Resume restarts the elapsed counter without creating a new
// TimeEntry. Resuming a running session is a no-op.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return &PreconditionError{Msg: "no time entry is open"}
	case StateRunning:
		return nil
	}

	s.state = StateRunning
	s.startTickLocked()
	return nil
}

// Stop closes the open TimeEntry with the counter value as its
// duration and returns the session to Idle. The transition happens
// only after the repository confirms the update; on failure the
// session stays in its prior state with the entry still open.
func (s *Session) Stop(ctx context.Context) (*models.TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || s.entry == nil {
		return nil, &PreconditionError{Msg: "no time entry is open"}
	}

	closed, err := s.entries.Close(ctx, s.entry.ID, s.now(), s.elapsed)
	if err != nil {
		s.logger.Warn("timer_stop_not_confirmed",
			zap.String("user_id", s.userID.String()),
			zap.String("entry_id", s.entry.ID.String()),
			zap.Error(err),
		)
		return nil, &RepositoryError{Err: err}
	}

	s.stopTickLocked()
	s.logger.Info("timer_stopped",
		zap.String("user_id", s.userID.String()),
		zap.String("entry_id", closed.ID.String()),
		zap.Int64("duration_seconds", s.elapsed),
	)

	s.state = StateIdle
	s.entry = nil
	s.elapsed = 0

	return closed, nil
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{State: s.state, ElapsedSeconds: s.elapsed}
	if s.entry != nil {
		taskID := s.entry.TaskID
		entryID := s.entry.ID
		startTime := s.entry.StartTime
		st.TaskID = &taskID
		st.EntryID = &entryID
		st.StartTime = &startTime
	}
	return st
}

// Close cancels any pending tick so an abandoned session cannot keep
// counting. The open entry, if any, is left for the background sweeper.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickLocked()
}

func (s *Session) startTickLocked() {
	if s.stopTick != nil {
		return
	}
	stop := make(chan struct{})
	s.stopTick = stop

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Session) stopTickLocked() {
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.elapsed++
	}
	s.mu.Unlock()
}
