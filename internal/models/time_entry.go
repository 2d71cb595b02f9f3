package models

import (
	"time"

	"github.com/google/uuid"
)

// TimeEntry is a recorded interval of tracked time against one task.
// An entry is open iff both EndTime and DurationSeconds are absent,
// and closed iff both are present. A closed entry never reopens.
type TimeEntry struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TaskID          uuid.UUID  `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *int64     `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsOpen reports whether the entry is still being tracked.
func (e *TimeEntry) IsOpen() bool {
	return e.EndTime == nil && e.DurationSeconds == nil
}

// IsClosed reports whether the entry has finished with a recorded
// duration.
func (e *TimeEntry) IsClosed() bool {
	return e.EndTime != nil && e.DurationSeconds != nil && *e.DurationSeconds >= 0
}
