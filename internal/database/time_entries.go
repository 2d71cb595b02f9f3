package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/models"
)

// TimeEntryRepository handles time entry database operations
type TimeEntryRepository struct {
	db *DB
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

const timeEntryColumns = `id, user_id, task_id, start_time, end_time, duration_seconds, created_at`

// Insert creates a new open time entry (no end_time, no duration).
func (r *TimeEntryRepository) Insert(ctx context.Context, entry *models.TimeEntry) error {
	query := `
		INSERT INTO time_entries (id, user_id, task_id, start_time, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.TaskID,
		entry.StartTime,
		time.Now(),
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert time entry: %w", err)
	}

	return nil
}

// GetByID retrieves a time entry by ID
func (r *TimeEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE id = $1`

	entry, err := scanTimeEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time entry not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get time entry: %w", err)
	}

	return entry, nil
}

// ListByUser retrieves the user's entries sorted by descending start
// time. limit <= 0 means no limit.
func (r *TimeEntryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.TimeEntry, error) {
	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE user_id = $1 ORDER BY start_time DESC`
	args := []any{userID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	return collectTimeEntries(rows)
}

// Close marks an open entry closed with the given end time and
// duration. Entries that are already closed are left untouched; a
// closed entry never transitions back to open or gets rewritten.
func (r *TimeEntryRepository) Close(ctx context.Context, id uuid.UUID, endTime time.Time, durationSeconds int64) (*models.TimeEntry, error) {
	if durationSeconds < 0 {
		return nil, fmt.Errorf("duration must be non-negative, got %d", durationSeconds)
	}

	query := `
		UPDATE time_entries
		SET end_time = $2, duration_seconds = $3
		WHERE id = $1 AND end_time IS NULL AND duration_seconds IS NULL
		RETURNING ` + timeEntryColumns

	entry, err := scanTimeEntry(r.db.QueryRowContext(ctx, query, id, endTime, durationSeconds))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("time entry not found or already closed: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close time entry: %w", err)
	}

	return entry, nil
}

// GetOpenByUser returns the user's open entry, or sql.ErrNoRows-wrapped
// error when none is open.
func (r *TimeEntryRepository) GetOpenByUser(ctx context.Context, userID uuid.UUID) (*models.TimeEntry, error) {
	query := `
		SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE user_id = $1 AND end_time IS NULL AND duration_seconds IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`

	entry, err := scanTimeEntry(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no open time entry: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open time entry: %w", err)
	}

	return entry, nil
}

// ListOpenBefore returns open entries started before the cutoff, across
// all users. The background sweeper uses this to reclaim entries whose
// session died without a confirmed stop.
func (r *TimeEntryRepository) ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.TimeEntry, error) {
	query := `
		SELECT ` + timeEntryColumns + `
		FROM time_entries
		WHERE end_time IS NULL AND duration_seconds IS NULL AND start_time < $1
		ORDER BY start_time ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query open time entries: %w", err)
	}
	defer rows.Close()

	return collectTimeEntries(rows)
}

func collectTimeEntries(rows *sql.Rows) ([]*models.TimeEntry, error) {
	var entries []*models.TimeEntry
	for rows.Next() {
		entry, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time entries: %w", err)
	}

	return entries, nil
}

func scanTimeEntry(row rowScanner) (*models.TimeEntry, error) {
	entry := &models.TimeEntry{}
	var endTime sql.NullTime
	var duration sql.NullInt64

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.TaskID,
		&entry.StartTime,
		&endTime,
		&duration,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		entry.EndTime = &endTime.Time
	}
	if duration.Valid {
		entry.DurationSeconds = &duration.Int64
	}

	return entry, nil
}
