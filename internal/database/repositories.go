package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID, since *time.Time) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	SetCompleted(ctx context.Context, id uuid.UUID, completed bool, completedAt *time.Time) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepositoryInterface defines the interface for category repository operations
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TimeEntryRepositoryInterface defines the interface for time entry repository operations
type TimeEntryRepositoryInterface interface {
	Insert(ctx context.Context, entry *models.TimeEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.TimeEntry, error)
	Close(ctx context.Context, id uuid.UUID, endTime time.Time, durationSeconds int64) (*models.TimeEntry, error)
	GetOpenByUser(ctx context.Context, userID uuid.UUID) (*models.TimeEntry, error)
	ListOpenBefore(ctx context.Context, cutoff time.Time) ([]*models.TimeEntry, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface      = (*TaskRepository)(nil)
	_ CategoryRepositoryInterface  = (*CategoryRepository)(nil)
	_ TimeEntryRepositoryInterface = (*TimeEntryRepository)(nil)
)
