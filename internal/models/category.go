package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is a named, colored grouping label applied to tasks.
// The color is a display token only; aggregation carries it through
// without interpreting it.
type Category struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}
