package models

import "github.com/google/uuid"

// User identifies the owner of tasks, categories and time entries.
// Identity comes from the verified bearer token; this service does not
// manage accounts itself.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
}
