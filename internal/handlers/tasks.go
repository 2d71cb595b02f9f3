package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/filter"
	"github.com/petrhale/focustrack/internal/models"
	"github.com/petrhale/focustrack/internal/request"
	"github.com/petrhale/focustrack/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 500
	// MaxDescriptionLength is the maximum length for a task description
	MaxDescriptionLength = 10000
)

// TaskHandler handles task-related requests.
type TaskHandler struct {
	taskRepo     database.TaskRepositoryInterface
	categoryRepo database.CategoryRepositoryInterface
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskRepo database.TaskRepositoryInterface, categoryRepo database.CategoryRepositoryInterface) *TaskHandler {
	return &TaskHandler{taskRepo: taskRepo, categoryRepo: categoryRepo}
}

// RegisterRoutes registers task routes on the given router.
// The router should already carry the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/complete", h.CompleteTask).Methods("POST")
}

// CreateTaskRequest represents a create task request.
type CreateTaskRequest struct {
	Title            string  `json:"title" validate:"required,min=1,max=500"`
	Description      *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueDate          *string `json:"due_date,omitempty"`
	Priority         string  `json:"priority,omitempty" validate:"omitempty,priority"`
	EstimatedMinutes *int    `json:"estimated_minutes,omitempty" validate:"omitempty,min=1"`
	CategoryID       *string `json:"category_id,omitempty" validate:"omitempty,uuid4"`
}

// UpdateTaskRequest represents a partial task update.
type UpdateTaskRequest struct {
	Title            *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Description      *string `json:"description,omitempty" validate:"omitempty,max=10000"`
	DueDate          *string `json:"due_date,omitempty"`
	Priority         *string `json:"priority,omitempty" validate:"omitempty,priority"`
	EstimatedMinutes *int    `json:"estimated_minutes,omitempty" validate:"omitempty,min=1"`
	CategoryID       *string `json:"category_id,omitempty"`
}

// CompleteTaskRequest toggles the completion flag.
type CompleteTaskRequest struct {
	Completed bool `json:"completed"`
}

// ListTasks lists the user's tasks, newest first, with optional search,
// status and priority filters applied in-process.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	status := filter.StatusAll
	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateStatusFilter(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status = filter.Status(s)
	}

	priority := filter.PriorityAll
	if p := r.URL.Query().Get("priority"); p != "" {
		if err := validation.ValidatePriority(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority = p
	}

	tasks, err := h.taskRepo.ListByUser(r.Context(), user.ID, nil)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	tasks = filter.Apply(tasks, r.URL.Query().Get("search"), status, priority)
	respondJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "total": len(tasks)})
}

// CreateTask creates a new task for the authenticated user.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
		return
	}

	task := &models.Task{
		ID:               uuid.New(),
		UserID:           user.ID,
		Title:            req.Title,
		Priority:         models.PriorityMedium,
		EstimatedMinutes: req.EstimatedMinutes,
		CreatedAt:        time.Now().UTC(),
	}

	if req.Description != nil {
		desc := validation.SanitizeText(*req.Description)
		if desc != "" {
			task.Description = &desc
		}
	}
	if req.Priority != "" {
		task.Priority = models.Priority(req.Priority)
	}
	if req.DueDate != nil && *req.DueDate != "" {
		dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "due_date must be RFC3339")
			return
		}
		task.DueDate = &dueDate
	}
	if req.CategoryID != nil && *req.CategoryID != "" {
		categoryID, ok := h.resolveCategory(w, r, user.ID, *req.CategoryID)
		if !ok {
			return
		}
		task.CategoryID = &categoryID
	}

	if err := h.taskRepo.Create(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a single task owned by the authenticated user.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	user := request.UserFromContext(r)

	var req UpdateTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		task.Title = title
	}
	if req.Description != nil {
		desc := validation.SanitizeText(*req.Description)
		if desc == "" {
			task.Description = nil
		} else {
			task.Description = &desc
		}
	}
	if req.Priority != nil {
		task.Priority = models.Priority(*req.Priority)
	}
	if req.EstimatedMinutes != nil {
		task.EstimatedMinutes = req.EstimatedMinutes
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			task.DueDate = nil
		} else {
			dueDate, err := time.Parse(time.RFC3339, *req.DueDate)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "due_date must be RFC3339")
				return
			}
			task.DueDate = &dueDate
		}
	}
	if req.CategoryID != nil {
		if *req.CategoryID == "" {
			task.CategoryID = nil
		} else {
			categoryID, ok := h.resolveCategory(w, r, user.ID, *req.CategoryID)
			if !ok {
				return
			}
			task.CategoryID = &categoryID
		}
	}

	if err := h.taskRepo.Update(r.Context(), task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CompleteTask sets or clears the completion flag. Completing stamps
// completed_at; un-completing clears it.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	req := CompleteTaskRequest{Completed: true}
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}

	var completedAt *time.Time
	if req.Completed {
		now := time.Now().UTC()
		completedAt = &now
	}

	updated, err := h.taskRepo.SetCompleted(r.Context(), task.ID, req.Completed, completedAt)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteTask deletes a task owned by the authenticated user.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), task.ID); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete task")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": task.ID.String()})
}

// ownedTask loads the task from the {id} path variable and enforces
// ownership. Tasks belonging to other users 404 rather than 403 so IDs
// are not enumerable.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*models.Task, bool) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return nil, false
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return nil, false
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return nil, false
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return nil, false
	}
	return task, true
}

// resolveCategory parses the category ID and verifies the category
// exists and belongs to the user.
func (h *TaskHandler) resolveCategory(w http.ResponseWriter, r *http.Request, userID uuid.UUID, raw string) (uuid.UUID, bool) {
	categoryID, err := uuid.Parse(raw)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return uuid.Nil, false
	}
	category, err := h.categoryRepo.GetByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Category does not exist")
			return uuid.Nil, false
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve category")
		return uuid.Nil, false
	}
	if category.UserID != userID {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Category does not exist")
		return uuid.Nil, false
	}
	return categoryID, true
}

// decodeBody decodes the JSON request body, mapping body-size overruns
// to 413.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return false
	}
	return true
}

// validateStruct runs the shared validator and reports the first field
// error to the client.
func validateStruct(w http.ResponseWriter, req any) bool {
	if err := validation.Validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request",
				fmt.Sprintf("Validation failed: %s", validationErrors[0].Error()))
			return false
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return false
	}
	return true
}
