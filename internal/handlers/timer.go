package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/request"
	"github.com/petrhale/focustrack/internal/timer"
)

// TimerHandler exposes the per-user timer session over HTTP.
type TimerHandler struct {
	manager   *timer.Manager
	taskRepo  database.TaskRepositoryInterface
	entryRepo database.TimeEntryRepositoryInterface
}

// NewTimerHandler creates a new timer handler.
func NewTimerHandler(manager *timer.Manager, taskRepo database.TaskRepositoryInterface, entryRepo database.TimeEntryRepositoryInterface) *TimerHandler {
	return &TimerHandler{manager: manager, taskRepo: taskRepo, entryRepo: entryRepo}
}

// RegisterRoutes registers timer routes on the given router.
// The router should already carry the /timer prefix.
func (h *TimerHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetStatus).Methods("GET")
	r.HandleFunc("/start", h.Start).Methods("POST")
	r.HandleFunc("/pause", h.Pause).Methods("POST")
	r.HandleFunc("/resume", h.Resume).Methods("POST")
	r.HandleFunc("/stop", h.Stop).Methods("POST")
	r.HandleFunc("/entries", h.ListEntries).Methods("GET")
}

// StartTimerRequest selects the task to track.
type StartTimerRequest struct {
	TaskID string `json:"task_id" validate:"required"`
}

// GetStatus reports the session snapshot: state, open entry and frozen
// or counting elapsed seconds.
func (h *TimerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, h.manager.Session(user.ID).Status())
}

// Start opens a time entry for the requested task and starts counting.
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req StartTimerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateStruct(w, req) {
		return
	}

	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	// Ownership check up front so a foreign task ID cannot be tracked.
	task, err := h.taskRepo.GetByID(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve task")
		return
	}
	if task.UserID != user.ID {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	entry, err := h.manager.Session(user.ID).Start(r.Context(), taskID)
	if err != nil {
		respondTimerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// Pause freezes the running timer.
func (h *TimerHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *timer.Session) error { return s.Pause() })
}

// Resume restarts a paused timer.
func (h *TimerHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *timer.Session) error { return s.Resume() })
}

// Stop closes the open time entry and returns it.
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entry, err := h.manager.Session(user.ID).Stop(r.Context())
	if err != nil {
		respondTimerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// ListEntries returns the user's most recent time entries.
func (h *TimerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	entries, err := h.entryRepo.ListByUser(r.Context(), user.ID, 100)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve time entries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": len(entries)})
}

func (h *TimerHandler) transition(w http.ResponseWriter, r *http.Request, op func(*timer.Session) error) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	session := h.manager.Session(user.ID)
	if err := op(session); err != nil {
		respondTimerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, session.Status())
}

// respondTimerError maps session errors onto HTTP statuses: bad input
// is 400, transitions from the wrong state are 409, storage failures
// are 500.
func respondTimerError(w http.ResponseWriter, err error) {
	var validationErr *timer.ValidationError
	var preconditionErr *timer.PreconditionError
	switch {
	case errors.As(err, &validationErr):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationErr.Msg)
	case errors.As(err, &preconditionErr):
		respondJSONError(w, http.StatusConflict, "Conflict", preconditionErr.Msg)
	default:
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Timer operation failed")
	}
}
