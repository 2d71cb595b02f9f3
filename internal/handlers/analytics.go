package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/petrhale/focustrack/internal/analytics"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/request"
)

// MaxAnalyticsWindowDays caps the requested reporting window.
const MaxAnalyticsWindowDays = 365

// AnalyticsHandler serves the productivity snapshot and summary counts.
type AnalyticsHandler struct {
	taskRepo     database.TaskRepositoryInterface
	categoryRepo database.CategoryRepositoryInterface
	entryRepo    database.TimeEntryRepositoryInterface
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(taskRepo database.TaskRepositoryInterface, categoryRepo database.CategoryRepositoryInterface, entryRepo database.TimeEntryRepositoryInterface) *AnalyticsHandler {
	return &AnalyticsHandler{taskRepo: taskRepo, categoryRepo: categoryRepo, entryRepo: entryRepo}
}

// RegisterRoutes registers analytics routes on the given router.
// The router should already carry the /analytics prefix.
func (h *AnalyticsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSnapshot).Methods("GET")
	r.HandleFunc("/summary", h.GetSummary).Methods("GET")
}

// SnapshotResponse bundles the aggregated snapshot with the headline
// counters.
type SnapshotResponse struct {
	Snapshot *analytics.Snapshot `json:"snapshot"`
	Summary  analytics.Summary   `json:"summary"`
}

// GetSnapshot aggregates the user's tasks and time entries over a
// trailing window (?days=, default 30, max 365).
func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	days := analytics.DefaultWindowDays
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 || parsed > MaxAnalyticsWindowDays {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	now := time.Now()
	window := analytics.TrailingWindow(now, days)

	tasks, err := h.taskRepo.ListByUser(r.Context(), user.ID, nil)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}
	categories, err := h.categoryRepo.ListByUser(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve categories")
		return
	}
	entries, err := h.entryRepo.ListByUser(r.Context(), user.ID, 0)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve time entries")
		return
	}

	response := SnapshotResponse{
		Snapshot: analytics.Aggregate(tasks, categories, entries, window),
		Summary:  analytics.Summarize(tasks, now),
	}

	respondJSON(w, http.StatusOK, response)
}

// GetSummary returns just the headline counters: total, completed and
// overdue tasks.
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	tasks, err := h.taskRepo.ListByUser(r.Context(), user.ID, nil)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	respondJSON(w, http.StatusOK, analytics.Summarize(tasks, time.Now()))
}
