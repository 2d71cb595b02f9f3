// Package filter selects the visible subset of a task list from
// search text, completion status and priority. It is a pure pipeline:
// it never mutates tasks and never reorders them, so callers that
// supply tasks sorted by descending creation time get the filtered
// list in the same order.
package filter

import (
	"strings"

	"github.com/petrhale/focustrack/internal/models"
)

// Status narrows tasks by completion state.
type Status string

const (
	StatusAll       Status = "all"
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

// PriorityAll passes every priority.
const PriorityAll = "all"

// Apply returns the tasks matching all active filters, preserving the
// relative order of the input. An empty search, StatusAll and
// PriorityAll each pass everything, so Apply(tasks, "", StatusAll,
// PriorityAll) returns the input unchanged.
func Apply(tasks []*models.Task, search string, status Status, priority string) []*models.Task {
	search = strings.ToLower(strings.TrimSpace(search))

	result := make([]*models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !matchesSearch(task, search) {
			continue
		}
		if !matchesStatus(task, status) {
			continue
		}
		if !matchesPriority(task, priority) {
			continue
		}
		result = append(result, task)
	}
	return result
}

func matchesSearch(task *models.Task, search string) bool {
	if search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(task.Title), search) {
		return true
	}
	// A task without a description never matches on description.
	return task.Description != nil && strings.Contains(strings.ToLower(*task.Description), search)
}

func matchesStatus(task *models.Task, status Status) bool {
	switch status {
	case StatusCompleted:
		return task.Completed
	case StatusPending:
		return !task.Completed
	default:
		return true
	}
}

func matchesPriority(task *models.Task, priority string) bool {
	if priority == "" || priority == PriorityAll {
		return true
	}
	return task.Priority == models.Priority(priority)
}
