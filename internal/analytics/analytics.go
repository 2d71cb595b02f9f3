// Package analytics derives productivity statistics from task and
// time entry collections. Aggregation is a pure function of its
// inputs: nothing is cached, nothing is mutated, and empty inputs
// yield a structurally complete, zero-filled snapshot.
package analytics

import (
	"sort"
	"time"

	"github.com/petrhale/focustrack/internal/models"
)

// DayCompletion is one day's task-completion bucket.
type DayCompletion struct {
	Date      time.Time `json:"date"`
	Label     string    `json:"label"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
}

// DayMinutes is one day's tracked-time bucket, in whole minutes.
type DayMinutes struct {
	Date    time.Time `json:"date"`
	Label   string    `json:"label"`
	Minutes int       `json:"minutes"`
}

// CategoryCount is one category histogram bar: how many tasks carry
// the category, with its display color passed through untouched.
type CategoryCount struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// WeeklyStats are the rolled-up numbers for the trailing seven days.
type WeeklyStats struct {
	TasksCompleted     int `json:"tasks_completed"`
	TimeTrackedMinutes int `json:"time_tracked_minutes"`
	AverageTaskMinutes int `json:"average_task_minutes"`
	CompletionRate     int `json:"completion_rate"`
}

// Summary holds the dashboard counters computed over the full input.
type Summary struct {
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	OverdueTasks   int `json:"overdue_tasks"`
}

// Snapshot is the complete derived output for one window. It is never
// persisted; every request recomputes it.
type Snapshot struct {
	Window          Window          `json:"window"`
	DailyCompletion []DayCompletion `json:"daily_completion"`
	WeekCompletion  []DayCompletion `json:"week_completion"`
	Categories      []CategoryCount `json:"categories"`
	TimeSeries      []DayMinutes    `json:"time_series"`
	WeekTimeSeries  []DayMinutes    `json:"week_time_series"`
	Weekly          WeeklyStats     `json:"weekly"`
}

// Aggregate computes a snapshot from the given tasks, categories and
// time entries over the window. Deterministic given identical inputs.
// Tasks created outside the window and open time entries do not
// contribute to the day series; only closed entries carry duration.
func Aggregate(tasks []*models.Task, categories []*models.Category, entries []*models.TimeEntry, w Window) *Snapshot {
	days := w.Days()

	completion := make([]DayCompletion, days)
	minutes := make([]DayMinutes, days)
	index := make(map[string]int, days)
	for i, d := 0, w.Start; i < days; i, d = i+1, d.AddDate(0, 0, 1) {
		completion[i] = DayCompletion{Date: d, Label: dateKey(d)}
		minutes[i] = DayMinutes{Date: d, Label: dateKey(d)}
		index[dateKey(d)] = i
	}

	for _, task := range tasks {
		i, ok := index[dateKey(task.CreatedAt)]
		if !ok || !w.Contains(task.CreatedAt) {
			continue
		}
		completion[i].Total++
		if task.Completed {
			completion[i].Completed++
		}
	}

	secondsPerDay := make([]int64, days)
	for _, entry := range entries {
		if !entry.IsClosed() {
			continue
		}
		i, ok := index[dateKey(entry.StartTime)]
		if !ok || !w.Contains(entry.StartTime) {
			continue
		}
		secondsPerDay[i] += *entry.DurationSeconds
	}
	for i, secs := range secondsPerDay {
		// One rounding step per bucket, never compounded.
		minutes[i].Minutes = roundHalfAway(float64(secs) / 60)
	}

	return &Snapshot{
		Window:          w,
		DailyCompletion: completion,
		WeekCompletion:  relabelCompletion(trailing(completion, DisplayDays)),
		Categories:      categoryHistogram(tasks, categories),
		TimeSeries:      minutes,
		WeekTimeSeries:  relabelMinutes(trailing(minutes, DisplayDays)),
		Weekly:          weeklyStats(tasks, entries, w.SubWindow(DisplayDays)),
	}
}

// Summarize computes the dashboard counters over the full task set.
func Summarize(tasks []*models.Task, now time.Time) Summary {
	s := Summary{TotalTasks: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			s.CompletedTasks++
		}
		if task.IsOverdue(now) {
			s.OverdueTasks++
		}
	}
	return s
}

func categoryHistogram(tasks []*models.Task, categories []*models.Category) []CategoryCount {
	byID := make(map[string]*models.Category, len(categories))
	for _, c := range categories {
		byID[c.ID.String()] = c
	}

	counts := make(map[string]*CategoryCount)
	for _, task := range tasks {
		if task.CategoryID == nil {
			continue
		}
		cat, ok := byID[task.CategoryID.String()]
		if !ok {
			continue
		}
		cc, ok := counts[cat.Name]
		if !ok {
			cc = &CategoryCount{Name: cat.Name, Color: cat.Color}
			counts[cat.Name] = cc
		}
		cc.Count++
	}

	result := make([]CategoryCount, 0, len(counts))
	for _, cc := range counts {
		result = append(result, *cc)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	return result
}

func weeklyStats(tasks []*models.Task, entries []*models.TimeEntry, sub Window) WeeklyStats {
	var stats WeeklyStats
	var totalTasks int
	for _, task := range tasks {
		if !sub.Contains(task.CreatedAt) {
			continue
		}
		totalTasks++
		if task.Completed {
			stats.TasksCompleted++
		}
	}

	var trackedSeconds int64
	for _, entry := range entries {
		if entry.IsClosed() && sub.Contains(entry.StartTime) {
			trackedSeconds += *entry.DurationSeconds
		}
	}

	stats.TimeTrackedMinutes = roundHalfAway(float64(trackedSeconds) / 60)
	if stats.TasksCompleted > 0 {
		stats.AverageTaskMinutes = roundHalfAway(float64(trackedSeconds) / float64(stats.TasksCompleted) / 60)
	}
	if totalTasks > 0 {
		stats.CompletionRate = roundHalfAway(float64(stats.TasksCompleted) / float64(totalTasks) * 100)
	}
	return stats
}

func trailing[T any](buckets []T, n int) []T {
	if len(buckets) <= n {
		return buckets
	}
	return buckets[len(buckets)-n:]
}

func relabelCompletion(buckets []DayCompletion) []DayCompletion {
	out := make([]DayCompletion, len(buckets))
	for i, b := range buckets {
		b.Label = b.Date.Weekday().String()
		out[i] = b
	}
	return out
}

func relabelMinutes(buckets []DayMinutes) []DayMinutes {
	out := make([]DayMinutes, len(buckets))
	for i, b := range buckets {
		b.Label = b.Date.Weekday().String()
		out[i] = b
	}
	return out
}

// roundHalfAway rounds half away from zero, the single rounding rule
// for every derived value.
func roundHalfAway(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}
