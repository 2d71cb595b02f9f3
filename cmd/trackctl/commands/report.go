package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petrhale/focustrack/internal/analytics"
	"github.com/petrhale/focustrack/internal/config"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/spf13/cobra"
)

// NewReportCmd creates the report command: a terminal rendering of the
// analytics snapshot for one user.
func NewReportCmd() *cobra.Command {
	var userIDStr string
	var days int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a productivity report for a user",
		Long:  "Aggregates the user's tasks and time entries over a trailing window and prints the result.",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			if days < 1 || days > 365 {
				return fmt.Errorf("--days must be between 1 and 365")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			ctx := context.Background()
			tasks, err := database.NewTaskRepository(db).ListByUser(ctx, userID, nil)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			categories, err := database.NewCategoryRepository(db).ListByUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			entries, err := database.NewTimeEntryRepository(db).ListByUser(ctx, userID, 0)
			if err != nil {
				return fmt.Errorf("list time entries: %w", err)
			}

			now := time.Now()
			snapshot := analytics.Aggregate(tasks, categories, entries, analytics.TrailingWindow(now, days))
			summary := analytics.Summarize(tasks, now)

			fmt.Printf("Report for %s (last %d days)\n\n", userID, days)
			fmt.Printf("Tasks:     %d total, %d completed, %d overdue\n",
				summary.TotalTasks, summary.CompletedTasks, summary.OverdueTasks)
			fmt.Printf("This week: %d completed, %d min tracked, %d min/task avg, %d%% completion\n\n",
				snapshot.Weekly.TasksCompleted,
				snapshot.Weekly.TimeTrackedMinutes,
				snapshot.Weekly.AverageTaskMinutes,
				snapshot.Weekly.CompletionRate,
			)

			if len(snapshot.Categories) > 0 {
				fmt.Println("Categories:")
				for _, c := range snapshot.Categories {
					fmt.Printf("  %-20s %d\n", c.Name, c.Count)
				}
				fmt.Println()
			}

			fmt.Println("Last 7 days:")
			for i := range snapshot.WeekCompletion {
				fmt.Printf("  %s  completed %d/%d  tracked %d min\n",
					snapshot.WeekCompletion[i].Label,
					snapshot.WeekCompletion[i].Completed,
					snapshot.WeekCompletion[i].Total,
					snapshot.WeekTimeSeries[i].Minutes,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userIDStr, "user", "", "User UUID (required)")
	cmd.Flags().IntVar(&days, "days", analytics.DefaultWindowDays, "Trailing window in days")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
