package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/petrhale/focustrack/internal/config"
	"github.com/petrhale/focustrack/internal/database"
	"github.com/petrhale/focustrack/internal/queue"
	"github.com/petrhale/focustrack/internal/workers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSweepCmd creates the sweep command: a one-shot, in-process run of
// the abandoned-entry sweep, for operators who don't want to wait for
// the scheduled job.
func NewSweepCmd() *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close abandoned time entries now",
		Long:  "Closes open time entries older than --max-age directly against the database, bypassing the job queue.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxAge <= 0 {
				return fmt.Errorf("--max-age must be positive")
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

			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			// Direct sweep, no queue: retries don't apply to a one-shot run.
			sweeper := workers.NewEntrySweeper(database.NewTimeEntryRepository(db), nil, logger)
			job := queue.NewEntrySweepJob(time.Now().Add(-maxAge))

			if err := sweeper.ProcessSweepJob(context.Background(), job); err != nil {
				return fmt.Errorf("sweep: %w", err)
			}
			fmt.Println("Sweep complete.")
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Close open entries older than this")
	return cmd
}
