package main

import (
	"fmt"
	"os"

	"github.com/petrhale/focustrack/cmd/trackctl/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "trackctl",
		Short: "Operations tool for the FocusTrack API",
		Long:  "CLI tool for inspecting productivity data and running maintenance tasks",
	}

	rootCmd.AddCommand(commands.NewReportCmd())
	rootCmd.AddCommand(commands.NewSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
