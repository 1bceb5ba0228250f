package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vibeman",
	Short: "Task decomposition and agent orchestration engine",
	Long: `Vibeman manages development projects as trees of atomic tasks.

It decomposes large tasks into atomic sub-tasks with a language model,
tracks dependencies between them, schedules them into parallel batches,
and orchestrates a pool of agents to execute them.

Core capabilities:
- Recursively decomposes tasks until each is atomic
- Tracks hard and soft dependencies with cycle detection
- Schedules tasks into parallel execution batches
- Assigns work to agents by load, capability, and track record
- Persists projects, epics, and tasks as YAML on disk`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(versionCmd)
}
