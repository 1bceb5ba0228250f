package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/store"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show entity store contents",
	Long: `Display a summary of the entity store.

Shows:
  - Projects with their epic and task counts
  - Task counts by status
  - Dependency edge counts`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if _, err := os.Stat(cfg.DataDirectory); os.IsNotExist(err) {
		fmt.Println("No data directory. Run 'vibeman init' to create one.")
		return nil
	}

	s := store.New(cfg.DataDirectory)
	projects, err := s.ListProjects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one and run 'vibeman decompose' to fill it.")
		return nil
	}

	color.Cyan("Data directory: %s", cfg.DataDirectory)
	fmt.Println()

	for _, project := range projects {
		epics, err := s.ListEpics(project.ID)
		if err != nil {
			return fmt.Errorf("list epics for %s: %w", project.ID, err)
		}
		tasks, err := s.ListTasks(project.ID)
		if err != nil {
			return fmt.Errorf("list tasks for %s: %w", project.ID, err)
		}
		deps, err := s.ListDependencies(project.ID)
		if err != nil {
			return fmt.Errorf("list dependencies for %s: %w", project.ID, err)
		}

		byStatus := map[models.TaskStatus]int{}
		var totalHours float64
		for _, task := range tasks {
			byStatus[task.Status]++
			totalHours += task.EstimatedHours
		}

		fmt.Printf("%s  %s\n", color.New(color.Bold).Sprint(project.ID), project.Name)
		fmt.Printf("  %d epics, %d tasks (%.1fh estimated), %d dependency edges\n",
			len(epics), len(tasks), totalHours, len(deps))
		if len(tasks) > 0 {
			fmt.Printf("  pending %d, in_progress %d, completed %d, blocked %d, cancelled %d\n",
				byStatus[models.TaskStatusPending],
				byStatus[models.TaskStatusInProgress],
				byStatus[models.TaskStatusCompleted],
				byStatus[models.TaskStatusBlocked],
				byStatus[models.TaskStatusCancelled])
		}
		fmt.Println()
	}
	return nil
}
