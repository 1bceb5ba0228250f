package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/store"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

var (
	decomposeHours    float64
	decomposeType     string
	decomposePriority string
	decomposeProject  string
	decomposeSave     bool
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <task title>",
	Short: "Recursively decompose a task into atomic sub-tasks",
	Long: `Break a task down until every leaf is atomic.

The task is first checked for atomicity; if it is divisible, the language
model splits it into sub-tasks and each sub-task is checked in turn, up to
the configured recursion depth. Sub-task estimates are validated and
capped at four hours each.

Examples:
  vibeman decompose "Implement user authentication" --hours 12
  vibeman decompose "Add caching layer" --type development --priority high
  vibeman decompose "Build API" --project P1 --save  # persist the leaves`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecompose,
}

func init() {
	decomposeCmd.Flags().Float64Var(&decomposeHours, "hours", 8, "Estimated hours for the task")
	decomposeCmd.Flags().StringVar(&decomposeType, "type", "development", "Task type")
	decomposeCmd.Flags().StringVar(&decomposePriority, "priority", "medium", "Task priority")
	decomposeCmd.Flags().StringVar(&decomposeProject, "project", "", "Project ID for persisted sub-tasks")
	decomposeCmd.Flags().BoolVar(&decomposeSave, "save", false, "Persist the resulting sub-tasks to the entity store")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	engine, err := newDecomposeEngine(cfg)
	if err != nil {
		return err
	}

	task := &models.Task{
		ID:             "task-" + uuid.New().String()[:8],
		Title:          strings.Join(args, " "),
		Type:           models.TaskType(decomposeType),
		Priority:       models.Priority(decomposePriority),
		Status:         models.TaskStatusPending,
		ProjectID:      decomposeProject,
		EstimatedHours: decomposeHours,
	}
	if err := task.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("Decomposing %q...\n\n", task.Title)
	result := engine.DecomposeTask(ctx, task, models.ProjectContext{ProjectID: decomposeProject})
	if !result.Success {
		return fmt.Errorf("decomposition failed: %w", result.Err)
	}

	if result.IsAtomic {
		color.Green("Task is already atomic (%.1fh); nothing to split.", task.EstimatedHours)
		return nil
	}

	color.Green("Split into %d atomic sub-tasks:", len(result.SubTasks))
	for _, sub := range result.SubTasks {
		fmt.Printf("  %s  %-40s  %.1fh  %s\n", sub.ID, sub.Title, sub.EstimatedHours, sub.Priority)
		for _, dep := range sub.Dependencies {
			fmt.Printf("      depends on %s\n", dep)
		}
	}

	if decomposeSave {
		if decomposeProject == "" {
			return fmt.Errorf("--save requires --project")
		}
		s := store.New(cfg.DataDirectory)
		if err := s.Initialize(); err != nil {
			return fmt.Errorf("initialize store: %w", err)
		}
		for _, sub := range result.SubTasks {
			if err := s.CreateTask(sub); err != nil {
				return fmt.Errorf("save %s: %w", sub.ID, err)
			}
		}
		color.Green("✓ Saved %d tasks to %s", len(result.SubTasks), cfg.DataDirectory)
	}
	return nil
}
