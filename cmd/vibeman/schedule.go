package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/graph"
	"github.com/ShayCichocki/vibeman/internal/scheduler"
	"github.com/ShayCichocki/vibeman/internal/store"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

var scheduleAlgorithm string

var scheduleCmd = &cobra.Command{
	Use:   "schedule <project-id>",
	Short: "Generate an execution schedule for a project",
	Long: `Build the dependency graph for a project's pending tasks and pack
them into parallel execution batches.

Tasks on a dependency cycle are excluded from the plan and reported so
the cycle can be broken by hand.

Examples:
  vibeman schedule P1
  vibeman schedule P1 --algorithm critical_path`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleAlgorithm, "algorithm", "", "Override the configured scheduling algorithm")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s := store.New(cfg.DataDirectory)
	if !s.ProjectExists(projectID) {
		return fmt.Errorf("project %s not found in %s", projectID, cfg.DataDirectory)
	}

	tasks, err := s.ListTasks(projectID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	deps, err := s.ListDependencies(projectID)
	if err != nil {
		return fmt.Errorf("list dependencies: %w", err)
	}

	g := graph.New()
	if err := g.Build(tasks, deps); err != nil && !errors.Is(err, graph.ErrCycleDetected) {
		return fmt.Errorf("build graph: %w", err)
	}

	sched := scheduler.New(cfg.Scheduling)
	algorithm := models.SchedulingAlgorithm(cfg.Scheduling.Algorithm)
	if scheduleAlgorithm != "" {
		algorithm = models.SchedulingAlgorithm(scheduleAlgorithm)
	}
	schedule, err := sched.GenerateScheduleWith(tasks, g, projectID, algorithm)
	if err != nil {
		if errors.Is(err, scheduler.ErrEmptySchedule) {
			fmt.Println("No pending tasks to schedule.")
			return nil
		}
		return fmt.Errorf("generate schedule: %w", err)
	}

	printSchedule(schedule)

	// Persist the graph alongside the plan for later inspection.
	snapshot := &store.GraphSnapshot{
		ProjectID: projectID,
		SavedAt:   schedule.GeneratedAt,
		Edges:     deps,
	}
	for _, task := range tasks {
		snapshot.TaskIDs = append(snapshot.TaskIDs, task.ID)
	}
	if err := s.SaveGraphSnapshot(snapshot); err != nil {
		return fmt.Errorf("save graph snapshot: %w", err)
	}
	return nil
}

func printSchedule(schedule *models.Schedule) {
	color.Cyan("Schedule %s (%s)", schedule.ID, schedule.Algorithm)
	fmt.Printf("  window: %s -> %s (%.1fh, parallelism %.2f)\n",
		schedule.Timeline.Start.Format("2006-01-02 15:04"),
		schedule.Timeline.End.Format("2006-01-02 15:04"),
		schedule.Timeline.TotalDuration.Hours(),
		schedule.Timeline.ParallelismFactor)
	if len(schedule.Timeline.CriticalPath) > 0 {
		fmt.Printf("  critical path: %s\n", strings.Join(schedule.Timeline.CriticalPath, " -> "))
	}
	fmt.Println()

	for i, batch := range schedule.ExecutionBatches {
		fmt.Printf("Batch %d:\n", i+1)
		for _, id := range batch.TaskIDs {
			placed := schedule.ScheduledTasks[id]
			fmt.Printf("  %s  %-40s  %.1fh\n", id, placed.Task.Title, placed.Task.EstimatedHours)
		}
	}

	fmt.Println()
	fmt.Printf("Resources: peak %dMB, avg CPU %.0f%%, agent utilization %.0f%%\n",
		schedule.ResourceUtilization.PeakMemoryMB,
		schedule.ResourceUtilization.AverageCPUUtilization*100,
		schedule.ResourceUtilization.AgentUtilization*100)

	if len(schedule.CycleDiagnostic) > 0 {
		color.Yellow("! Excluded from the plan (dependency cycle): %s",
			strings.Join(schedule.CycleDiagnostic, ", "))
	}
}
