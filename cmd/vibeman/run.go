package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/orchestrator"
	"github.com/ShayCichocki/vibeman/internal/prompts"
	"github.com/ShayCichocki/vibeman/internal/store"
)

var (
	runStrategy string
	runVerbose  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the orchestration engine",
	Long: `Start the orchestration engine and stream its events.

The engine runs its supervision loops (agent heartbeats, task scheduling,
execution watchdog, workflow cleanup, metrics snapshots) until
interrupted. Activity is appended to a SQLite run log and periodic JSON
state snapshots are written under the data directory.

Examples:
  vibeman run
  vibeman run --strategy least_loaded
  vibeman run --verbose`,
	RunE: runOrchestrator,
}

func init() {
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Agent assignment strategy (round_robin, least_loaded, capability_first, performance_based, intelligent_hybrid)")
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Enable debug logging")
}

func runOrchestrator(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(runVerbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	st := store.New(cfg.DataDirectory)
	if err := st.Initialize(); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	stateDir := filepath.Join(cfg.DataDirectory, "orchestration")
	runlog, err := orchestrator.OpenRunLog(filepath.Join(stateDir, "runlog.db"))
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}
	defer runlog.Close()

	if runStrategy == "" {
		runStrategy = string(orchestrator.StrategyIntelligentHybrid)
	}
	strategy := orchestrator.AssignmentStrategy(runStrategy)
	if !strategy.Valid() {
		return fmt.Errorf("unknown assignment strategy %q", runStrategy)
	}
	engine := orchestrator.NewEngine(cfg.Orchestration, cfg.Scheduling,
		orchestrator.WithLogger(logger),
		orchestrator.WithRunLog(runlog),
		orchestrator.WithSnapshotter(orchestrator.NewSnapshotter(stateDir)),
		orchestrator.WithStrategy(strategy),
		orchestrator.WithEpicStore(st),
	)

	// Hot-reload prompt edits while the engine runs.
	svc := prompts.NewService(cfg.Prompts.Directory)
	if watcher, err := prompts.Watch(svc); err == nil {
		defer watcher.Close()
	} else {
		logger.Warn("prompt watcher disabled", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine.Start(ctx)
	defer engine.Stop()

	color.Green("Orchestrator running (strategy %s). Ctrl-C to stop.", runStrategy)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nShutting down.")
			return nil
		case event := <-engine.Events():
			printEvent(event)
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func printEvent(event orchestrator.Event) {
	switch event.Type {
	case orchestrator.EventExecutionFailed, orchestrator.EventExecutionTimeout:
		color.Red("%s  %s  task=%s agent=%s", event.Timestamp.Format("15:04:05"), event.Type, event.TaskID, event.AgentID)
	case orchestrator.EventExecutionCompleted:
		color.Green("%s  %s  task=%s agent=%s", event.Timestamp.Format("15:04:05"), event.Type, event.TaskID, event.AgentID)
	case orchestrator.EventWorkflowPhaseChanged:
		fmt.Printf("%s  %s  workflow=%s %s -> %s\n", event.Timestamp.Format("15:04:05"), event.Type, event.WorkflowID, event.PreviousPhase, event.Phase)
	case orchestrator.EventMetricsSnapshot:
		if event.Metrics != nil {
			fmt.Printf("%s  metrics  agents=%d pending=%d running=%d completed=%d success=%.0f%%\n",
				event.Timestamp.Format("15:04:05"), event.Metrics.TotalAgents,
				event.Metrics.PendingTasks, event.Metrics.RunningTasks,
				event.Metrics.CompletedTasks, event.Metrics.SuccessRate*100)
		}
	default:
		fmt.Printf("%s  %s  task=%s agent=%s %s\n", event.Timestamp.Format("15:04:05"), event.Type, event.TaskID, event.AgentID, event.Message)
	}
}
