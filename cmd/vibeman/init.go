package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/store"
)

var (
	initDataDir    string
	initWithConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a vibeman data directory",
	Long: `Initialize the on-disk entity store.

This command creates the directory layout the task manager persists into:
  - projects/, epics/, tasks/, dependencies/ plus their root-level JSON indexes
  - dependency-graphs/ for per-project graph snapshots

The directory argument is optional and defaults to the configured data
directory. Re-running init on an existing store is safe; existing
entities and indexes are left untouched.

Examples:
  vibeman init                  # Initialize the default data directory
  vibeman init ./project-data   # Initialize a specific directory
  vibeman init --with-config    # Also write an example .vibeman.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Override the configured data directory")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Write an example .vibeman.yaml in the working directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dataDir := cfg.DataDirectory
	if initDataDir != "" {
		dataDir = initDataDir
	}
	if len(args) > 0 {
		dataDir = args[0]
	}
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return fmt.Errorf("resolve data directory: %w", err)
	}

	s := store.New(absPath)
	if err := s.Initialize(); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	color.Green("✓ Entity store initialized at %s", absPath)

	if initWithConfig {
		if err := writeExampleConfig(absPath); err != nil {
			return err
		}
		color.Green("✓ Wrote .vibeman.yaml")
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  vibeman decompose \"Build user authentication\"  # break a task down")
	fmt.Println("  vibeman run                                    # start the orchestrator")
	return nil
}

func writeExampleConfig(dataDir string) error {
	path := ".vibeman.yaml"
	if _, err := os.Stat(path); err == nil {
		color.Yellow("! .vibeman.yaml already exists, leaving it alone")
		return nil
	}

	example := fmt.Sprintf(`data_directory: %s

scheduling:
  algorithm: hybrid_optimal
  max_concurrent_tasks: 8
  max_memory_mb: 4096
  max_cpu_utilization: 0.8

rdd:
  max_depth: 3
  max_sub_tasks: 5
  min_confidence: 0.7

llm:
  model: claude-sonnet-4-20250514
  use_aws_bedrock: false
`, dataDir)

	if err := os.WriteFile(path, []byte(example), 0644); err != nil {
		return fmt.Errorf("write example config: %w", err)
	}
	return nil
}
