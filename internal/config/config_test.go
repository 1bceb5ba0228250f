package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Scheduling.Algorithm != string(models.AlgorithmHybridOptimal) {
		t.Errorf("expected default algorithm hybrid_optimal, got %q", cfg.Scheduling.Algorithm)
	}
	if cfg.RDD.MaxDepth != 3 {
		t.Errorf("expected rdd.max_depth 3, got %d", cfg.RDD.MaxDepth)
	}
	if cfg.RDD.MaxSubTasks != 5 {
		t.Errorf("expected rdd.max_sub_tasks 5, got %d", cfg.RDD.MaxSubTasks)
	}
	if cfg.RDD.MinConfidence != 0.7 {
		t.Errorf("expected rdd.min_confidence 0.7, got %v", cfg.RDD.MinConfidence)
	}
	if cfg.Orchestration.WatchdogInterval != 10*time.Second {
		t.Errorf("expected watchdog interval 10s, got %v", cfg.Orchestration.WatchdogInterval)
	}
	if !cfg.Orchestration.Recovery.AutoRetry {
		t.Error("expected auto_retry enabled by default")
	}

	w := cfg.Scheduling.ScoreWeights
	sum := w.Dependencies + w.Deadline + w.SystemLoad + w.Complexity + w.BusinessImpact + w.AgentAvailability
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected score weights to sum to 1.0, got %v", sum)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
data_directory: /tmp/vibeman-test
scheduling:
  algorithm: priority_first
  max_concurrent_tasks: 2
rdd:
  max_depth: 5
orchestration:
  recovery:
    max_retries: 7
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.DataDirectory != "/tmp/vibeman-test" {
		t.Errorf("expected data directory override, got %q", cfg.DataDirectory)
	}
	if cfg.Scheduling.Algorithm != "priority_first" {
		t.Errorf("expected algorithm override, got %q", cfg.Scheduling.Algorithm)
	}
	if cfg.Scheduling.MaxConcurrentTasks != 2 {
		t.Errorf("expected max_concurrent_tasks 2, got %d", cfg.Scheduling.MaxConcurrentTasks)
	}
	if cfg.RDD.MaxDepth != 5 {
		t.Errorf("expected max_depth 5, got %d", cfg.RDD.MaxDepth)
	}
	if cfg.Orchestration.Recovery.MaxRetries != 7 {
		t.Errorf("expected max_retries 7, got %d", cfg.Orchestration.Recovery.MaxRetries)
	}
	// Untouched keys keep defaults.
	if cfg.RDD.MaxSubTasks != 5 {
		t.Errorf("expected default max_sub_tasks 5, got %d", cfg.RDD.MaxSubTasks)
	}
}

func TestPriorityWeightsFor(t *testing.T) {
	w := PriorityWeights{Low: 0.1, Medium: 0.2, High: 0.3, Critical: 0.4}
	if got := w.For(models.PriorityCritical); got != 0.4 {
		t.Errorf("For(critical) = %v, want 0.4", got)
	}
	if got := w.For(models.Priority("bogus")); got != 0.2 {
		t.Errorf("For(bogus) = %v, want medium weight", got)
	}
}
