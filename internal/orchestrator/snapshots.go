package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// Snapshotter persists periodic JSON snapshots of orchestration state so
// operators can inspect the pool without querying a live engine.
type Snapshotter struct {
	dir string
}

// NewSnapshotter returns a snapshotter writing under dir.
func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{dir: dir}
}

type agentSnapshot struct {
	SavedAt time.Time       `json:"saved_at"`
	Agents  []*models.Agent `json:"agents"`
}

type workflowSnapshot struct {
	SavedAt   time.Time          `json:"saved_at"`
	Workflows []*models.Workflow `json:"workflows"`
}

// Write replaces the agent and workflow snapshot files. Each file is
// written to a temp file and renamed so readers never see partial JSON.
func (s *Snapshotter) Write(agents []*models.Agent, workflows []*models.Workflow) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })

	now := time.Now()
	if err := s.writeJSON("agents.json", agentSnapshot{SavedAt: now, Agents: agents}); err != nil {
		return err
	}
	return s.writeJSON("workflows.json", workflowSnapshot{SavedAt: now, Workflows: workflows})
}

func (s *Snapshotter) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
