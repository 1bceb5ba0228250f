package orchestrator

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

func TestAgentAndWorkflowViewsAreCopies(t *testing.T) {
	e, _ := newTestEngine(t)
	agent := e.RegisterAgent(AgentInfo{Name: "coder", MaxConcurrentTasks: 2,
		Capabilities: []models.Capability{models.CapabilityCodeGeneration}})
	wf := e.CreateWorkflow("P1", "S1", []string{"T1"})

	view := e.Agents()
	if len(view) != 1 {
		t.Fatalf("agents = %d, want 1", len(view))
	}
	view[0].Status = models.AgentStatusError
	view[0].CurrentTasks = append(view[0].CurrentTasks, "T9")
	live, ok := e.registry.get(agent.ID)
	if !ok {
		t.Fatal("agent missing from registry")
	}
	if live.Status != models.AgentStatusOnline || len(live.CurrentTasks) != 0 {
		t.Errorf("mutation through the view reached the registry: %+v", live)
	}

	wfs := e.Workflows()
	if len(wfs) != 1 {
		t.Fatalf("workflows = %d, want 1", len(wfs))
	}
	wfs[0].Status = models.WorkflowStatusFailed
	wfs[0].TaskIDs[0] = "T9"
	current, err := e.GetWorkflow(wf.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != models.WorkflowStatusRunning || current.TaskIDs[0] != "T1" {
		t.Errorf("mutation through the view reached the engine: %+v", current)
	}
}

// Snapshot writes marshal agent and workflow state while the timers keep
// mutating it, so the views handed to the snapshotter must be stable
// copies. Run with the race detector.
func TestSnapshotWriteDuringAssignmentChurn(t *testing.T) {
	e, _ := newTestEngine(t)
	agent := e.RegisterAgent(AgentInfo{Name: "coder", MaxConcurrentTasks: 2,
		Capabilities: []models.Capability{models.CapabilityCodeGeneration}})
	e.CreateWorkflow("P1", "S1", []string{"T1"})
	snap := NewSnapshotter(t.TempDir())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := e.registry.assignTask(agent.ID, "T1"); err == nil {
				e.registry.releaseTask(agent.ID, "T1")
			}
		}
	}()
	var writeErr error
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			if err := snap.Write(e.registry.all(), e.Workflows()); err != nil {
				writeErr = err
				return
			}
		}
	}()
	wg.Wait()
	if writeErr != nil {
		t.Fatalf("Write: %v", writeErr)
	}

	data, err := os.ReadFile(filepath.Join(snap.dir, "agents.json"))
	if err != nil {
		t.Fatalf("read agents.json: %v", err)
	}
	var got agentSnapshot
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("agents.json: %v", err)
	}
	if len(got.Agents) != 1 || got.Agents[0].ID != agent.ID {
		t.Errorf("snapshot agents = %+v", got.Agents)
	}
}
