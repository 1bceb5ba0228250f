package orchestrator

import (
	"testing"
	"time"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

func newTestRegistry(now *time.Time) *agentRegistry {
	return newAgentRegistry(func() time.Time { return *now })
}

func TestRegisterDefaults(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	agent := r.register(AgentInfo{
		Name:         "coder-1",
		Capabilities: []models.Capability{models.CapabilityCodeGeneration},
	})

	if agent.ID == "" {
		t.Fatal("expected generated agent id")
	}
	if agent.Status != models.AgentStatusOnline {
		t.Errorf("status = %s, want online", agent.Status)
	}
	if agent.MaxConcurrentTasks != 1 {
		t.Errorf("MaxConcurrentTasks = %d, want default 1", agent.MaxConcurrentTasks)
	}
	if agent.Performance.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", agent.Performance.SuccessRate)
	}
	if !agent.Metadata.RegisteredAt.Equal(now) {
		t.Errorf("RegisteredAt = %v, want %v", agent.Metadata.RegisteredAt, now)
	}
}

func TestAvailableFiltersAndSorts(t *testing.T) {
	now := time.Now()
	r := newTestRegistry(&now)

	busy := r.register(AgentInfo{Name: "busy", MaxConcurrentTasks: 1,
		Capabilities: []models.Capability{models.CapabilityCodeGeneration}})
	loaded := r.register(AgentInfo{Name: "loaded", MaxConcurrentTasks: 4,
		Capabilities: []models.Capability{models.CapabilityCodeGeneration}})
	idle := r.register(AgentInfo{Name: "idle", MaxConcurrentTasks: 4,
		Capabilities: []models.Capability{models.CapabilityCodeGeneration}})
	r.register(AgentInfo{Name: "tester", MaxConcurrentTasks: 4,
		Capabilities: []models.Capability{models.CapabilityTesting}})

	if err := r.assignTask(busy.ID, "T1"); err != nil {
		t.Fatal(err)
	}
	if err := r.assignTask(loaded.ID, "T2"); err != nil {
		t.Fatal(err)
	}

	got := r.available([]models.Capability{models.CapabilityCodeGeneration})
	if len(got) != 2 {
		t.Fatalf("available returned %d agents, want 2", len(got))
	}
	// Sorted by load ascending: idle before loaded. The busy agent is at
	// capacity and the tester lacks the capability.
	if got[0].ID != idle.ID || got[1].ID != loaded.ID {
		t.Errorf("order = [%s %s], want [%s %s]", got[0].Name, got[1].Name, "idle", "loaded")
	}
}

func TestAssignTaskAtCapacity(t *testing.T) {
	now := time.Now()
	r := newTestRegistry(&now)
	agent := r.register(AgentInfo{Name: "solo", MaxConcurrentTasks: 1})

	if err := r.assignTask(agent.ID, "T1"); err != nil {
		t.Fatal(err)
	}
	got, _ := r.get(agent.ID)
	if got.Status != models.AgentStatusBusy {
		t.Errorf("status after fill = %s, want busy", got.Status)
	}
	if got.CurrentLoad != 1.0 {
		t.Errorf("CurrentLoad = %v, want 1.0", got.CurrentLoad)
	}

	err := r.assignTask(agent.ID, "T2")
	if err == nil {
		t.Fatal("expected capacity error")
	}
	if errs.KindOf(err) != errs.KindResource {
		t.Errorf("kind = %s, want resource", errs.KindOf(err))
	}
}

func TestReleaseTaskRestoresAvailability(t *testing.T) {
	now := time.Now()
	r := newTestRegistry(&now)
	agent := r.register(AgentInfo{Name: "solo", MaxConcurrentTasks: 1})

	if err := r.assignTask(agent.ID, "T1"); err != nil {
		t.Fatal(err)
	}
	r.releaseTask(agent.ID, "T1")

	got, _ := r.get(agent.ID)
	if got.Status != models.AgentStatusOnline {
		t.Errorf("status after release = %s, want online", got.Status)
	}
	if len(got.CurrentTasks) != 0 {
		t.Errorf("CurrentTasks = %v, want empty", got.CurrentTasks)
	}
	if got.CurrentLoad != 0 {
		t.Errorf("CurrentLoad = %v, want 0", got.CurrentLoad)
	}
}

func TestRecordOutcomeAdjustsRates(t *testing.T) {
	now := time.Now()
	r := newTestRegistry(&now)
	agent := r.register(AgentInfo{Name: "worker"})

	// First outcome seeds the average directly.
	r.recordOutcome(agent.ID, 10*time.Second, true)
	got, _ := r.get(agent.ID)
	if got.Performance.AverageTaskTime != 10*time.Second {
		t.Errorf("AverageTaskTime = %v, want 10s", got.Performance.AverageTaskTime)
	}
	if got.Performance.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want clamped 1.0", got.Performance.SuccessRate)
	}

	// Failure nudges the rates by 0.01 each way.
	r.recordOutcome(agent.ID, 20*time.Second, false)
	got, _ = r.get(agent.ID)
	want := time.Duration(0.8*float64(10*time.Second) + 0.2*float64(20*time.Second))
	if got.Performance.AverageTaskTime != want {
		t.Errorf("AverageTaskTime = %v, want %v", got.Performance.AverageTaskTime, want)
	}
	if diff := got.Performance.SuccessRate - 0.99; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SuccessRate = %v, want 0.99", got.Performance.SuccessRate)
	}
	if diff := got.Performance.ErrorRate - 0.01; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("ErrorRate = %v, want 0.01", got.Performance.ErrorRate)
	}
}

func TestSilentAgentsAndMarkOffline(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	r := newTestRegistry(&now)

	quiet := r.register(AgentInfo{Name: "quiet", MaxConcurrentTasks: 2})
	chatty := r.register(AgentInfo{Name: "chatty", MaxConcurrentTasks: 2})
	if err := r.assignTask(quiet.ID, "T1"); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	if err := r.updateStatus(chatty.ID, models.AgentStatusOnline); err != nil {
		t.Fatal(err)
	}

	silent := r.silentAgents(time.Minute)
	if len(silent) != 1 || silent[0].ID != quiet.ID {
		t.Fatalf("silentAgents = %v, want only quiet", silent)
	}

	abandoned := r.markOffline(quiet.ID)
	if len(abandoned) != 1 || abandoned[0] != "T1" {
		t.Errorf("abandoned = %v, want [T1]", abandoned)
	}
	got, _ := r.get(quiet.ID)
	if got.Status != models.AgentStatusOffline {
		t.Errorf("status = %s, want offline", got.Status)
	}
	if len(got.CurrentTasks) != 0 {
		t.Errorf("CurrentTasks = %v, want empty", got.CurrentTasks)
	}
}
