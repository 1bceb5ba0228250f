package orchestrator

import (
	"sync/atomic"
	"testing"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

func poolAgent(id string, load, successRate float64, caps ...models.Capability) *models.Agent {
	return &models.Agent{
		ID:           id,
		Status:       models.AgentStatusOnline,
		Capabilities: caps,
		CurrentLoad:  load,
		Performance:  models.AgentPerformance{SuccessRate: successRate},
	}
}

func TestSelectAgentEmptyPool(t *testing.T) {
	var rr atomic.Uint64
	if got := selectAgent(StrategyRoundRobin, nil, nil, &rr); got != nil {
		t.Errorf("selectAgent on empty pool = %v, want nil", got)
	}
}

func TestRoundRobinCycles(t *testing.T) {
	var rr atomic.Uint64
	pool := []*models.Agent{
		poolAgent("a1", 0, 1),
		poolAgent("a2", 0, 1),
		poolAgent("a3", 0, 1),
	}

	want := []string{"a1", "a2", "a3", "a1", "a2"}
	for i, id := range want {
		got := selectAgent(StrategyRoundRobin, pool, nil, &rr)
		if got.ID != id {
			t.Errorf("pick %d = %s, want %s", i, got.ID, id)
		}
	}
}

func TestLeastLoadedPicksMinimum(t *testing.T) {
	var rr atomic.Uint64
	pool := []*models.Agent{
		poolAgent("a1", 0.5, 1),
		poolAgent("a2", 0.1, 1),
		poolAgent("a3", 0.9, 1),
	}
	if got := selectAgent(StrategyLeastLoaded, pool, nil, &rr); got.ID != "a2" {
		t.Errorf("least_loaded = %s, want a2", got.ID)
	}
}

func TestCapabilityFirstPrefersExactMatch(t *testing.T) {
	var rr atomic.Uint64
	required := []models.Capability{models.CapabilityCodeGeneration, models.CapabilityTesting}
	pool := []*models.Agent{
		poolAgent("partial", 0, 1, models.CapabilityCodeGeneration),
		poolAgent("full", 0.8, 0.5, models.CapabilityCodeGeneration, models.CapabilityTesting),
	}
	if got := selectAgent(StrategyCapabilityFirst, pool, required, &rr); got.ID != "full" {
		t.Errorf("capability_first = %s, want full", got.ID)
	}

	// No exact match falls through to the head of the sorted pool.
	none := []*models.Agent{
		poolAgent("first", 0, 1, models.CapabilityCodeGeneration),
		poolAgent("second", 0, 1, models.CapabilityTesting),
	}
	if got := selectAgent(StrategyCapabilityFirst, none, required, &rr); got.ID != "first" {
		t.Errorf("capability_first fallback = %s, want first", got.ID)
	}
}

func TestPerformanceBasedPicksBestRate(t *testing.T) {
	var rr atomic.Uint64
	pool := []*models.Agent{
		poolAgent("a1", 0, 0.7),
		poolAgent("a2", 0, 0.95),
		poolAgent("a3", 0, 0.9),
	}
	if got := selectAgent(StrategyPerformanceBased, pool, nil, &rr); got.ID != "a2" {
		t.Errorf("performance_based = %s, want a2", got.ID)
	}
}

// A near-idle agent with a mediocre success rate beats a heavily loaded
// high performer: (1-0.2)*0.3 + 0.60*0.4 + 0.3 = 0.78 against
// (1-0.8)*0.3 + 0.95*0.4 + 0.3 = 0.74.
func TestIntelligentHybridWeighsLoadAgainstPerformance(t *testing.T) {
	var rr atomic.Uint64
	required := []models.Capability{models.CapabilityCodeGeneration}
	a1 := poolAgent("a1", 0.8, 0.95, models.CapabilityCodeGeneration)
	a2 := poolAgent("a2", 0.2, 0.60, models.CapabilityCodeGeneration)

	s1, s2 := HybridScore(a1, required), HybridScore(a2, required)
	if s1 >= s2 {
		t.Fatalf("HybridScore: a1=%v a2=%v, want a2 higher", s1, s2)
	}
	got := selectAgent(StrategyIntelligentHybrid, []*models.Agent{a1, a2}, required, &rr)
	if got.ID != "a2" {
		t.Errorf("intelligent_hybrid = %s, want a2", got.ID)
	}
}

func TestAssignmentStrategyValid(t *testing.T) {
	for _, s := range []AssignmentStrategy{StrategyRoundRobin, StrategyLeastLoaded,
		StrategyCapabilityFirst, StrategyPerformanceBased, StrategyIntelligentHybrid} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if AssignmentStrategy("random").Valid() {
		t.Error("random should not be valid")
	}
}
