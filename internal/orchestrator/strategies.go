package orchestrator

import (
	"sync/atomic"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// AssignmentStrategy names an agent selection policy.
type AssignmentStrategy string

const (
	// StrategyRoundRobin cycles through the pool in order.
	StrategyRoundRobin AssignmentStrategy = "round_robin"
	// StrategyLeastLoaded picks the agent with the lowest load.
	StrategyLeastLoaded AssignmentStrategy = "least_loaded"
	// StrategyCapabilityFirst picks the first exact capability match.
	StrategyCapabilityFirst AssignmentStrategy = "capability_first"
	// StrategyPerformanceBased picks the agent with the best success rate.
	StrategyPerformanceBased AssignmentStrategy = "performance_based"
	// StrategyIntelligentHybrid weighs load, success rate, and capability fit.
	StrategyIntelligentHybrid AssignmentStrategy = "intelligent_hybrid"
)

// Valid returns true if the strategy is a known value.
func (s AssignmentStrategy) Valid() bool {
	switch s {
	case StrategyRoundRobin, StrategyLeastLoaded, StrategyCapabilityFirst,
		StrategyPerformanceBased, StrategyIntelligentHybrid:
		return true
	default:
		return false
	}
}

// HybridScore is the intelligent_hybrid selection score for one agent.
func HybridScore(agent *models.Agent, required []models.Capability) float64 {
	return (1-agent.CurrentLoad)*0.3 +
		agent.Performance.SuccessRate*0.4 +
		agent.CapabilityMatch(required)*0.3
}

// selectAgent picks one agent from candidates using the strategy. The
// candidates are the output of the registry's availability filter, already
// sorted by load then success rate. Returns nil when the pool is empty.
func selectAgent(strategy AssignmentStrategy, candidates []*models.Agent, required []models.Capability, rrCounter *atomic.Uint64) *models.Agent {
	if len(candidates) == 0 {
		return nil
	}
	switch strategy {
	case StrategyRoundRobin:
		n := rrCounter.Add(1) - 1
		return candidates[n%uint64(len(candidates))]

	case StrategyLeastLoaded:
		best := candidates[0]
		for _, agent := range candidates[1:] {
			if agent.CurrentLoad < best.CurrentLoad {
				best = agent
			}
		}
		return best

	case StrategyCapabilityFirst:
		for _, agent := range candidates {
			if agent.CapabilityMatch(required) == 1 {
				return agent
			}
		}
		return candidates[0]

	case StrategyPerformanceBased:
		best := candidates[0]
		for _, agent := range candidates[1:] {
			if agent.Performance.SuccessRate > best.Performance.SuccessRate {
				best = agent
			}
		}
		return best

	default: // intelligent_hybrid
		best := candidates[0]
		bestScore := HybridScore(best, required)
		for _, agent := range candidates[1:] {
			if score := HybridScore(agent, required); score > bestScore {
				best, bestScore = agent, score
			}
		}
		return best
	}
}
