package orchestrator

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// AgentInfo is the registration payload for a new agent.
type AgentInfo struct {
	Name               string
	Capabilities       []models.Capability
	MaxConcurrentTasks int
	Version            string
	Endpoint           string
	HeartbeatInterval  time.Duration
}

// agentRegistry tracks the live agent pool.
type agentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*models.Agent
	now    func() time.Time
}

func newAgentRegistry(now func() time.Time) *agentRegistry {
	return &agentRegistry{
		agents: make(map[string]*models.Agent),
		now:    now,
	}
}

// register adds an agent to the pool in online status and returns its id.
func (r *agentRegistry) register(info AgentInfo) *models.Agent {
	if info.MaxConcurrentTasks <= 0 {
		info.MaxConcurrentTasks = 1
	}
	now := r.now()
	agent := &models.Agent{
		ID:                 "agent-" + uuid.New().String()[:8],
		Name:               info.Name,
		Status:             models.AgentStatusOnline,
		Capabilities:       info.Capabilities,
		MaxConcurrentTasks: info.MaxConcurrentTasks,
		Performance: models.AgentPerformance{
			SuccessRate:  1.0,
			LastActivity: now,
		},
		Metadata: models.AgentMetadata{
			Version:           info.Version,
			Endpoint:          info.Endpoint,
			HeartbeatInterval: info.HeartbeatInterval,
			LastHeartbeat:     now,
			RegisteredAt:      now,
		},
	}

	r.mu.Lock()
	r.agents[agent.ID] = agent
	r.mu.Unlock()
	return agent
}

// updateStatus sets an agent's status and bumps its heartbeat timestamp.
func (r *agentRegistry) updateStatus(id string, status models.AgentStatus) error {
	if !status.Valid() {
		return errs.E(errs.KindValidation, "orchestrator.updateAgentStatus", "invalid status "+string(status))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[id]
	if !ok {
		return errs.E(errs.KindNotFound, "orchestrator.updateAgentStatus", "agent "+id)
	}
	agent.Status = status
	agent.Metadata.LastHeartbeat = r.now()
	return nil
}

// get returns the agent with the given id.
func (r *agentRegistry) get(id string) (*models.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	return agent, ok
}

// available returns online or idle agents below capacity that cover the
// required capabilities, sorted by load ascending then success rate
// descending. The returned agents are deep copies.
func (r *agentRegistry) available(required []models.Capability) []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Agent
	for _, agent := range r.agents {
		if !agent.Status.Available() {
			continue
		}
		if len(agent.CurrentTasks) >= agent.MaxConcurrentTasks {
			continue
		}
		if !agent.HasCapabilities(required) {
			continue
		}
		out = append(out, agent.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CurrentLoad != out[j].CurrentLoad {
			return out[i].CurrentLoad < out[j].CurrentLoad
		}
		if out[i].Performance.SuccessRate != out[j].Performance.SuccessRate {
			return out[i].Performance.SuccessRate > out[j].Performance.SuccessRate
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// all returns a deep-copied view of every registered agent. The copies
// are taken under the registry lock so callers may read or marshal them
// without holding it.
func (r *agentRegistry) all() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Agent, 0, len(r.agents))
	for _, agent := range r.agents {
		out = append(out, agent.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// assignTask records a task on the agent and refreshes load and status.
// The caller must have picked an agent below capacity.
func (r *agentRegistry) assignTask(agentID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return errs.E(errs.KindNotFound, "orchestrator.assignTask", "agent "+agentID)
	}
	if len(agent.CurrentTasks) >= agent.MaxConcurrentTasks {
		return errs.E(errs.KindResource, "orchestrator.assignTask", "agent "+agentID+" at capacity")
	}
	agent.CurrentTasks = append(agent.CurrentTasks, taskID)
	agent.RecomputeLoad()
	if len(agent.CurrentTasks) >= agent.MaxConcurrentTasks {
		agent.Status = models.AgentStatusBusy
	}
	agent.Performance.LastActivity = r.now()
	return nil
}

// releaseTask removes a task from the agent and refreshes load and status.
func (r *agentRegistry) releaseTask(agentID, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return
	}
	kept := agent.CurrentTasks[:0]
	for _, id := range agent.CurrentTasks {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	agent.CurrentTasks = kept
	agent.RecomputeLoad()
	if agent.Status == models.AgentStatusBusy && len(agent.CurrentTasks) < agent.MaxConcurrentTasks {
		agent.Status = models.AgentStatusOnline
	}
}

// recordOutcome applies the post-execution metric updates: the average
// task time moves exponentially toward the observed duration, and the
// success or error rate shifts by 0.01, clamped to [0,1].
func (r *agentRegistry) recordOutcome(agentID string, duration time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return
	}
	perf := &agent.Performance
	if perf.AverageTaskTime == 0 {
		perf.AverageTaskTime = duration
	} else {
		perf.AverageTaskTime = time.Duration(0.8*float64(perf.AverageTaskTime) + 0.2*float64(duration))
	}
	if success {
		perf.SuccessRate = clampRate(perf.SuccessRate + 0.01)
		perf.ErrorRate = clampRate(perf.ErrorRate - 0.01)
	} else {
		perf.ErrorRate = clampRate(perf.ErrorRate + 0.01)
		perf.SuccessRate = clampRate(perf.SuccessRate - 0.01)
	}
	perf.LastActivity = r.now()
}

// silentAgents returns agents whose last heartbeat is older than the
// timeout and that are not already offline.
func (r *agentRegistry) silentAgents(timeout time.Duration) []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := r.now()
	var out []*models.Agent
	for _, agent := range r.agents {
		if agent.Status == models.AgentStatusOffline {
			continue
		}
		if now.Sub(agent.Metadata.LastHeartbeat) > timeout {
			out = append(out, agent)
		}
	}
	return out
}

// markOffline sets the agent offline and returns its abandoned task ids.
func (r *agentRegistry) markOffline(agentID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	agent, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	abandoned := agent.CurrentTasks
	agent.Status = models.AgentStatusOffline
	agent.CurrentTasks = nil
	agent.RecomputeLoad()
	return abandoned
}

// reset drops all agents. Used for test isolation.
func (r *agentRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*models.Agent)
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
