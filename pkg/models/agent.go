package models

import "time"

// AgentStatus represents the current state of an agent.
type AgentStatus string

const (
	// AgentStatusOnline indicates the agent is reachable and accepting work.
	AgentStatusOnline AgentStatus = "online"
	// AgentStatusOffline indicates the agent has stopped heartbeating.
	AgentStatusOffline AgentStatus = "offline"
	// AgentStatusBusy indicates the agent is at capacity.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusIdle indicates the agent is reachable with no work.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusError indicates the agent reported a fault.
	AgentStatusError AgentStatus = "error"
	// AgentStatusMaintenance indicates the agent is withdrawn from scheduling.
	AgentStatusMaintenance AgentStatus = "maintenance"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusOnline, AgentStatusOffline, AgentStatusBusy,
		AgentStatusIdle, AgentStatusError, AgentStatusMaintenance:
		return true
	default:
		return false
	}
}

// Available reports whether an agent in this status may receive work.
func (s AgentStatus) Available() bool {
	return s == AgentStatusOnline || s == AgentStatusIdle
}

// Capability names a kind of work an agent can perform.
type Capability string

const (
	// CapabilityTaskExecution is general task execution.
	CapabilityTaskExecution Capability = "task_execution"
	// CapabilityCodeGeneration is writing code.
	CapabilityCodeGeneration Capability = "code_generation"
	// CapabilityTesting is writing or running tests.
	CapabilityTesting Capability = "testing"
	// CapabilityDocumentation is writing documentation.
	CapabilityDocumentation Capability = "documentation"
	// CapabilityResearch is investigation work.
	CapabilityResearch Capability = "research"
	// CapabilityAnalysis is code or data analysis.
	CapabilityAnalysis Capability = "analysis"
	// CapabilityDeployment is release work.
	CapabilityDeployment Capability = "deployment"
	// CapabilityMonitoring is observing running systems.
	CapabilityMonitoring Capability = "monitoring"
	// CapabilityDebugging is fault isolation work.
	CapabilityDebugging Capability = "debugging"
)

// Valid returns true if the capability is a known value.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityTaskExecution, CapabilityCodeGeneration, CapabilityTesting,
		CapabilityDocumentation, CapabilityResearch, CapabilityAnalysis,
		CapabilityDeployment, CapabilityMonitoring, CapabilityDebugging:
		return true
	default:
		return false
	}
}

// AgentPerformance tracks rolling execution quality for an agent.
type AgentPerformance struct {
	// AverageTaskTime is the exponentially-smoothed task duration.
	AverageTaskTime time.Duration `json:"average_task_time" yaml:"average_task_time"`
	// SuccessRate is the fraction of tasks completed successfully, in [0,1].
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	// ErrorRate is the fraction of tasks that failed, in [0,1].
	ErrorRate float64 `json:"error_rate" yaml:"error_rate"`
	// LastActivity is the last time the agent did anything observable.
	LastActivity time.Time `json:"last_activity" yaml:"last_activity"`
}

// AgentMetadata holds registration and transport details.
type AgentMetadata struct {
	// Version is the agent software version string.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Endpoint is the agent's transport address, if any.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// HeartbeatInterval is how often the agent promises to heartbeat.
	HeartbeatInterval time.Duration `json:"heartbeat_interval" yaml:"heartbeat_interval"`
	// LastHeartbeat is the last heartbeat received.
	LastHeartbeat time.Time `json:"last_heartbeat" yaml:"last_heartbeat"`
	// RegisteredAt is when the agent registered.
	RegisteredAt time.Time `json:"registered_at" yaml:"registered_at"`
}

// Agent represents an external worker that executes atomic tasks.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id" yaml:"id"`
	// Name is the human-readable agent name.
	Name string `json:"name" yaml:"name"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status" yaml:"status"`
	// Capabilities lists the kinds of work this agent can do.
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
	// CurrentLoad is len(CurrentTasks)/MaxConcurrentTasks, in [0,1].
	CurrentLoad float64 `json:"current_load" yaml:"current_load"`
	// MaxConcurrentTasks is the agent's capacity.
	MaxConcurrentTasks int `json:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
	// CurrentTasks lists task IDs currently assigned.
	CurrentTasks []string `json:"current_tasks,omitempty" yaml:"current_tasks,omitempty"`
	// Performance tracks rolling execution quality.
	Performance AgentPerformance `json:"performance" yaml:"performance"`
	// Metadata holds registration and transport details.
	Metadata AgentMetadata `json:"metadata" yaml:"metadata"`
}

// HasCapabilities reports whether the agent covers every required capability.
func (a *Agent) HasCapabilities(required []Capability) bool {
	for _, req := range required {
		found := false
		for _, have := range a.Capabilities {
			if have == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CapabilityMatch returns the fraction of required capabilities the agent
// covers. An empty requirement list matches fully.
func (a *Agent) CapabilityMatch(required []Capability) float64 {
	if len(required) == 0 {
		return 1.0
	}
	matched := 0
	for _, req := range required {
		for _, have := range a.Capabilities {
			if have == req {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(required))
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	out.Capabilities = append([]Capability(nil), a.Capabilities...)
	out.CurrentTasks = append([]string(nil), a.CurrentTasks...)
	return &out
}

// RecomputeLoad refreshes CurrentLoad from the task list and capacity.
func (a *Agent) RecomputeLoad() {
	if a.MaxConcurrentTasks <= 0 {
		a.CurrentLoad = 0
		return
	}
	a.CurrentLoad = float64(len(a.CurrentTasks)) / float64(a.MaxConcurrentTasks)
}
