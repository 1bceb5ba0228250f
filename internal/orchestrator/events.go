// Package orchestrator coordinates agents, workflows, and task executions:
// it assigns scheduled tasks to registered agents, supervises running
// executions, and recovers from silent agents and stuck tasks.
package orchestrator

import (
	"time"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventAgentRegistered indicates a new agent joined the pool.
	EventAgentRegistered EventType = "agent_registered"
	// EventAgentOffline indicates an agent stopped heartbeating.
	EventAgentOffline EventType = "agent_offline"
	// EventWorkflowPhaseChanged indicates a workflow moved to a new phase.
	EventWorkflowPhaseChanged EventType = "workflow_phase_changed"
	// EventTaskQueued indicates a task entered the pending pool.
	EventTaskQueued EventType = "task_queued"
	// EventTaskAssigned indicates a task was matched to an agent.
	EventTaskAssigned EventType = "task_assigned"
	// EventExecutionStarted indicates an assignment began executing.
	EventExecutionStarted EventType = "execution_started"
	// EventExecutionProgress provides periodic updates on a running execution.
	EventExecutionProgress EventType = "execution_progress"
	// EventExecutionCompleted indicates an execution finished successfully.
	EventExecutionCompleted EventType = "execution_completed"
	// EventExecutionFailed indicates an execution failed.
	EventExecutionFailed EventType = "execution_failed"
	// EventExecutionTimeout indicates the watchdog timed an execution out.
	EventExecutionTimeout EventType = "execution_timeout"
	// EventExecutionCancelled indicates an execution was cancelled.
	EventExecutionCancelled EventType = "execution_cancelled"
	// EventTaskRetried indicates a failed or timed-out task re-entered the pool.
	EventTaskRetried EventType = "task_retried"
	// EventMetricsSnapshot carries a periodic metrics summary.
	EventMetricsSnapshot EventType = "metrics_snapshot"
)

// Event represents an event emitted by the orchestration engine.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// WorkflowID is the ID of the related workflow, if applicable.
	WorkflowID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Phase is the workflow phase after a transition.
	Phase models.WorkflowPhase
	// PreviousPhase is the workflow phase before a transition.
	PreviousPhase models.WorkflowPhase
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Metrics carries the snapshot for metrics events.
	Metrics *Metrics
}
