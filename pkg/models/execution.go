package models

import "time"

// AssignmentStatus represents the state of a task assignment.
type AssignmentStatus string

const (
	// AssignmentPending indicates the assignment awaits an agent slot.
	AssignmentPending AssignmentStatus = "pending"
	// AssignmentAssigned indicates an agent has accepted the task.
	AssignmentAssigned AssignmentStatus = "assigned"
	// AssignmentRunning indicates execution has started.
	AssignmentRunning AssignmentStatus = "running"
	// AssignmentCompleted indicates execution finished successfully.
	AssignmentCompleted AssignmentStatus = "completed"
	// AssignmentFailed indicates execution failed permanently.
	AssignmentFailed AssignmentStatus = "failed"
	// AssignmentTimeout indicates the watchdog timed the execution out.
	AssignmentTimeout AssignmentStatus = "timeout"
	// AssignmentCancelled indicates the caller cancelled the work.
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentAssigned, AssignmentRunning,
		AssignmentCompleted, AssignmentFailed, AssignmentTimeout, AssignmentCancelled:
		return true
	default:
		return false
	}
}

// TaskAssignment binds a task to an agent within a workflow.
type TaskAssignment struct {
	// ID is the unique identifier for this assignment.
	ID string `json:"id" yaml:"id"`
	// TaskID is the assigned task.
	TaskID string `json:"task_id" yaml:"task_id"`
	// AgentID is the agent performing the task.
	AgentID string `json:"agent_id" yaml:"agent_id"`
	// WorkflowID is the owning workflow.
	WorkflowID string `json:"workflow_id" yaml:"workflow_id"`
	// EntryID is the schedule entry this assignment was made from.
	EntryID string `json:"entry_id,omitempty" yaml:"entry_id,omitempty"`
	// AssignedAt is when the assignment was created.
	AssignedAt time.Time `json:"assigned_at" yaml:"assigned_at"`
	// StartedAt is when execution began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	// CompletedAt is when execution finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	// Status is the assignment state.
	Status AssignmentStatus `json:"status" yaml:"status"`
	// Priority is the task urgency at assignment time.
	Priority Priority `json:"priority" yaml:"priority"`
	// EstimatedDuration is the planned execution duration.
	EstimatedDuration time.Duration `json:"estimated_duration" yaml:"estimated_duration"`
	// ActualDuration is the measured duration, filled on completion.
	ActualDuration time.Duration `json:"actual_duration,omitempty" yaml:"actual_duration,omitempty"`
	// RetryCount is the number of times this task has been retried.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
	// MaxRetries caps RetryCount.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ExecutionStatus represents the state of an execution context.
type ExecutionStatus string

const (
	// ExecutionRunning indicates the execution is in progress.
	ExecutionRunning ExecutionStatus = "running"
	// ExecutionCompleted indicates the execution succeeded.
	ExecutionCompleted ExecutionStatus = "completed"
	// ExecutionFailed indicates the execution failed.
	ExecutionFailed ExecutionStatus = "failed"
	// ExecutionTimeout indicates the watchdog timed the execution out.
	ExecutionTimeout ExecutionStatus = "timeout"
	// ExecutionCancelled indicates the execution was cancelled.
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s ExecutionStatus) Valid() bool {
	switch s {
	case ExecutionRunning, ExecutionCompleted, ExecutionFailed,
		ExecutionTimeout, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the execution has finished.
func (s ExecutionStatus) Terminal() bool {
	return s != ExecutionRunning
}

// ExecutionMetrics holds runtime measurements reported by the agent.
// Runtime measurements use milliseconds; entity estimates use hours.
type ExecutionMetrics struct {
	// MemoryUsageMB is the agent-reported memory footprint.
	MemoryUsageMB float64 `json:"memory_usage_mb" yaml:"memory_usage_mb"`
	// CPUUsage is the agent-reported CPU fraction.
	CPUUsage float64 `json:"cpu_usage" yaml:"cpu_usage"`
	// ResponseTimeMS is the agent's last progress round-trip in milliseconds.
	ResponseTimeMS int64 `json:"response_time_ms" yaml:"response_time_ms"`
}

// WatchdogState tracks timeout supervision of one execution.
type WatchdogState struct {
	// Enabled reports whether the watchdog supervises this execution.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// TimeoutMS is the progress-silence budget in milliseconds.
	TimeoutMS int64 `json:"timeout_ms" yaml:"timeout_ms"`
	// LastCheck is the last time progress was observed.
	LastCheck time.Time `json:"last_check" yaml:"last_check"`
	// Violations counts consecutive silent watchdog ticks.
	Violations int `json:"violations" yaml:"violations"`
}

// ExecutionContext captures the live state of one running task.
type ExecutionContext struct {
	// ID is the unique identifier for this execution.
	ID string `json:"id" yaml:"id"`
	// WorkflowID is the owning workflow.
	WorkflowID string `json:"workflow_id" yaml:"workflow_id"`
	// TaskID is the task being executed.
	TaskID string `json:"task_id" yaml:"task_id"`
	// AgentID is the executing agent.
	AgentID string `json:"agent_id" yaml:"agent_id"`
	// Status is the execution state.
	Status ExecutionStatus `json:"status" yaml:"status"`
	// StartTime is when execution began.
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// EndTime is when execution finished, if it has.
	EndTime *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	// Progress is the completion percentage, 0-100.
	Progress int `json:"progress" yaml:"progress"`
	// Logs holds agent-reported log lines.
	Logs []string `json:"logs,omitempty" yaml:"logs,omitempty"`
	// Errors holds agent-reported error messages.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	// Metrics holds runtime measurements.
	Metrics ExecutionMetrics `json:"metrics" yaml:"metrics"`
	// Watchdog tracks timeout supervision.
	Watchdog WatchdogState `json:"watchdog" yaml:"watchdog"`
}

// EntryStatus represents the state of a pending schedule entry.
type EntryStatus string

const (
	// EntryPending indicates the entry awaits assignment.
	EntryPending EntryStatus = "pending"
	// EntryAssigned indicates the entry has been turned into an assignment.
	EntryAssigned EntryStatus = "assigned"
	// EntryCancelled indicates the entry was withdrawn.
	EntryCancelled EntryStatus = "cancelled"
)

// EntryConstraints restricts which agents may take a schedule entry.
type EntryConstraints struct {
	// RequiredCapabilities lists capabilities the agent must cover.
	RequiredCapabilities []Capability `json:"required_capabilities,omitempty" yaml:"required_capabilities,omitempty"`
	// PreferredAgents lists agent IDs to favor.
	PreferredAgents []string `json:"preferred_agents,omitempty" yaml:"preferred_agents,omitempty"`
	// ExcludedAgents lists agent IDs to avoid.
	ExcludedAgents []string `json:"excluded_agents,omitempty" yaml:"excluded_agents,omitempty"`
	// MaxRetries caps reassignment attempts.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
	// TimeoutMS is the execution watchdog budget in milliseconds.
	TimeoutMS int64 `json:"timeout_ms" yaml:"timeout_ms"`
}

// ScheduleEntry is a task waiting in the orchestrator's pending pool.
type ScheduleEntry struct {
	// ID is the unique identifier for this entry.
	ID string `json:"id" yaml:"id"`
	// TaskID is the task to execute.
	TaskID string `json:"task_id" yaml:"task_id"`
	// WorkflowID is the owning workflow.
	WorkflowID string `json:"workflow_id" yaml:"workflow_id"`
	// ScheduledAt is the planned start time.
	ScheduledAt time.Time `json:"scheduled_at" yaml:"scheduled_at"`
	// Priority is the task urgency.
	Priority Priority `json:"priority" yaml:"priority"`
	// Dependencies lists task IDs that must complete first.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Constraints restricts agent selection.
	Constraints EntryConstraints `json:"constraints" yaml:"constraints"`
	// Status is the entry state.
	Status EntryStatus `json:"status" yaml:"status"`
	// AssignedAgent is the agent chosen for this entry, once assigned.
	AssignedAgent string `json:"assigned_agent,omitempty" yaml:"assigned_agent,omitempty"`
}
