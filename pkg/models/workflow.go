package models

import "time"

// WorkflowPhase is one stage of the orchestration state machine.
type WorkflowPhase string

const (
	// PhaseInitialization is the starting phase.
	PhaseInitialization WorkflowPhase = "initialization"
	// PhaseDecomposition covers recursive task decomposition.
	PhaseDecomposition WorkflowPhase = "decomposition"
	// PhasePlanning covers graph assembly and scheduling.
	PhasePlanning WorkflowPhase = "planning"
	// PhaseAssignment covers matching tasks to agents.
	PhaseAssignment WorkflowPhase = "assignment"
	// PhaseExecution covers active task execution.
	PhaseExecution WorkflowPhase = "execution"
	// PhaseMonitoring covers watching in-flight executions.
	PhaseMonitoring WorkflowPhase = "monitoring"
	// PhaseValidation covers verifying completed work.
	PhaseValidation WorkflowPhase = "validation"
	// PhaseCompletion is the terminal success phase.
	PhaseCompletion WorkflowPhase = "completion"
	// PhaseErrorRecovery is the side branch entered after failures.
	PhaseErrorRecovery WorkflowPhase = "error_recovery"
)

// Valid returns true if the phase is a known value.
func (p WorkflowPhase) Valid() bool {
	switch p {
	case PhaseInitialization, PhaseDecomposition, PhasePlanning, PhaseAssignment,
		PhaseExecution, PhaseMonitoring, PhaseValidation, PhaseCompletion,
		PhaseErrorRecovery:
		return true
	default:
		return false
	}
}

// Terminal reports whether the phase ends the workflow.
func (p WorkflowPhase) Terminal() bool {
	return p == PhaseCompletion
}

// phaseOrder is the forward progression of the state machine.
var phaseOrder = map[WorkflowPhase]WorkflowPhase{
	PhaseInitialization: PhaseDecomposition,
	PhaseDecomposition:  PhasePlanning,
	PhasePlanning:       PhaseAssignment,
	PhaseAssignment:     PhaseExecution,
	PhaseExecution:      PhaseMonitoring,
	PhaseMonitoring:     PhaseValidation,
	PhaseValidation:     PhaseCompletion,
}

// CanTransitionTo reports whether the state machine permits moving from p to
// next. Any non-terminal phase may enter error_recovery; error_recovery may
// resume at assignment or finish at completion.
func (p WorkflowPhase) CanTransitionTo(next WorkflowPhase) bool {
	if !next.Valid() || p.Terminal() {
		return false
	}
	if next == PhaseErrorRecovery {
		return p != PhaseErrorRecovery
	}
	if p == PhaseErrorRecovery {
		return next == PhaseAssignment || next == PhaseCompletion
	}
	return phaseOrder[p] == next
}

// WorkflowStatus represents the overall state of a workflow.
type WorkflowStatus string

const (
	// WorkflowStatusRunning indicates the workflow is in progress.
	WorkflowStatusRunning WorkflowStatus = "running"
	// WorkflowStatusCompleted indicates the workflow finished successfully.
	WorkflowStatusCompleted WorkflowStatus = "completed"
	// WorkflowStatusFailed indicates the workflow failed permanently.
	WorkflowStatusFailed WorkflowStatus = "failed"
	// WorkflowStatusCancelled indicates the workflow was cancelled.
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusRunning, WorkflowStatusCompleted,
		WorkflowStatusFailed, WorkflowStatusCancelled:
		return true
	default:
		return false
	}
}

// Finished reports whether the workflow has reached a terminal status.
func (s WorkflowStatus) Finished() bool {
	return s == WorkflowStatusCompleted || s == WorkflowStatusFailed || s == WorkflowStatusCancelled
}

// WorkflowProgress tracks task completion counters for a workflow.
// TotalTasks never decreases.
type WorkflowProgress struct {
	// TotalTasks is the number of tasks in the workflow.
	TotalTasks int `json:"total_tasks" yaml:"total_tasks"`
	// CompletedTasks is the number of tasks finished successfully.
	CompletedTasks int `json:"completed_tasks" yaml:"completed_tasks"`
	// FailedTasks is the number of tasks that failed permanently.
	FailedTasks int `json:"failed_tasks" yaml:"failed_tasks"`
	// Percentage is CompletedTasks/TotalTasks*100.
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Recompute refreshes Percentage from the counters.
func (p *WorkflowProgress) Recompute() {
	if p.TotalTasks <= 0 {
		p.Percentage = 0
		return
	}
	p.Percentage = float64(p.CompletedTasks) / float64(p.TotalTasks) * 100
}

// WorkflowMetadata holds bookkeeping about a workflow run.
type WorkflowMetadata struct {
	// Initiator records who or what started the workflow.
	Initiator string `json:"initiator,omitempty" yaml:"initiator,omitempty"`
	// Priority is the workflow urgency.
	Priority Priority `json:"priority" yaml:"priority"`
	// EstimatedDuration is the planned wall-clock duration.
	EstimatedDuration time.Duration `json:"estimated_duration" yaml:"estimated_duration"`
	// ActualDuration is the measured duration, filled on completion.
	ActualDuration time.Duration `json:"actual_duration,omitempty" yaml:"actual_duration,omitempty"`
}

// Workflow is a per-session unit of work covering one decompose, schedule,
// and execute cycle for a project.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID string `json:"id" yaml:"id"`
	// ProjectID is the project being worked on.
	ProjectID string `json:"project_id" yaml:"project_id"`
	// SessionID groups workflows started by the same session.
	SessionID string `json:"session_id" yaml:"session_id"`
	// Phase is the current state-machine phase.
	Phase WorkflowPhase `json:"phase" yaml:"phase"`
	// Status is the overall workflow state.
	Status WorkflowStatus `json:"status" yaml:"status"`
	// TaskIDs lists the tasks in this workflow.
	TaskIDs []string `json:"task_ids,omitempty" yaml:"task_ids,omitempty"`
	// AssignedAgents lists agent IDs participating in this workflow.
	AssignedAgents []string `json:"assigned_agents,omitempty" yaml:"assigned_agents,omitempty"`
	// Progress tracks task completion counters.
	Progress WorkflowProgress `json:"progress" yaml:"progress"`
	// StartTime is when the workflow started.
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// EndTime is when the workflow finished, if it has.
	EndTime *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	// Metadata holds run bookkeeping.
	Metadata WorkflowMetadata `json:"metadata" yaml:"metadata"`
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	out := *w
	out.TaskIDs = append([]string(nil), w.TaskIDs...)
	out.AssignedAgents = append([]string(nil), w.AssignedAgents...)
	if w.EndTime != nil {
		end := *w.EndTime
		out.EndTime = &end
	}
	return &out
}
