package models

import "time"

// SchedulingAlgorithm names a scheduler scoring strategy.
type SchedulingAlgorithm string

const (
	// AlgorithmPriorityFirst orders by task priority alone.
	AlgorithmPriorityFirst SchedulingAlgorithm = "priority_first"
	// AlgorithmEarliestDeadline orders by deadline slack.
	AlgorithmEarliestDeadline SchedulingAlgorithm = "earliest_deadline"
	// AlgorithmShortestJob orders by estimated duration ascending.
	AlgorithmShortestJob SchedulingAlgorithm = "shortest_job"
	// AlgorithmCriticalPath orders by critical-path membership and depth.
	AlgorithmCriticalPath SchedulingAlgorithm = "critical_path"
	// AlgorithmResourceAware orders by resource fit.
	AlgorithmResourceAware SchedulingAlgorithm = "resource_aware"
	// AlgorithmHybridOptimal combines all factors with configured weights.
	AlgorithmHybridOptimal SchedulingAlgorithm = "hybrid_optimal"
)

// Valid returns true if the algorithm is a known value.
func (a SchedulingAlgorithm) Valid() bool {
	switch a {
	case AlgorithmPriorityFirst, AlgorithmEarliestDeadline, AlgorithmShortestJob,
		AlgorithmCriticalPath, AlgorithmResourceAware, AlgorithmHybridOptimal:
		return true
	default:
		return false
	}
}

// ResourceAllocation is the resource envelope reserved for one task.
type ResourceAllocation struct {
	// MemoryMB is the reserved memory in megabytes.
	MemoryMB int `json:"memory_mb" yaml:"memory_mb"`
	// CPUWeight is the relative CPU share, in (0,1].
	CPUWeight float64 `json:"cpu_weight" yaml:"cpu_weight"`
	// AgentID is the agent the task is pinned to, if any.
	AgentID string `json:"agent_id,omitempty" yaml:"agent_id,omitempty"`
}

// ScoreBreakdown records the per-factor scores behind a scheduling decision.
type ScoreBreakdown struct {
	PriorityScore          float64 `json:"priority_score" yaml:"priority_score"`
	ResourceScore          float64 `json:"resource_score" yaml:"resource_score"`
	DeadlineScore          float64 `json:"deadline_score" yaml:"deadline_score"`
	SystemLoadScore        float64 `json:"system_load_score" yaml:"system_load_score"`
	ComplexityScore        float64 `json:"complexity_score" yaml:"complexity_score"`
	BusinessImpactScore    float64 `json:"business_impact_score" yaml:"business_impact_score"`
	AgentAvailabilityScore float64 `json:"agent_availability_score" yaml:"agent_availability_score"`
	DependencyScore        float64 `json:"dependency_score" yaml:"dependency_score"`
	TotalScore             float64 `json:"total_score" yaml:"total_score"`
}

// ScheduledTask is one task placed on the schedule timeline.
type ScheduledTask struct {
	// Task is the scheduled task.
	Task *Task `json:"task" yaml:"task"`
	// ScheduledStart is when the task is planned to begin.
	ScheduledStart time.Time `json:"scheduled_start" yaml:"scheduled_start"`
	// ScheduledEnd is when the task is planned to finish.
	ScheduledEnd time.Time `json:"scheduled_end" yaml:"scheduled_end"`
	// AssignedResources is the reserved resource envelope.
	AssignedResources ResourceAllocation `json:"assigned_resources" yaml:"assigned_resources"`
	// Metadata records the scoring behind the placement.
	Metadata ScoreBreakdown `json:"metadata" yaml:"metadata"`
	// BatchID is the execution batch this task belongs to.
	BatchID string `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
}

// ExecutionBatch is an ordered set of tasks safe to run in parallel.
type ExecutionBatch struct {
	// BatchID identifies the batch within its schedule.
	BatchID string `json:"batch_id" yaml:"batch_id"`
	// TaskIDs lists the member tasks.
	TaskIDs []string `json:"task_ids" yaml:"task_ids"`
}

// Timeline summarizes the planned execution window of a schedule.
type Timeline struct {
	// Start is the planned start of the first batch.
	Start time.Time `json:"start" yaml:"start"`
	// End is the planned end of the last task.
	End time.Time `json:"end" yaml:"end"`
	// TotalDuration is End minus Start.
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`
	// ParallelismFactor is total task hours divided by wall-clock duration.
	ParallelismFactor float64 `json:"parallelism_factor" yaml:"parallelism_factor"`
	// CriticalPath lists the task IDs on the longest weighted path.
	CriticalPath []string `json:"critical_path,omitempty" yaml:"critical_path,omitempty"`
}

// ResourceUtilization summarizes schedule-wide resource usage.
type ResourceUtilization struct {
	// PeakMemoryMB is the largest concurrent memory reservation.
	PeakMemoryMB int `json:"peak_memory_mb" yaml:"peak_memory_mb"`
	// AverageCPUUtilization is the mean reserved CPU weight per batch.
	AverageCPUUtilization float64 `json:"average_cpu_utilization" yaml:"average_cpu_utilization"`
	// AgentUtilization is the fraction of the agent pool in use.
	AgentUtilization float64 `json:"agent_utilization" yaml:"agent_utilization"`
	// ResourceEfficiency is reserved over available resources, in [0,1].
	ResourceEfficiency float64 `json:"resource_efficiency" yaml:"resource_efficiency"`
}

// Schedule is the output of the scheduler: dependency-ordered batches with
// per-task placements, resources, and a timeline.
type Schedule struct {
	// ID is the unique identifier for this schedule.
	ID string `json:"id" yaml:"id"`
	// ProjectID is the project the schedule belongs to.
	ProjectID string `json:"project_id" yaml:"project_id"`
	// Algorithm is the scoring strategy used.
	Algorithm SchedulingAlgorithm `json:"algorithm" yaml:"algorithm"`
	// ScheduledTasks maps task ID to its placement.
	ScheduledTasks map[string]*ScheduledTask `json:"scheduled_tasks" yaml:"scheduled_tasks"`
	// ExecutionBatches is the ordered batch plan.
	ExecutionBatches []*ExecutionBatch `json:"execution_batches" yaml:"execution_batches"`
	// Timeline summarizes the planned window.
	Timeline Timeline `json:"timeline" yaml:"timeline"`
	// ResourceUtilization summarizes resource usage.
	ResourceUtilization ResourceUtilization `json:"resource_utilization" yaml:"resource_utilization"`
	// CycleDiagnostic lists tasks excluded because they sit on a cycle.
	// Empty when the graph was acyclic.
	CycleDiagnostic []string `json:"cycle_diagnostic,omitempty" yaml:"cycle_diagnostic,omitempty"`
	// Metadata holds free-form scheduler annotations.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// GeneratedAt is when the schedule was produced.
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}
