package orchestrator

import (
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/vibeman/pkg/models"
)

// Metrics is a point-in-time snapshot of orchestration health.
type Metrics struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// TotalAgents is the registry size.
	TotalAgents int `json:"total_agents"`
	// OnlineAgents counts agents with status online.
	OnlineAgents int `json:"online_agents"`
	// BusyAgents counts agents running at capacity.
	BusyAgents int `json:"busy_agents"`
	// OfflineAgents counts agents marked offline.
	OfflineAgents int `json:"offline_agents"`
	// ActiveWorkflows counts workflows still running.
	ActiveWorkflows int `json:"active_workflows"`
	// FinishedWorkflows counts completed, failed, and cancelled workflows.
	FinishedWorkflows int `json:"finished_workflows"`
	// PendingTasks counts schedule entries awaiting assignment.
	PendingTasks int `json:"pending_tasks"`
	// RunningTasks counts executions in flight.
	RunningTasks int `json:"running_tasks"`
	// CompletedTasks counts successful executions since startup.
	CompletedTasks int64 `json:"completed_tasks"`
	// FailedTasks counts failed and timed-out executions since startup.
	FailedTasks int64 `json:"failed_tasks"`
	// ThroughputPerMinute is completed tasks per minute since startup.
	ThroughputPerMinute float64 `json:"throughput_per_minute"`
	// SuccessRate is completed over all finished tasks.
	SuccessRate float64 `json:"success_rate"`
	// ErrorRate is failed over all finished tasks.
	ErrorRate float64 `json:"error_rate"`
	// AvgAgentLoad is the mean CurrentLoad across online agents.
	AvgAgentLoad float64 `json:"avg_agent_load"`
	// AvgTaskTimeMS is the mean of agent rolling task-time averages.
	AvgTaskTimeMS float64 `json:"avg_task_time_ms"`
}

// ComputeMetrics assembles a metrics snapshot from live engine state.
func (e *Engine) ComputeMetrics() *Metrics {
	now := e.now()
	m := &Metrics{Timestamp: now}

	var loadSum, taskTimeSum float64
	var loadN, taskTimeN int
	for _, agent := range e.registry.all() {
		m.TotalAgents++
		switch agent.Status {
		case models.AgentStatusOnline, models.AgentStatusIdle:
			m.OnlineAgents++
			loadSum += agent.CurrentLoad
			loadN++
		case models.AgentStatusBusy:
			m.BusyAgents++
			loadSum += agent.CurrentLoad
			loadN++
		case models.AgentStatusOffline:
			m.OfflineAgents++
		}
		if agent.Performance.AverageTaskTime > 0 {
			taskTimeSum += float64(agent.Performance.AverageTaskTime.Milliseconds())
			taskTimeN++
		}
	}
	if loadN > 0 {
		m.AvgAgentLoad = loadSum / float64(loadN)
	}
	if taskTimeN > 0 {
		m.AvgTaskTimeMS = taskTimeSum / float64(taskTimeN)
	}

	e.mu.RLock()
	for _, wf := range e.workflows {
		if wf.Status.Finished() {
			m.FinishedWorkflows++
		} else {
			m.ActiveWorkflows++
		}
	}
	for _, entry := range e.entries {
		if entry.Status == models.EntryPending {
			m.PendingTasks++
		}
	}
	for _, exec := range e.executions {
		if exec.Status == models.ExecutionRunning {
			m.RunningTasks++
		}
	}
	startedAt := e.startedAt
	e.mu.RUnlock()

	m.CompletedTasks = e.completedTotal.Load()
	m.FailedTasks = e.failedTotal.Load()
	finished := m.CompletedTasks + m.FailedTasks
	if finished > 0 {
		m.SuccessRate = float64(m.CompletedTasks) / float64(finished)
		m.ErrorRate = float64(m.FailedTasks) / float64(finished)
	}
	if !startedAt.IsZero() {
		if minutes := now.Sub(startedAt).Minutes(); minutes > 0 {
			m.ThroughputPerMinute = float64(m.CompletedTasks) / minutes
		}
	}
	return m
}

// metricsTick publishes a metrics snapshot to the event stream, the run
// log, and the state snapshot files.
func (e *Engine) metricsTick() {
	m := e.ComputeMetrics()
	e.emitter.Emit(Event{
		Type:      EventMetricsSnapshot,
		Timestamp: m.Timestamp,
		Metrics:   m,
	})
	if e.runlog != nil {
		e.runlog.RecordMetrics(m)
	}
	if e.snapshot != nil {
		if err := e.snapshot.Write(e.registry.all(), e.Workflows()); err != nil {
			e.logger.Warn("snapshot write failed", zap.Error(err))
		}
	}
}
