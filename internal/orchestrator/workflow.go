package orchestrator

import (
	"github.com/google/uuid"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// CreateWorkflow starts a workflow for a project in the initialization
// phase.
func (e *Engine) CreateWorkflow(projectID, sessionID string, taskIDs []string) *models.Workflow {
	now := e.now()
	wf := &models.Workflow{
		ID:        "wf-" + uuid.New().String()[:8],
		ProjectID: projectID,
		SessionID: sessionID,
		Phase:     models.PhaseInitialization,
		Status:    models.WorkflowStatusRunning,
		TaskIDs:   taskIDs,
		Progress:  models.WorkflowProgress{TotalTasks: len(taskIDs)},
		StartTime: now,
	}
	wf.Progress.Recompute()

	e.mu.Lock()
	e.workflows[wf.ID] = wf
	e.mu.Unlock()
	return wf
}

// GetWorkflow returns a copy of the workflow with the given id.
func (e *Engine) GetWorkflow(id string) (*models.Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	wf, ok := e.workflows[id]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "orchestrator.GetWorkflow", "workflow "+id)
	}
	return wf.Clone(), nil
}

// Workflows returns a deep-copied view of all live workflows, taken under
// the engine lock so callers may read or marshal them without holding it.
func (e *Engine) Workflows() []*models.Workflow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.Workflow, 0, len(e.workflows))
	for _, wf := range e.workflows {
		out = append(out, wf.Clone())
	}
	return out
}

// UpdateWorkflowPhase drives the workflow state machine. Transitions to
// the current phase are a no-op; all others must be permitted by the state
// machine. Each real transition emits an event, and transitions on one
// workflow are totally ordered by the engine lock.
func (e *Engine) UpdateWorkflowPhase(workflowID string, next models.WorkflowPhase) error {
	e.mu.Lock()
	wf, ok := e.workflows[workflowID]
	if !ok {
		e.mu.Unlock()
		return errs.E(errs.KindNotFound, "orchestrator.UpdateWorkflowPhase", "workflow "+workflowID)
	}
	previous := wf.Phase
	if previous == next {
		e.mu.Unlock()
		return nil
	}
	if !previous.CanTransitionTo(next) {
		e.mu.Unlock()
		return errs.E(errs.KindValidation, "orchestrator.UpdateWorkflowPhase",
			"illegal transition "+string(previous)+" -> "+string(next))
	}
	wf.Phase = next
	if next.Terminal() {
		now := e.now()
		wf.EndTime = &now
		wf.Status = models.WorkflowStatusCompleted
		wf.Metadata.ActualDuration = now.Sub(wf.StartTime)
	}
	e.mu.Unlock()

	e.emitter.Emit(Event{
		Type:          EventWorkflowPhaseChanged,
		WorkflowID:    workflowID,
		Phase:         next,
		PreviousPhase: previous,
		Timestamp:     e.now(),
	})
	if e.runlog != nil {
		e.runlog.RecordPhase(workflowID, string(previous), string(next))
	}
	return nil
}

// FailWorkflow marks a workflow failed and routes it into error recovery
// when it is not already there.
func (e *Engine) FailWorkflow(workflowID string, cause error) error {
	e.mu.RLock()
	wf, ok := e.workflows[workflowID]
	var phase models.WorkflowPhase
	if ok {
		phase = wf.Phase
	}
	e.mu.RUnlock()
	if !ok {
		return errs.E(errs.KindNotFound, "orchestrator.FailWorkflow", "workflow "+workflowID)
	}
	if phase != models.PhaseErrorRecovery && !phase.Terminal() {
		if err := e.UpdateWorkflowPhase(workflowID, models.PhaseErrorRecovery); err != nil {
			return err
		}
	}
	e.mu.Lock()
	wf.Status = models.WorkflowStatusFailed
	e.mu.Unlock()
	e.emitter.Emit(Event{
		Type:       EventExecutionFailed,
		WorkflowID: workflowID,
		Error:      cause,
		Timestamp:  e.now(),
	})
	return nil
}

// recordTaskOutcome bumps the workflow progress counters. TotalTasks never
// decreases.
func (e *Engine) recordTaskOutcome(workflowID string, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	wf, ok := e.workflows[workflowID]
	if !ok {
		return
	}
	if success {
		wf.Progress.CompletedTasks++
	} else {
		wf.Progress.FailedTasks++
	}
	wf.Progress.Recompute()
}
