package orchestrator

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/internal/scheduler"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// watchdogViolationLimit is how many consecutive silent ticks an execution
// survives before it is timed out.
const watchdogViolationLimit = 3

// EnqueueTask places a task in the pending pool for the scheduling loop.
func (e *Engine) EnqueueTask(task *models.Task, workflowID string, constraints models.EntryConstraints) (*models.ScheduleEntry, error) {
	if task == nil || task.ID == "" {
		return nil, errs.E(errs.KindValidation, "orchestrator.EnqueueTask", "task must have an id")
	}
	if err := e.ensureEpic(task); err != nil {
		return nil, err
	}
	if len(constraints.RequiredCapabilities) == 0 {
		constraints.RequiredCapabilities = scheduler.RequiredCapabilities(task.Type)
	}
	if constraints.MaxRetries == 0 {
		constraints.MaxRetries = e.cfg.Recovery.MaxRetries
	}
	if constraints.TimeoutMS == 0 {
		constraints.TimeoutMS = e.cfg.DefaultTimeout.Milliseconds()
	}

	entry := &models.ScheduleEntry{
		ID:           "entry-" + uuid.New().String()[:8],
		TaskID:       task.ID,
		WorkflowID:   workflowID,
		ScheduledAt:  e.now(),
		Priority:     task.Priority,
		Dependencies: task.Dependencies,
		Constraints:  constraints,
		Status:       models.EntryPending,
	}

	e.mu.Lock()
	e.entries[entry.ID] = entry
	e.mu.Unlock()

	e.emitter.Emit(Event{
		Type:       EventTaskQueued,
		WorkflowID: workflowID,
		TaskID:     task.ID,
		Timestamp:  e.now(),
	})
	return entry, nil
}

// ensureEpic resolves the task's epic reference against the store. A task
// arriving with an unknown or empty epic id gets a default epic created
// for it. Without a store the reference is left as given.
func (e *Engine) ensureEpic(task *models.Task) error {
	if e.epics == nil {
		return nil
	}
	if task.EpicID != "" && e.epics.EpicExists(task.EpicID) {
		return nil
	}
	if task.EpicID == "" {
		task.EpicID = "epic-" + uuid.New().String()[:8]
	}
	now := e.now()
	epic := &models.Epic{
		ID:        task.EpicID,
		ProjectID: task.ProjectID,
		Title:     "Tasks for " + task.Title,
		Status:    models.EpicStatusPending,
		Priority:  task.Priority,
		TaskIDs:   []string{task.ID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.epics.CreateEpic(epic); err != nil {
		if errs.KindOf(err) == errs.KindAlreadyExists {
			return nil
		}
		return errs.Wrap(errs.KindValidation, "orchestrator.EnqueueTask", err)
	}
	e.logger.Info("created epic for unresolved reference",
		zap.String("epic", epic.ID), zap.String("task", task.ID))
	return nil
}

// schedulingTick assigns pending schedule entries to agents. A
// non-reentrant guard skips the tick when the previous one is still
// running. It returns the number of assignments made.
func (e *Engine) schedulingTick() int {
	if !e.schedulingBusy.CompareAndSwap(false, true) {
		return 0
	}
	defer e.schedulingBusy.Store(false)

	e.mu.RLock()
	pending := make([]*models.ScheduleEntry, 0, len(e.entries))
	for _, entry := range e.entries {
		if entry.Status == models.EntryPending {
			pending = append(pending, entry)
		}
	}
	e.mu.RUnlock()

	// Highest priority weight first, then earliest scheduled time.
	sort.SliceStable(pending, func(i, j int) bool {
		wi := e.sched.PriorityWeights.For(pending[i].Priority)
		wj := e.sched.PriorityWeights.For(pending[j].Priority)
		if wi != wj {
			return wi > wj
		}
		return pending[i].ScheduledAt.Before(pending[j].ScheduledAt)
	})

	assigned := 0
	for _, entry := range pending {
		if e.assignEntry(entry) {
			assigned++
		}
	}
	return assigned
}

// assignEntry finds an agent for one entry and creates the assignment.
// Agent load and status update atomically with the assignment.
func (e *Engine) assignEntry(entry *models.ScheduleEntry) bool {
	candidates := e.registry.available(entry.Constraints.RequiredCapabilities)
	candidates = filterAgents(candidates, entry.Constraints)
	agent := selectAgent(e.strategy, candidates, entry.Constraints.RequiredCapabilities, &e.rrCounter)
	if agent == nil {
		return false
	}
	if err := e.registry.assignTask(agent.ID, entry.TaskID); err != nil {
		return false
	}

	now := e.now()
	assignment := &models.TaskAssignment{
		ID:         "asg-" + uuid.New().String()[:8],
		TaskID:     entry.TaskID,
		AgentID:    agent.ID,
		WorkflowID: entry.WorkflowID,
		EntryID:    entry.ID,
		AssignedAt: now,
		Status:     models.AssignmentAssigned,
		Priority:   entry.Priority,
		MaxRetries: entry.Constraints.MaxRetries,
	}

	e.mu.Lock()
	entry.Status = models.EntryAssigned
	entry.AssignedAgent = agent.ID
	e.assignments[assignment.ID] = assignment
	e.mu.Unlock()

	e.emitter.Emit(Event{
		Type:       EventTaskAssigned,
		WorkflowID: entry.WorkflowID,
		TaskID:     entry.TaskID,
		AgentID:    agent.ID,
		Timestamp:  now,
	})
	if e.runlog != nil {
		e.runlog.RecordEvent(string(EventTaskAssigned), agent.ID, entry.TaskID, string(e.strategy))
	}
	return true
}

// filterAgents applies the entry's preferred and excluded agent lists.
func filterAgents(candidates []*models.Agent, c models.EntryConstraints) []*models.Agent {
	if len(c.ExcludedAgents) > 0 {
		kept := candidates[:0]
		for _, agent := range candidates {
			excluded := false
			for _, id := range c.ExcludedAgents {
				if agent.ID == id {
					excluded = true
					break
				}
			}
			if !excluded {
				kept = append(kept, agent)
			}
		}
		candidates = kept
	}
	if len(c.PreferredAgents) > 0 {
		var preferred []*models.Agent
		for _, id := range c.PreferredAgents {
			for _, agent := range candidates {
				if agent.ID == id {
					preferred = append(preferred, agent)
				}
			}
		}
		if len(preferred) > 0 {
			return preferred
		}
	}
	return candidates
}

// GetAssignment returns an assignment by id.
func (e *Engine) GetAssignment(id string) (*models.TaskAssignment, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.assignments[id]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "orchestrator.GetAssignment", "assignment "+id)
	}
	return a, nil
}

// Assignments returns all assignments.
func (e *Engine) Assignments() []*models.TaskAssignment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*models.TaskAssignment, 0, len(e.assignments))
	for _, a := range e.assignments {
		out = append(out, a)
	}
	return out
}

// StartExecution moves an assignment to running and creates its execution
// context with the watchdog armed.
func (e *Engine) StartExecution(assignmentID string) (*models.ExecutionContext, error) {
	e.mu.Lock()
	assignment, ok := e.assignments[assignmentID]
	if !ok {
		e.mu.Unlock()
		return nil, errs.E(errs.KindNotFound, "orchestrator.StartExecution", "assignment "+assignmentID)
	}
	if assignment.Status != models.AssignmentAssigned {
		e.mu.Unlock()
		return nil, errs.E(errs.KindValidation, "orchestrator.StartExecution",
			"assignment "+assignmentID+" is "+string(assignment.Status)+", not assigned")
	}

	now := e.now()
	assignment.Status = models.AssignmentRunning
	assignment.StartedAt = &now

	timeoutMS := e.timeoutForLocked(assignment)
	exec := &models.ExecutionContext{
		ID:         "exec-" + uuid.New().String()[:8],
		WorkflowID: assignment.WorkflowID,
		TaskID:     assignment.TaskID,
		AgentID:    assignment.AgentID,
		Status:     models.ExecutionRunning,
		StartTime:  now,
		Watchdog: models.WatchdogState{
			Enabled:   true,
			TimeoutMS: timeoutMS,
			LastCheck: now,
		},
	}
	e.executions[exec.ID] = exec
	e.mu.Unlock()

	e.emitter.Emit(Event{
		Type:       EventExecutionStarted,
		WorkflowID: exec.WorkflowID,
		TaskID:     exec.TaskID,
		AgentID:    exec.AgentID,
		Timestamp:  now,
	})
	return exec, nil
}

// timeoutForLocked resolves the watchdog budget for an assignment from its
// originating entry, falling back to the configured default.
func (e *Engine) timeoutForLocked(assignment *models.TaskAssignment) int64 {
	if entry, ok := e.entries[assignment.EntryID]; ok && entry.Constraints.TimeoutMS > 0 {
		return entry.Constraints.TimeoutMS
	}
	return e.cfg.DefaultTimeout.Milliseconds()
}

// UpdateExecutionProgress records agent progress and feeds the watchdog.
func (e *Engine) UpdateExecutionProgress(executionID string, progress int, logs []string) error {
	e.mu.Lock()
	exec, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return errs.E(errs.KindNotFound, "orchestrator.UpdateExecutionProgress", "execution "+executionID)
	}
	if exec.Status.Terminal() {
		e.mu.Unlock()
		return errs.E(errs.KindValidation, "orchestrator.UpdateExecutionProgress",
			"execution "+executionID+" already "+string(exec.Status))
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	exec.Progress = progress
	exec.Logs = append(exec.Logs, logs...)
	exec.Watchdog.LastCheck = e.now()
	exec.Watchdog.Violations = 0
	workflowID, taskID, agentID := exec.WorkflowID, exec.TaskID, exec.AgentID
	e.mu.Unlock()

	e.emitter.Emit(Event{
		Type:       EventExecutionProgress,
		WorkflowID: workflowID,
		TaskID:     taskID,
		AgentID:    agentID,
		Timestamp:  e.now(),
	})
	return nil
}

// CompleteExecution finishes an execution, updates the assignment, the
// agent's rolling metrics, and the workflow's progress counters.
func (e *Engine) CompleteExecution(executionID string, success bool, result string) error {
	e.mu.Lock()
	exec, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return errs.E(errs.KindNotFound, "orchestrator.CompleteExecution", "execution "+executionID)
	}
	if exec.Status.Terminal() {
		e.mu.Unlock()
		return errs.E(errs.KindValidation, "orchestrator.CompleteExecution",
			"execution "+executionID+" already "+string(exec.Status))
	}

	now := e.now()
	exec.EndTime = &now
	if success {
		exec.Status = models.ExecutionCompleted
		exec.Progress = 100
	} else {
		exec.Status = models.ExecutionFailed
		if result != "" {
			exec.Errors = append(exec.Errors, result)
		}
	}
	exec.Watchdog.Enabled = false

	assignment := e.assignmentForLocked(exec)
	if assignment != nil {
		assignment.CompletedAt = &now
		if assignment.StartedAt != nil {
			assignment.ActualDuration = now.Sub(*assignment.StartedAt)
		}
		if success {
			assignment.Status = models.AssignmentCompleted
		} else {
			assignment.Status = models.AssignmentFailed
		}
	}
	duration := now.Sub(exec.StartTime)
	workflowID, taskID, agentID := exec.WorkflowID, exec.TaskID, exec.AgentID
	e.mu.Unlock()

	e.registry.releaseTask(agentID, taskID)
	e.registry.recordOutcome(agentID, duration, success)
	e.recordTaskOutcome(workflowID, success)
	if success {
		e.completedTotal.Add(1)
	} else {
		e.failedTotal.Add(1)
	}

	eventType := EventExecutionCompleted
	if !success {
		eventType = EventExecutionFailed
	}
	e.emitter.Emit(Event{
		Type:       eventType,
		WorkflowID: workflowID,
		TaskID:     taskID,
		AgentID:    agentID,
		Message:    result,
		Timestamp:  now,
	})
	if e.runlog != nil {
		e.runlog.RecordExecution(executionID, taskID, agentID, string(exec.Status), duration)
	}
	return nil
}

// CancelExecution marks a running execution cancelled and returns its task
// to the pending pool unless retries are exhausted.
func (e *Engine) CancelExecution(executionID string) error {
	e.mu.Lock()
	exec, ok := e.executions[executionID]
	if !ok {
		e.mu.Unlock()
		return errs.E(errs.KindNotFound, "orchestrator.CancelExecution", "execution "+executionID)
	}
	if exec.Status.Terminal() {
		e.mu.Unlock()
		return errs.E(errs.KindValidation, "orchestrator.CancelExecution",
			"execution "+executionID+" already "+string(exec.Status))
	}

	now := e.now()
	exec.Status = models.ExecutionCancelled
	exec.EndTime = &now
	exec.Watchdog.Enabled = false

	assignment := e.assignmentForLocked(exec)
	var retry *models.TaskAssignment
	if assignment != nil {
		assignment.Status = models.AssignmentCancelled
		if assignment.RetryCount < assignment.MaxRetries {
			retry = e.requeueLocked(assignment)
		}
	}
	workflowID, taskID, agentID := exec.WorkflowID, exec.TaskID, exec.AgentID
	e.mu.Unlock()

	e.registry.releaseTask(agentID, taskID)
	e.emitter.Emit(Event{
		Type:       EventExecutionCancelled,
		WorkflowID: workflowID,
		TaskID:     taskID,
		AgentID:    agentID,
		Timestamp:  now,
	})
	if retry != nil {
		e.emitter.Emit(Event{
			Type:       EventTaskRetried,
			WorkflowID: workflowID,
			TaskID:     taskID,
			Timestamp:  now,
		})
	}
	return nil
}

// assignmentForLocked finds the live assignment backing an execution.
func (e *Engine) assignmentForLocked(exec *models.ExecutionContext) *models.TaskAssignment {
	for _, a := range e.assignments {
		if a.TaskID == exec.TaskID && a.AgentID == exec.AgentID && !terminalAssignment(a.Status) {
			return a
		}
	}
	// Fall back to any assignment for the task so late completions still
	// close their record.
	for _, a := range e.assignments {
		if a.TaskID == exec.TaskID && a.AgentID == exec.AgentID {
			return a
		}
	}
	return nil
}

func terminalAssignment(s models.AssignmentStatus) bool {
	switch s {
	case models.AssignmentCompleted, models.AssignmentFailed,
		models.AssignmentTimeout, models.AssignmentCancelled:
		return true
	default:
		return false
	}
}

// requeueLocked creates a fresh pending assignment and schedule entry for
// a task whose previous attempt ended, carrying the retry count forward.
func (e *Engine) requeueLocked(prev *models.TaskAssignment) *models.TaskAssignment {
	now := e.now()

	// Carry the originating entry's constraints into the retry.
	constraints := models.EntryConstraints{MaxRetries: prev.MaxRetries}
	if old, ok := e.entries[prev.EntryID]; ok {
		constraints = old.Constraints
	}

	entry := &models.ScheduleEntry{
		ID:          "entry-" + uuid.New().String()[:8],
		TaskID:      prev.TaskID,
		WorkflowID:  prev.WorkflowID,
		ScheduledAt: now.Add(e.cfg.Recovery.RetryDelay),
		Priority:    prev.Priority,
		Constraints: constraints,
		Status:      models.EntryPending,
	}
	e.entries[entry.ID] = entry

	retry := &models.TaskAssignment{
		ID:         "asg-" + uuid.New().String()[:8],
		TaskID:     prev.TaskID,
		WorkflowID: prev.WorkflowID,
		EntryID:    entry.ID,
		AssignedAt: now,
		Status:     models.AssignmentPending,
		Priority:   prev.Priority,
		RetryCount: prev.RetryCount + 1,
		MaxRetries: prev.MaxRetries,
	}
	e.assignments[retry.ID] = retry
	return retry
}

// watchdogTick scans running executions for progress silence. Each silent
// scan increments the execution's violation count; at the limit the
// execution times out, the agent is released, and the task is retried when
// recovery allows.
func (e *Engine) watchdogTick() {
	now := e.now()

	type timedOut struct {
		execID     string
		workflowID string
		taskID     string
		agentID    string
		retried    bool
	}
	var victims []timedOut

	e.mu.Lock()
	for _, exec := range e.executions {
		if exec.Status != models.ExecutionRunning || !exec.Watchdog.Enabled {
			continue
		}
		budget := time.Duration(exec.Watchdog.TimeoutMS) * time.Millisecond
		if now.Sub(exec.Watchdog.LastCheck) <= budget {
			continue
		}
		exec.Watchdog.Violations++
		if exec.Watchdog.Violations < watchdogViolationLimit {
			continue
		}

		exec.Status = models.ExecutionTimeout
		end := now
		exec.EndTime = &end
		exec.Watchdog.Enabled = false

		v := timedOut{
			execID:     exec.ID,
			workflowID: exec.WorkflowID,
			taskID:     exec.TaskID,
			agentID:    exec.AgentID,
		}
		if assignment := e.assignmentForLocked(exec); assignment != nil {
			assignment.Status = models.AssignmentTimeout
			assignment.CompletedAt = &end
			if e.cfg.Recovery.AutoRetry && assignment.RetryCount < assignment.MaxRetries {
				e.requeueLocked(assignment)
				v.retried = true
			}
		}
		victims = append(victims, v)
	}
	e.mu.Unlock()

	for _, v := range victims {
		e.registry.releaseTask(v.agentID, v.taskID)
		e.failedTotal.Add(1)
		e.emitter.Emit(Event{
			Type:       EventExecutionTimeout,
			WorkflowID: v.workflowID,
			TaskID:     v.taskID,
			AgentID:    v.agentID,
			Timestamp:  now,
		})
		if v.retried {
			e.emitter.Emit(Event{
				Type:       EventTaskRetried,
				WorkflowID: v.workflowID,
				TaskID:     v.taskID,
				Timestamp:  now,
			})
		}
		if e.runlog != nil {
			e.runlog.RecordEvent(string(EventExecutionTimeout), v.agentID, v.taskID, "")
		}
	}
}

// heartbeatTick marks silent agents offline, cancels their in-flight
// executions, and requeues the abandoned tasks subject to retry limits.
func (e *Engine) heartbeatTick() {
	for _, agent := range e.registry.silentAgents(e.cfg.HeartbeatTimeout) {
		abandoned := e.registry.markOffline(agent.ID)

		e.mu.Lock()
		for _, exec := range e.executions {
			if exec.AgentID != agent.ID || exec.Status.Terminal() {
				continue
			}
			now := e.now()
			exec.Status = models.ExecutionCancelled
			exec.EndTime = &now
			exec.Watchdog.Enabled = false
			if assignment := e.assignmentForLocked(exec); assignment != nil {
				assignment.Status = models.AssignmentCancelled
				if assignment.RetryCount < assignment.MaxRetries {
					e.requeueLocked(assignment)
				}
			}
		}
		e.mu.Unlock()

		e.emitter.Emit(Event{
			Type:      EventAgentOffline,
			AgentID:   agent.ID,
			Message:   agent.Name,
			Timestamp: e.now(),
		})
		if e.runlog != nil {
			e.runlog.RecordEvent(string(EventAgentOffline), agent.ID, "", "")
		}
		e.logger.Warn("agent went silent",
			zap.String("agent", agent.ID),
			zap.Int("abandoned_tasks", len(abandoned)))
	}
}

// cleanupAge is how long finished workflows are retained.
const cleanupAge = 24 * time.Hour

// cleanupTick garbage-collects finished workflows older than the retention
// window together with their assignments, executions, and entries.
func (e *Engine) cleanupTick() {
	cutoff := e.now().Add(-cleanupAge)

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, wf := range e.workflows {
		if !wf.Status.Finished() || wf.EndTime == nil || wf.EndTime.After(cutoff) {
			continue
		}
		delete(e.workflows, id)
		for aid, a := range e.assignments {
			if a.WorkflowID == id {
				delete(e.assignments, aid)
			}
		}
		for xid, x := range e.executions {
			if x.WorkflowID == id {
				delete(e.executions, xid)
			}
		}
		for eid, entry := range e.entries {
			if entry.WorkflowID == id {
				delete(e.entries, eid)
			}
		}
	}
}
