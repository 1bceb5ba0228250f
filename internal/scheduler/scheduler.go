// Package scheduler turns a set of pending tasks plus their dependency
// graph into an ordered plan of parallel execution batches.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/graph"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// ErrEmptySchedule is returned when there are no schedulable tasks.
var ErrEmptySchedule = errors.New("no tasks to schedule")

// InvalidTaskError reports a task that failed validation before any
// allocation was attempted.
type InvalidTaskError struct {
	TaskID string
	Reason error
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %s: %v", e.TaskID, e.Reason)
}

func (e *InvalidTaskError) Unwrap() error { return e.Reason }

// minScheduledHours is the synthetic minimum applied to zero-hour estimates
// so ordering survives without collapsing the timeline.
const minScheduledHours = 0.01

// Scheduler produces schedules from tasks and a dependency graph.
type Scheduler struct {
	cfg      config.SchedulingConfig
	agents   []*models.Agent
	debugLog func(format string, args ...interface{})
	// now is injectable for deterministic timelines in tests.
	now func() time.Time
}

// New creates a scheduler with the given settings.
func New(cfg config.SchedulingConfig) *Scheduler {
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = 8
	}
	if cfg.MaxMemoryMB <= 0 {
		cfg.MaxMemoryMB = 4096
	}
	if cfg.MaxCPUUtilization <= 0 {
		cfg.MaxCPUUtilization = 0.8
	}
	return &Scheduler{
		cfg:      cfg,
		debugLog: func(string, ...interface{}) {},
		now:      time.Now,
	}
}

// SetDebugLog installs a debug logging function.
func (s *Scheduler) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// SetClock overrides the scheduler clock.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GenerateSchedule plans the pending tasks onto parallel batches using the
// configured algorithm. Tasks sitting on a dependency cycle are excluded
// from batches and reported in the schedule's cycle diagnostic instead of
// failing the whole schedule. The input tasks are never mutated.
func (s *Scheduler) GenerateSchedule(tasks []*models.Task, g *graph.DependencyGraph, projectID string) (*models.Schedule, error) {
	return s.GenerateScheduleWith(tasks, g, projectID, models.SchedulingAlgorithm(s.cfg.Algorithm))
}

// GenerateScheduleWith is GenerateSchedule with an explicit algorithm.
func (s *Scheduler) GenerateScheduleWith(tasks []*models.Task, g *graph.DependencyGraph, projectID string, algorithm models.SchedulingAlgorithm) (*models.Schedule, error) {
	if len(tasks) == 0 {
		return nil, ErrEmptySchedule
	}
	if !algorithm.Valid() {
		algorithm = models.AlgorithmHybridOptimal
	}

	byID := make(map[string]*models.Task, len(tasks))
	var pending []*models.Task
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return nil, &InvalidTaskError{TaskID: task.ID, Reason: err}
		}
		byID[task.ID] = task
		if task.Status == models.TaskStatusPending {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return nil, ErrEmptySchedule
	}

	cyclic := make(map[string]bool)
	for _, id := range g.CycleMembers() {
		cyclic[id] = true
	}

	scores := s.scoreTasks(pending, g, algorithm)

	layers := g.TopologicalLayers()
	start := s.now()
	schedule := &models.Schedule{
		ID:             uuid.New().String()[:8],
		ProjectID:      projectID,
		Algorithm:      algorithm,
		ScheduledTasks: make(map[string]*models.ScheduledTask),
		GeneratedAt:    start,
	}
	for id := range cyclic {
		if _, ok := byID[id]; ok {
			schedule.CycleDiagnostic = append(schedule.CycleDiagnostic, id)
		}
	}
	sort.Strings(schedule.CycleDiagnostic)

	batchStart := start
	batchIndex := 0
	for _, layer := range layers {
		members := make([]*models.Task, 0, len(layer))
		for _, id := range layer {
			task, ok := byID[id]
			if !ok || task.Status != models.TaskStatusPending || cyclic[id] {
				continue
			}
			members = append(members, task)
		}
		if len(members) == 0 {
			continue
		}

		// Highest total score first; ties broken by id for stability.
		sort.SliceStable(members, func(i, j int) bool {
			si, sj := scores[members[i].ID].TotalScore, scores[members[j].ID].TotalScore
			if si != sj {
				return si > sj
			}
			return members[i].ID < members[j].ID
		})

		for len(members) > 0 {
			batch, rest := s.packBatch(members)
			members = rest
			batchIndex++

			b := &models.ExecutionBatch{BatchID: fmt.Sprintf("batch-%03d", batchIndex)}
			batchEnd := batchStart
			for _, task := range batch {
				hours := task.EstimatedHours
				if hours <= 0 {
					hours = minScheduledHours
				}
				end := batchStart.Add(models.HoursToDuration(hours))
				if end.After(batchEnd) {
					batchEnd = end
				}
				schedule.ScheduledTasks[task.ID] = &models.ScheduledTask{
					Task:              task,
					ScheduledStart:    batchStart,
					ScheduledEnd:      end,
					AssignedResources: s.allocationFor(task),
					Metadata:          scores[task.ID],
					BatchID:           b.BatchID,
				}
				b.TaskIDs = append(b.TaskIDs, task.ID)
			}
			schedule.ExecutionBatches = append(schedule.ExecutionBatches, b)
			batchStart = batchEnd
		}
	}

	if len(schedule.ScheduledTasks) == 0 {
		return nil, ErrEmptySchedule
	}

	s.fillTimeline(schedule, g, start)
	s.fillUtilization(schedule)
	s.debugLog("schedule %s: %d tasks in %d batches, %d on cycles",
		schedule.ID, len(schedule.ScheduledTasks), len(schedule.ExecutionBatches), len(schedule.CycleDiagnostic))
	return schedule, nil
}

// packBatch takes the highest-scored prefix of members that fits the
// resource envelope and concurrency cap, returning it and the remainder.
func (s *Scheduler) packBatch(members []*models.Task) (batch, rest []*models.Task) {
	var memoryMB int
	var cpu float64
	for i, task := range members {
		alloc := s.allocationFor(task)
		if len(batch) >= s.cfg.MaxConcurrentTasks ||
			(len(batch) > 0 && (memoryMB+alloc.MemoryMB > s.cfg.MaxMemoryMB ||
				cpu+alloc.CPUWeight > s.cfg.MaxCPUUtilization)) {
			return batch, members[i:]
		}
		batch = append(batch, task)
		memoryMB += alloc.MemoryMB
		cpu += alloc.CPUWeight
	}
	return batch, nil
}

// allocationFor resolves a task's resource envelope from the per-type
// profile, clamped to the configured maxima.
func (s *Scheduler) allocationFor(task *models.Task) models.ResourceAllocation {
	profile, ok := s.cfg.ResourceProfiles[string(task.Type)]
	if !ok {
		profile = config.ResourceProfile{MemoryMB: 512, CPUWeight: 0.25, AgentCount: 1}
	}
	if profile.MemoryMB > s.cfg.MaxMemoryMB {
		profile.MemoryMB = s.cfg.MaxMemoryMB
	}
	if profile.CPUWeight > s.cfg.MaxCPUUtilization {
		profile.CPUWeight = s.cfg.MaxCPUUtilization
	}
	return models.ResourceAllocation{MemoryMB: profile.MemoryMB, CPUWeight: profile.CPUWeight}
}

func (s *Scheduler) fillTimeline(schedule *models.Schedule, g *graph.DependencyGraph, start time.Time) {
	var first, last time.Time
	var totalHours float64
	for _, st := range schedule.ScheduledTasks {
		if first.IsZero() || st.ScheduledStart.Before(first) {
			first = st.ScheduledStart
		}
		if st.ScheduledEnd.After(last) {
			last = st.ScheduledEnd
		}
		hours := st.Task.EstimatedHours
		if hours <= 0 {
			hours = minScheduledHours
		}
		totalHours += hours
	}

	timeline := models.Timeline{
		Start:        first,
		End:          last,
		CriticalPath: g.CriticalPath(),
	}
	timeline.TotalDuration = last.Sub(first)
	if timeline.TotalDuration > 0 {
		timeline.ParallelismFactor = totalHours / models.DurationToHours(timeline.TotalDuration)
	}
	schedule.Timeline = timeline
}

func (s *Scheduler) fillUtilization(schedule *models.Schedule) {
	var peakMemory int
	var cpuSum float64
	var widest int
	for _, batch := range schedule.ExecutionBatches {
		var memory int
		var cpu float64
		for _, id := range batch.TaskIDs {
			alloc := schedule.ScheduledTasks[id].AssignedResources
			memory += alloc.MemoryMB
			cpu += alloc.CPUWeight
		}
		if memory > peakMemory {
			peakMemory = memory
		}
		cpuSum += cpu
		if len(batch.TaskIDs) > widest {
			widest = len(batch.TaskIDs)
		}
	}

	util := models.ResourceUtilization{PeakMemoryMB: peakMemory}
	if n := len(schedule.ExecutionBatches); n > 0 {
		util.AverageCPUUtilization = cpuSum / float64(n)
	}
	if s.cfg.AvailableAgents > 0 {
		util.AgentUtilization = float64(widest) / float64(s.cfg.AvailableAgents)
		if util.AgentUtilization > 1 {
			util.AgentUtilization = 1
		}
	}
	if s.cfg.MaxMemoryMB > 0 {
		util.ResourceEfficiency = float64(peakMemory) / float64(s.cfg.MaxMemoryMB)
	}
	schedule.ResourceUtilization = util
}
