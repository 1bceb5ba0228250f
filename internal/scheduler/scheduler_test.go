package scheduler

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/graph"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

func schedulingConfig() config.SchedulingConfig {
	return config.Default().Scheduling
}

func pendingTask(id string, priority models.Priority, hours float64, deps ...string) *models.Task {
	return &models.Task{
		ID:             id,
		ProjectID:      "P1",
		Title:          "Task " + id,
		Type:           models.TaskTypeDevelopment,
		Priority:       priority,
		Status:         models.TaskStatusPending,
		EstimatedHours: hours,
		Dependencies:   deps,
	}
}

func buildGraph(t *testing.T, tasks []*models.Task) *graph.DependencyGraph {
	t.Helper()
	g := graph.New()
	if err := g.Build(tasks, nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func TestPriorityFirstScheduling(t *testing.T) {
	tasks := []*models.Task{
		pendingTask("T001", models.PriorityHigh, 1),
		pendingTask("T002", models.PriorityCritical, 1, "T001"),
		pendingTask("T003", models.PriorityMedium, 1, "T001"),
	}
	g := buildGraph(t, tasks)

	s := New(schedulingConfig())
	schedule, err := s.GenerateScheduleWith(tasks, g, "P1", models.AlgorithmPriorityFirst)
	if err != nil {
		t.Fatalf("GenerateScheduleWith: %v", err)
	}

	if len(schedule.ExecutionBatches) != 2 {
		t.Fatalf("got %d batches, want 2", len(schedule.ExecutionBatches))
	}
	first, second := schedule.ExecutionBatches[0], schedule.ExecutionBatches[1]
	if len(first.TaskIDs) != 1 || first.TaskIDs[0] != "T001" {
		t.Errorf("first batch = %v, want [T001]", first.TaskIDs)
	}
	if len(second.TaskIDs) != 2 {
		t.Fatalf("second batch = %v, want 2 tasks", second.TaskIDs)
	}
	if second.TaskIDs[0] != "T002" || second.TaskIDs[1] != "T003" {
		t.Errorf("second batch order = %v, want T002 before T003", second.TaskIDs)
	}
}

func TestBatchStartsAfterPredecessors(t *testing.T) {
	tasks := []*models.Task{
		pendingTask("A", models.PriorityMedium, 2),
		pendingTask("B", models.PriorityMedium, 1),
		pendingTask("C", models.PriorityMedium, 1, "A", "B"),
	}
	g := buildGraph(t, tasks)

	s := New(schedulingConfig())
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return start })

	schedule, err := s.GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}

	endA := schedule.ScheduledTasks["A"].ScheduledEnd
	endB := schedule.ScheduledTasks["B"].ScheduledEnd
	startC := schedule.ScheduledTasks["C"].ScheduledStart
	if startC.Before(endA) || startC.Before(endB) {
		t.Errorf("C starts %v before its dependencies end (%v, %v)", startC, endA, endB)
	}
	if got := schedule.ScheduledTasks["A"].ScheduledEnd.Sub(schedule.ScheduledTasks["A"].ScheduledStart); got != 2*time.Hour {
		t.Errorf("A duration = %v, want 2h", got)
	}
}

func TestEmptyTaskList(t *testing.T) {
	s := New(schedulingConfig())
	if _, err := s.GenerateSchedule(nil, graph.New(), "P1"); !errors.Is(err, ErrEmptySchedule) {
		t.Errorf("err = %v, want ErrEmptySchedule", err)
	}

	// All tasks already completed also yields an empty schedule.
	done := pendingTask("T1", models.PriorityMedium, 1)
	done.Status = models.TaskStatusCompleted
	tasks := []*models.Task{done}
	g := buildGraph(t, tasks)
	if _, err := s.GenerateSchedule(tasks, g, "P1"); !errors.Is(err, ErrEmptySchedule) {
		t.Errorf("err = %v, want ErrEmptySchedule", err)
	}
}

func TestInvalidTaskRejectedBeforeAllocation(t *testing.T) {
	invalid := pendingTask("T1", models.PriorityMedium, 1)
	invalid.Title = ""
	tasks := []*models.Task{invalid}

	s := New(schedulingConfig())
	_, err := s.GenerateSchedule(tasks, graph.New(), "P1")
	var ite *InvalidTaskError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want InvalidTaskError", err)
	}
	if ite.TaskID != "T1" {
		t.Errorf("TaskID = %q", ite.TaskID)
	}
}

func TestCycleProducesDiagnosticNotFailure(t *testing.T) {
	tasks := []*models.Task{
		pendingTask("A", models.PriorityMedium, 1),
		pendingTask("B", models.PriorityMedium, 1),
		pendingTask("C", models.PriorityMedium, 1),
	}
	g := graph.New()
	for _, task := range tasks {
		if err := g.AddTask(task); err != nil {
			t.Fatal(err)
		}
	}
	// Insert a cycle between B and C without the incremental check by
	// building over the existing nodes with raw edges.
	deps := []*models.Dependency{
		{ID: "D1", From: "B", To: "C", Type: models.DependencyBlocks, Weight: 1, Hard: true},
		{ID: "D2", From: "C", To: "B", Type: models.DependencyBlocks, Weight: 1, Hard: true},
	}
	if err := g.Build(tasks, deps); !errors.Is(err, graph.ErrCycleDetected) {
		t.Fatalf("Build err = %v, want cycle", err)
	}

	s := New(schedulingConfig())
	schedule, err := s.GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(schedule.CycleDiagnostic) != 2 {
		t.Errorf("CycleDiagnostic = %v, want B and C", schedule.CycleDiagnostic)
	}
	for _, batch := range schedule.ExecutionBatches {
		for _, id := range batch.TaskIDs {
			if id == "B" || id == "C" {
				t.Errorf("cyclic task %s was batched", id)
			}
		}
	}
	if _, ok := schedule.ScheduledTasks["A"]; !ok {
		t.Errorf("acyclic task A missing from schedule")
	}
}

func TestZeroHoursGetSyntheticMinimum(t *testing.T) {
	tasks := []*models.Task{pendingTask("T1", models.PriorityMedium, 0)}
	g := buildGraph(t, tasks)

	s := New(schedulingConfig())
	schedule, err := s.GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	st := schedule.ScheduledTasks["T1"]
	if !st.ScheduledEnd.After(st.ScheduledStart) {
		t.Errorf("zero-hour task has a collapsed window")
	}
}

func TestConcurrencyCapSplitsWideLayers(t *testing.T) {
	cfg := schedulingConfig()
	cfg.MaxConcurrentTasks = 4
	cfg.MaxCPUUtilization = 1.0
	var tasks []*models.Task
	for i := 0; i < 10; i++ {
		tasks = append(tasks, pendingTask(fmt.Sprintf("T%02d", i), models.PriorityMedium, 1))
	}
	g := buildGraph(t, tasks)

	schedule, err := New(cfg).GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(schedule.ExecutionBatches) != 3 {
		t.Fatalf("got %d batches, want 3 (4+4+2)", len(schedule.ExecutionBatches))
	}
	for _, batch := range schedule.ExecutionBatches {
		if len(batch.TaskIDs) > 4 {
			t.Errorf("batch %s exceeds cap: %v", batch.BatchID, batch.TaskIDs)
		}
	}
}

func TestChainSchedulesSequentially(t *testing.T) {
	var tasks []*models.Task
	for i := 0; i < 100; i++ {
		var deps []string
		if i > 0 {
			deps = []string{fmt.Sprintf("T%03d", i-1)}
		}
		tasks = append(tasks, pendingTask(fmt.Sprintf("T%03d", i), models.PriorityMedium, 1, deps...))
	}
	g := buildGraph(t, tasks)

	schedule, err := New(schedulingConfig()).GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if len(schedule.ExecutionBatches) != 100 {
		t.Errorf("chain of 100 gave %d batches", len(schedule.ExecutionBatches))
	}
	// A pure chain has no parallelism.
	if pf := schedule.Timeline.ParallelismFactor; pf < 0.99 || pf > 1.01 {
		t.Errorf("ParallelismFactor = %v, want ~1", pf)
	}
}

func TestStarPrioritizesHub(t *testing.T) {
	hub := pendingTask("HUB", models.PriorityMedium, 1)
	tasks := []*models.Task{hub}
	for i := 0; i < 100; i++ {
		tasks = append(tasks, pendingTask(fmt.Sprintf("L%03d", i), models.PriorityMedium, 1, "HUB"))
	}
	g := buildGraph(t, tasks)

	s := New(schedulingConfig())
	scores := s.scoreTasks(tasks, g, models.AlgorithmHybridOptimal)
	if scores["HUB"].DependencyScore != 1 {
		t.Errorf("hub DependencyScore = %v, want 1 (all leaves downstream)", scores["HUB"].DependencyScore)
	}
	if scores["L000"].DependencyScore != 0 {
		t.Errorf("leaf DependencyScore = %v, want 0", scores["L000"].DependencyScore)
	}

	schedule, err := s.GenerateSchedule(tasks, g, "P1")
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	if schedule.ExecutionBatches[0].TaskIDs[0] != "HUB" {
		t.Errorf("hub not scheduled first: %v", schedule.ExecutionBatches[0].TaskIDs)
	}
}

func TestDeadlineScore(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	overdue := now.Add(-time.Hour)
	soon := now.Add(12 * time.Hour)
	far := now.Add(30 * 24 * time.Hour)

	none := deadlineScore(&models.Task{}, now)
	if none != 0.5 {
		t.Errorf("no deadline = %v, want neutral 0.5", none)
	}
	if got := deadlineScore(&models.Task{Deadline: &overdue}, now); got != 1 {
		t.Errorf("overdue = %v, want 1", got)
	}
	soonScore := deadlineScore(&models.Task{Deadline: &soon}, now)
	farScore := deadlineScore(&models.Task{Deadline: &far}, now)
	if soonScore <= farScore {
		t.Errorf("deadline score not monotone: soon %v <= far %v", soonScore, farScore)
	}
}

func TestBusinessImpactTagBoost(t *testing.T) {
	plain := pendingTask("T1", models.PriorityMedium, 1)
	tagged := pendingTask("T2", models.PriorityMedium, 1)
	tagged.Tags = []string{"security"}
	if businessImpactScore(tagged) <= businessImpactScore(plain) {
		t.Errorf("security tag did not boost the score")
	}
}

func TestAgentAvailabilityScore(t *testing.T) {
	s := New(schedulingConfig())
	task := pendingTask("T1", models.PriorityMedium, 1)

	if got := s.agentAvailabilityScore(task); got != 1 {
		t.Errorf("no pool = %v, want neutral 1", got)
	}

	s.SetAgentPool([]*models.Agent{
		{ID: "a1", Capabilities: []models.Capability{models.CapabilityTaskExecution, models.CapabilityCodeGeneration}},
		{ID: "a2", Capabilities: []models.Capability{models.CapabilityResearch}},
	})
	if got := s.agentAvailabilityScore(task); got != 0.5 {
		t.Errorf("availability = %v, want 0.5", got)
	}
}
