package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return s
}

func testProject(id string) *models.Project {
	return &models.Project{
		ID:          id,
		Name:        "Demo project " + id,
		Description: "A web dashboard",
		Status:      models.ProjectStatusActive,
		Tags:        []string{"frontend"},
	}
}

func testTask(id, projectID string) *models.Task {
	return &models.Task{
		ID:             id,
		ProjectID:      projectID,
		Title:          "Task " + id,
		Type:           models.TaskTypeDevelopment,
		Priority:       models.PriorityMedium,
		Status:         models.TaskStatusPending,
		EstimatedHours: 0.2,
	}
}

func TestInitializeIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Initialize(); err != nil {
		t.Fatalf("first Initialize: %v", err)
	}

	// Seed some data, then re-initialize; nothing must be clobbered.
	if err := s.CreateProject(testProject("P1")); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	if _, err := s.GetProject("P1"); err != nil {
		t.Errorf("project lost after re-initialize: %v", err)
	}
}

func TestIndexFilesAtRootWithEnvelope(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := s.CreateProject(testProject("P1")); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	// Index files are siblings of the entity directories, not inside them.
	data, err := os.ReadFile(filepath.Join(dir, "projects-index.json"))
	if err != nil {
		t.Fatalf("projects-index.json not at the data dir root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "projects", "projects-index.json")); !os.IsNotExist(err) {
		t.Errorf("index file left inside the entity directory")
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		t.Fatalf("index envelope: %v", err)
	}
	if idx.Version != indexVersion {
		t.Errorf("index version = %d, want %d", idx.Version, indexVersion)
	}
	if idx.LastUpdated.IsZero() {
		t.Errorf("lastUpdated not stamped")
	}
	if len(idx.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(idx.Entities))
	}
	entry := idx.Entities[0]
	if entry.ID != "P1" || entry.Name != "Demo project P1" || entry.Status != "active" {
		t.Errorf("summary line = %+v", entry)
	}

	// Updating the entity refreshes its summary line in place.
	p, err := s.GetProject("P1")
	if err != nil {
		t.Fatal(err)
	}
	p.Status = models.ProjectStatusPaused
	if err := s.UpdateProject(p); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	idx2, err := s.readIndexFile(projectsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx2.Entities) != 1 || idx2.Entities[0].Status != "paused" {
		t.Errorf("summary after update = %+v", idx2.Entities)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	s := newStore(t)
	original := testProject("P1")
	if err := s.CreateProject(original); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	loaded, err := s.GetProject("P1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if loaded.Name != original.Name || loaded.Status != original.Status {
		t.Errorf("round trip mismatch: %+v vs %+v", loaded, original)
	}
	if len(loaded.Tags) != 1 || loaded.Tags[0] != "frontend" {
		t.Errorf("tags = %v", loaded.Tags)
	}
}

func TestCreateProjectAlreadyExists(t *testing.T) {
	s := newStore(t)
	if err := s.CreateProject(testProject("P1")); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	err := s.CreateProject(testProject("P1"))
	if errs.KindOf(err) != errs.KindAlreadyExists {
		t.Errorf("KindOf = %v, want already_exists", errs.KindOf(err))
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newStore(t)
	if _, err := s.GetProject("nope"); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("GetProject kind = %v, want not_found", errs.KindOf(err))
	}
	if _, err := s.GetTask("nope"); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("GetTask kind = %v, want not_found", errs.KindOf(err))
	}
	if err := s.DeleteProject("nope"); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("DeleteProject kind = %v, want not_found", errs.KindOf(err))
	}
	if err := s.DeleteTask("nope"); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("DeleteTask kind = %v, want not_found", errs.KindOf(err))
	}
}

func TestCorruptEntityIsParsing(t *testing.T) {
	s := newStore(t)
	if err := s.CreateTask(testTask("T1", "P1")); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	path := filepath.Join(s.DataDir(), "tasks", "T1.yaml")
	if err := os.WriteFile(path, []byte("{{{ not yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask("T1"); errs.KindOf(err) != errs.KindParsing {
		t.Errorf("KindOf = %v, want parsing", errs.KindOf(err))
	}
}

func TestUpdateTask(t *testing.T) {
	s := newStore(t)
	task := testTask("T1", "P1")
	if err := s.CreateTask(task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task.Status = models.TaskStatusInProgress
	task.ActualHours = 0.1
	if err := s.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	loaded, err := s.GetTask("T1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if loaded.Status != models.TaskStatusInProgress || loaded.ActualHours != 0.1 {
		t.Errorf("update not persisted: %+v", loaded)
	}

	if err := s.UpdateTask(testTask("missing", "P1")); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("updating a missing task should be not_found")
	}
}

func TestSearchProjectsAndTasks(t *testing.T) {
	s := newStore(t)
	p1 := testProject("P1")
	p1.Name = "Payments revamp"
	p2 := testProject("P2")
	p2.Name = "Internal tools"
	p2.Tags = []string{"billing"}
	for _, p := range []*models.Project{p1, p2} {
		if err := s.CreateProject(p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.SearchProjects("PAYMENT")
	if err != nil {
		t.Fatalf("SearchProjects: %v", err)
	}
	if len(got) != 1 || got[0].ID != "P1" {
		t.Errorf("SearchProjects(PAYMENT) = %v", got)
	}
	if got, _ := s.SearchProjects("billing"); len(got) != 1 || got[0].ID != "P2" {
		t.Errorf("tag search failed: %v", got)
	}

	t1 := testTask("T1", "P1")
	t1.Title = "Add checkout button"
	t2 := testTask("T2", "P2")
	t2.Title = "Add checkout metrics"
	for _, task := range []*models.Task{t1, t2} {
		if err := s.CreateTask(task); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.SearchTasks("checkout", "")
	if err != nil {
		t.Fatalf("SearchTasks: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unscoped search = %d tasks, want 2", len(all))
	}
	scoped, _ := s.SearchTasks("checkout", "P1")
	if len(scoped) != 1 || scoped[0].ID != "T1" {
		t.Errorf("scoped search = %v", scoped)
	}
}

func TestGetTasksByStatusAndPriority(t *testing.T) {
	s := newStore(t)
	t1 := testTask("T1", "P1")
	t2 := testTask("T2", "P1")
	t2.Status = models.TaskStatusCompleted
	t2.Priority = models.PriorityCritical
	for _, task := range []*models.Task{t1, t2} {
		if err := s.CreateTask(task); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := s.GetTasksByStatus("P1", models.TaskStatusPending)
	if err != nil {
		t.Fatalf("GetTasksByStatus: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "T1" {
		t.Errorf("pending = %v", pending)
	}
	critical, _ := s.GetTasksByPriority("P1", models.PriorityCritical)
	if len(critical) != 1 || critical[0].ID != "T2" {
		t.Errorf("critical = %v", critical)
	}
}

func TestDeleteTaskRemovesEdges(t *testing.T) {
	s := newStore(t)
	for _, id := range []string{"T1", "T2", "T3"} {
		if err := s.CreateTask(testTask(id, "P1")); err != nil {
			t.Fatal(err)
		}
	}
	deps := []*models.Dependency{
		{ID: "D1", ProjectID: "P1", From: "T2", To: "T1", Type: models.DependencyBlocks, Weight: 1, Hard: true},
		{ID: "D2", ProjectID: "P1", From: "T3", To: "T2", Type: models.DependencyBlocks, Weight: 1, Hard: true},
	}
	for _, d := range deps {
		if err := s.CreateDependency(d); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteTask("T1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	remaining, err := s.ListDependencies("P1")
	if err != nil {
		t.Fatalf("ListDependencies: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "D2" {
		t.Errorf("remaining deps = %v, want only D2", remaining)
	}
}

func TestProjectCascadeDelete(t *testing.T) {
	s := newStore(t)
	if err := s.CreateProject(testProject("P1")); err != nil {
		t.Fatal(err)
	}
	// Keep an unrelated project to prove the cascade is scoped.
	if err := s.CreateProject(testProject("P2")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTask(testTask("OTHER", "P2")); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 2; i++ {
		epic := &models.Epic{
			ID:        fmt.Sprintf("E%d", i),
			ProjectID: "P1",
			Title:     fmt.Sprintf("Epic %d", i),
			Status:    models.EpicStatusPending,
			Priority:  models.PriorityMedium,
		}
		if err := s.CreateEpic(epic); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i <= 10; i++ {
		if err := s.CreateTask(testTask(fmt.Sprintf("T%d", i), "P1")); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i <= 4; i++ {
		dep := &models.Dependency{
			ID:        fmt.Sprintf("D%d", i),
			ProjectID: "P1",
			From:      fmt.Sprintf("T%d", i+1),
			To:        fmt.Sprintf("T%d", i),
			Type:      models.DependencyBlocks,
			Weight:    1,
			Hard:      true,
		}
		if err := s.CreateDependency(dep); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.SaveGraphSnapshot(&GraphSnapshot{ProjectID: "P1", TaskIDs: []string{"T1"}}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteProject("P1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	if s.ProjectExists("P1") {
		t.Errorf("project file survived the cascade")
	}
	if epics, _ := s.ListEpics("P1"); len(epics) != 0 {
		t.Errorf("epics survived: %v", epics)
	}
	if tasks, _ := s.ListTasks("P1"); len(tasks) != 0 {
		t.Errorf("tasks survived: %v", tasks)
	}
	if deps, _ := s.ListDependencies("P1"); len(deps) != 0 {
		t.Errorf("dependencies survived: %v", deps)
	}
	if _, err := s.GetGraphSnapshot("P1"); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("graph snapshot survived")
	}

	// Index files hold none of the deleted ids.
	for _, dir := range []string{tasksDir, epicsDir, dependenciesDir} {
		ids, err := s.readIndex(dir)
		if err != nil {
			t.Fatalf("readIndex(%s): %v", dir, err)
		}
		for _, id := range ids {
			if id != "OTHER" {
				t.Errorf("index %s still lists %s", dir, id)
			}
		}
	}

	// The unrelated project is untouched.
	if !s.ProjectExists("P2") || !s.TaskExists("OTHER") {
		t.Errorf("cascade deleted entities outside the project")
	}
}

func TestGraphSnapshotRoundTrip(t *testing.T) {
	s := newStore(t)
	snap := &GraphSnapshot{
		ProjectID: "P1",
		TaskIDs:   []string{"T1", "T2"},
		Edges: []*models.Dependency{
			{ID: "D1", ProjectID: "P1", From: "T2", To: "T1", Type: models.DependencyBlocks, Weight: 1, Hard: true},
		},
	}
	if err := s.SaveGraphSnapshot(snap); err != nil {
		t.Fatalf("SaveGraphSnapshot: %v", err)
	}

	loaded, err := s.GetGraphSnapshot("P1")
	if err != nil {
		t.Fatalf("GetGraphSnapshot: %v", err)
	}
	if len(loaded.TaskIDs) != 2 || len(loaded.Edges) != 1 {
		t.Errorf("snapshot round trip: %+v", loaded)
	}
	if loaded.SavedAt.IsZero() {
		t.Errorf("SavedAt not stamped")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	for i := 0; i < 5; i++ {
		if err := s.CreateTask(testTask(fmt.Sprintf("T%d", i), "P1")); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(s.DataDir(), "tasks"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if len(e.Name()) > 4 && e.Name()[:4] == ".tmp" {
			t.Errorf("stray temp file %s", e.Name())
		}
	}
}
