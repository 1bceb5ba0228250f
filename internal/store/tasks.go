package store

import (
	"strings"
	"time"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// CreateTask persists a new task.
func (s *Store) CreateTask(task *models.Task) error {
	if err := task.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.CreateTask", err)
	}
	release := s.locks.acquire("task:" + task.ID)
	defer release()

	if s.entityExists(tasksDir, task.ID) {
		return errs.E(errs.KindAlreadyExists, "store.CreateTask", "task "+task.ID)
	}
	if err := s.writeEntity(tasksDir, task.ID, task); err != nil {
		return err
	}
	return s.indexAdd(tasksDir, taskSummary(task))
}

func taskSummary(t *models.Task) indexEntry {
	return indexEntry{ID: t.ID, Name: t.Title, Status: string(t.Status)}
}

// GetTask loads a task by id.
func (s *Store) GetTask(id string) (*models.Task, error) {
	var task models.Task
	if err := s.readEntity(tasksDir, id, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask overwrites an existing task.
func (s *Store) UpdateTask(task *models.Task) error {
	if err := task.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.UpdateTask", err)
	}
	release := s.locks.acquire("task:" + task.ID)
	defer release()

	if !s.entityExists(tasksDir, task.ID) {
		return errs.E(errs.KindNotFound, "store.UpdateTask", "task "+task.ID)
	}
	task.UpdatedAt = time.Now()
	if err := s.writeEntity(tasksDir, task.ID, task); err != nil {
		return err
	}
	return s.indexAdd(tasksDir, taskSummary(task))
}

// DeleteTask removes a task and every dependency edge referencing it.
func (s *Store) DeleteTask(id string) error {
	if !s.entityExists(tasksDir, id) {
		return errs.E(errs.KindNotFound, "store.DeleteTask", "task "+id)
	}

	deps, err := s.ListDependencies("")
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if dep.From == id || dep.To == id {
			if err := s.removeDependency(dep.ID); err != nil && errs.KindOf(err) != errs.KindNotFound {
				return err
			}
		}
	}
	return s.removeTask(id)
}

// removeTask deletes the task file and index entry under the task's lock.
func (s *Store) removeTask(id string) error {
	release := s.locks.acquire("task:" + id)
	defer release()

	if err := removeFile(s.entityPath(tasksDir, id)); err != nil {
		return errs.Wrap(errs.KindSystem, "store.removeTask", err)
	}
	return s.indexRemove(tasksDir, id)
}

// TaskExists probes for a task id.
func (s *Store) TaskExists(id string) bool {
	return s.entityExists(tasksDir, id)
}

// ListTasks returns the tasks of a project, or all tasks when projectID is
// empty.
func (s *Store) ListTasks(projectID string) ([]*models.Task, error) {
	ids, err := s.readIndex(tasksDir)
	if err != nil {
		return nil, err
	}
	tasks := make([]*models.Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.GetTask(id)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				continue
			}
			return nil, err
		}
		if projectID != "" && task.ProjectID != projectID {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SearchTasks returns tasks whose title, description, or tags contain the
// query, case-insensitively, optionally restricted to a project.
func (s *Store) SearchTasks(query, projectID string) ([]*models.Task, error) {
	tasks, err := s.ListTasks(projectID)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	var matched []*models.Task
	for _, t := range tasks {
		if matchesQuery(query, t.Title, t.Description, t.Tags) {
			matched = append(matched, t)
		}
	}
	return matched, nil
}

// GetTasksByStatus returns a project's tasks filtered by status.
func (s *Store) GetTasksByStatus(projectID string, status models.TaskStatus) ([]*models.Task, error) {
	tasks, err := s.ListTasks(projectID)
	if err != nil {
		return nil, err
	}
	var filtered []*models.Task
	for _, t := range tasks {
		if t.Status == status {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// GetTasksByPriority returns a project's tasks filtered by priority.
func (s *Store) GetTasksByPriority(projectID string, priority models.Priority) ([]*models.Task, error) {
	tasks, err := s.ListTasks(projectID)
	if err != nil {
		return nil, err
	}
	var filtered []*models.Task
	for _, t := range tasks {
		if t.Priority == priority {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}
