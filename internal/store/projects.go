package store

import (
	"strings"
	"time"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// CreateProject persists a new project. It fails with an already-exists
// error when the id is taken.
func (s *Store) CreateProject(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.CreateProject", err)
	}
	release := s.locks.acquire("project:" + project.ID)
	defer release()

	if s.entityExists(projectsDir, project.ID) {
		return errs.E(errs.KindAlreadyExists, "store.CreateProject", "project "+project.ID)
	}
	if err := s.writeEntity(projectsDir, project.ID, project); err != nil {
		return err
	}
	return s.indexAdd(projectsDir, projectSummary(project))
}

func projectSummary(p *models.Project) indexEntry {
	return indexEntry{ID: p.ID, Name: p.Name, Status: string(p.Status)}
}

// GetProject loads a project by id.
func (s *Store) GetProject(id string) (*models.Project, error) {
	var project models.Project
	if err := s.readEntity(projectsDir, id, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject overwrites an existing project.
func (s *Store) UpdateProject(project *models.Project) error {
	if err := project.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.UpdateProject", err)
	}
	release := s.locks.acquire("project:" + project.ID)
	defer release()

	if !s.entityExists(projectsDir, project.ID) {
		return errs.E(errs.KindNotFound, "store.UpdateProject", "project "+project.ID)
	}
	project.UpdatedAt = time.Now()
	if err := s.writeEntity(projectsDir, project.ID, project); err != nil {
		return err
	}
	return s.indexAdd(projectsDir, projectSummary(project))
}

// DeleteProject removes a project and cascades: its epics, its tasks, the
// dependencies between them, and the project's dependency graph snapshot,
// in that order.
func (s *Store) DeleteProject(id string) error {
	release := s.locks.acquire("project:" + id)
	defer release()

	if !s.entityExists(projectsDir, id) {
		return errs.E(errs.KindNotFound, "store.DeleteProject", "project "+id)
	}

	epics, err := s.ListEpics(id)
	if err != nil {
		return err
	}
	for _, epic := range epics {
		if err := s.removeEpic(epic.ID); err != nil && errs.KindOf(err) != errs.KindNotFound {
			return err
		}
	}

	tasks, err := s.ListTasks(id)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if err := s.removeTask(task.ID); err != nil && errs.KindOf(err) != errs.KindNotFound {
			return err
		}
	}

	deps, err := s.ListDependencies(id)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := s.removeDependency(dep.ID); err != nil && errs.KindOf(err) != errs.KindNotFound {
			return err
		}
	}

	if err := s.DeleteGraphSnapshot(id); err != nil && errs.KindOf(err) != errs.KindNotFound {
		return err
	}

	if err := removeFile(s.entityPath(projectsDir, id)); err != nil {
		return errs.Wrap(errs.KindSystem, "store.DeleteProject", err)
	}
	s.debugLog("deleted project %s with %d epics, %d tasks, %d dependencies",
		id, len(epics), len(tasks), len(deps))
	return s.indexRemove(projectsDir, id)
}

// ProjectExists probes for a project id.
func (s *Store) ProjectExists(id string) bool {
	return s.entityExists(projectsDir, id)
}

// ListProjects returns all projects in index order. Entities missing from
// disk despite an index entry are skipped.
func (s *Store) ListProjects() ([]*models.Project, error) {
	ids, err := s.readIndex(projectsDir)
	if err != nil {
		return nil, err
	}
	projects := make([]*models.Project, 0, len(ids))
	for _, id := range ids {
		project, err := s.GetProject(id)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				continue
			}
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, nil
}

// SearchProjects returns projects whose name, description, or tags contain
// the query, case-insensitively.
func (s *Store) SearchProjects(query string) ([]*models.Project, error) {
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(query)
	var matched []*models.Project
	for _, p := range projects {
		if matchesQuery(query, p.Name, p.Description, p.Tags) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// matchesQuery checks a case-insensitive substring match against the given
// text fields and tags.
func matchesQuery(lowerQuery string, name, description string, tags []string) bool {
	if strings.Contains(strings.ToLower(name), lowerQuery) {
		return true
	}
	if strings.Contains(strings.ToLower(description), lowerQuery) {
		return true
	}
	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}
