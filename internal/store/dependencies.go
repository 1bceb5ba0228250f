package store

import (
	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// CreateDependency persists a new dependency edge.
func (s *Store) CreateDependency(dep *models.Dependency) error {
	if err := dep.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.CreateDependency", err)
	}
	release := s.locks.acquire("dependency:" + dep.ID)
	defer release()

	if s.entityExists(dependenciesDir, dep.ID) {
		return errs.E(errs.KindAlreadyExists, "store.CreateDependency", "dependency "+dep.ID)
	}
	if err := s.writeEntity(dependenciesDir, dep.ID, dep); err != nil {
		return err
	}
	return s.indexAdd(dependenciesDir, indexEntry{
		ID:   dep.ID,
		Name: dep.From + " -> " + dep.To,
	})
}

// GetDependency loads a dependency by id.
func (s *Store) GetDependency(id string) (*models.Dependency, error) {
	var dep models.Dependency
	if err := s.readEntity(dependenciesDir, id, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// DeleteDependency removes a dependency by id.
func (s *Store) DeleteDependency(id string) error {
	if !s.entityExists(dependenciesDir, id) {
		return errs.E(errs.KindNotFound, "store.DeleteDependency", "dependency "+id)
	}
	return s.removeDependency(id)
}

// removeDependency deletes the dependency file and index entry under its
// lock.
func (s *Store) removeDependency(id string) error {
	release := s.locks.acquire("dependency:" + id)
	defer release()

	if err := removeFile(s.entityPath(dependenciesDir, id)); err != nil {
		return errs.Wrap(errs.KindSystem, "store.removeDependency", err)
	}
	return s.indexRemove(dependenciesDir, id)
}

// DependencyExists probes for a dependency id.
func (s *Store) DependencyExists(id string) bool {
	return s.entityExists(dependenciesDir, id)
}

// ListDependencies returns the dependencies of a project, or all when
// projectID is empty.
func (s *Store) ListDependencies(projectID string) ([]*models.Dependency, error) {
	ids, err := s.readIndex(dependenciesDir)
	if err != nil {
		return nil, err
	}
	deps := make([]*models.Dependency, 0, len(ids))
	for _, id := range ids {
		dep, err := s.GetDependency(id)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				continue
			}
			return nil, err
		}
		if projectID != "" && dep.ProjectID != projectID {
			continue
		}
		deps = append(deps, dep)
	}
	return deps, nil
}
