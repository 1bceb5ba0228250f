package store

import (
	"time"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// CreateEpic persists a new epic.
func (s *Store) CreateEpic(epic *models.Epic) error {
	if err := epic.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.CreateEpic", err)
	}
	release := s.locks.acquire("epic:" + epic.ID)
	defer release()

	if s.entityExists(epicsDir, epic.ID) {
		return errs.E(errs.KindAlreadyExists, "store.CreateEpic", "epic "+epic.ID)
	}
	if err := s.writeEntity(epicsDir, epic.ID, epic); err != nil {
		return err
	}
	return s.indexAdd(epicsDir, epicSummary(epic))
}

func epicSummary(e *models.Epic) indexEntry {
	return indexEntry{ID: e.ID, Name: e.Title, Status: string(e.Status)}
}

// GetEpic loads an epic by id.
func (s *Store) GetEpic(id string) (*models.Epic, error) {
	var epic models.Epic
	if err := s.readEntity(epicsDir, id, &epic); err != nil {
		return nil, err
	}
	return &epic, nil
}

// UpdateEpic overwrites an existing epic.
func (s *Store) UpdateEpic(epic *models.Epic) error {
	if err := epic.Validate(); err != nil {
		return errs.Wrap(errs.KindValidation, "store.UpdateEpic", err)
	}
	release := s.locks.acquire("epic:" + epic.ID)
	defer release()

	if !s.entityExists(epicsDir, epic.ID) {
		return errs.E(errs.KindNotFound, "store.UpdateEpic", "epic "+epic.ID)
	}
	epic.UpdatedAt = time.Now()
	if err := s.writeEntity(epicsDir, epic.ID, epic); err != nil {
		return err
	}
	return s.indexAdd(epicsDir, epicSummary(epic))
}

// DeleteEpic removes an epic by id.
func (s *Store) DeleteEpic(id string) error {
	if !s.entityExists(epicsDir, id) {
		return errs.E(errs.KindNotFound, "store.DeleteEpic", "epic "+id)
	}
	return s.removeEpic(id)
}

// removeEpic deletes the epic file and index entry under the epic's lock.
func (s *Store) removeEpic(id string) error {
	release := s.locks.acquire("epic:" + id)
	defer release()

	if err := removeFile(s.entityPath(epicsDir, id)); err != nil {
		return errs.Wrap(errs.KindSystem, "store.removeEpic", err)
	}
	return s.indexRemove(epicsDir, id)
}

// EpicExists probes for an epic id.
func (s *Store) EpicExists(id string) bool {
	return s.entityExists(epicsDir, id)
}

// ListEpics returns the epics of a project, or all epics when projectID is
// empty.
func (s *Store) ListEpics(projectID string) ([]*models.Epic, error) {
	ids, err := s.readIndex(epicsDir)
	if err != nil {
		return nil, err
	}
	epics := make([]*models.Epic, 0, len(ids))
	for _, id := range ids {
		epic, err := s.GetEpic(id)
		if err != nil {
			if errs.KindOf(err) == errs.KindNotFound {
				continue
			}
			return nil, err
		}
		if projectID != "" && epic.ProjectID != projectID {
			continue
		}
		epics = append(epics, epic)
	}
	return epics, nil
}
