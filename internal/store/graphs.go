package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// GraphSnapshot is the persisted form of a project's dependency graph.
type GraphSnapshot struct {
	ProjectID string               `json:"projectId"`
	SavedAt   time.Time            `json:"savedAt"`
	TaskIDs   []string             `json:"taskIds"`
	Edges     []*models.Dependency `json:"edges"`
}

func (s *Store) graphPath(projectID string) string {
	return filepath.Join(s.dataDir, graphsDir, projectID+".json")
}

// SaveGraphSnapshot persists a project's dependency graph.
func (s *Store) SaveGraphSnapshot(snapshot *GraphSnapshot) error {
	if snapshot.ProjectID == "" {
		return errs.E(errs.KindValidation, "store.SaveGraphSnapshot", "missing project id")
	}
	snapshot.SavedAt = time.Now()
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSystem, "store.SaveGraphSnapshot", err)
	}
	return writeFileAtomic(s.graphPath(snapshot.ProjectID), append(data, '\n'))
}

// GetGraphSnapshot loads a project's dependency graph snapshot.
func (s *Store) GetGraphSnapshot(projectID string) (*GraphSnapshot, error) {
	data, err := os.ReadFile(s.graphPath(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.E(errs.KindNotFound, "store.GetGraphSnapshot", "graph for project "+projectID)
		}
		return nil, errs.Wrap(errs.KindSystem, "store.GetGraphSnapshot", err)
	}
	var snapshot GraphSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errs.Wrapf(errs.KindParsing, "store.GetGraphSnapshot", err, "corrupt graph snapshot %s", projectID)
	}
	return &snapshot, nil
}

// DeleteGraphSnapshot removes a project's graph snapshot.
func (s *Store) DeleteGraphSnapshot(projectID string) error {
	path := s.graphPath(projectID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return errs.E(errs.KindNotFound, "store.DeleteGraphSnapshot", "graph for project "+projectID)
	}
	if err := removeFile(path); err != nil {
		return errs.Wrap(errs.KindSystem, "store.DeleteGraphSnapshot", err)
	}
	return nil
}
