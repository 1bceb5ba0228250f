// Package store persists projects, epics, tasks, and dependencies as one
// YAML file per entity, with JSON index files as the authoritative listing.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/vibeman/internal/errs"
)

const (
	projectsDir     = "projects"
	epicsDir        = "epics"
	tasksDir        = "tasks"
	dependenciesDir = "dependencies"
	graphsDir       = "dependency-graphs"
)

var entityDirs = []string{projectsDir, epicsDir, tasksDir, dependenciesDir, graphsDir}

// Store is a file-backed entity store rooted at a data directory.
type Store struct {
	dataDir  string
	locks    *lockManager
	debugLog func(format string, args ...interface{})
}

// New creates a store rooted at dataDir. Call Initialize before use.
func New(dataDir string) *Store {
	return &Store{
		dataDir:  dataDir,
		locks:    newLockManager(),
		debugLog: func(string, ...interface{}) {},
	}
}

// SetDebugLog installs a debug logging function.
func (s *Store) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		s.debugLog = fn
	}
}

// DataDir returns the store's root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Initialize ensures the entity directories and empty index files exist.
// It is idempotent: existing directories and indexes are left alone.
func (s *Store) Initialize() error {
	for _, dir := range entityDirs {
		if err := os.MkdirAll(filepath.Join(s.dataDir, dir), 0755); err != nil {
			return errs.Wrap(errs.KindSystem, "store.Initialize", err)
		}
	}
	for _, dir := range []string{projectsDir, epicsDir, tasksDir, dependenciesDir} {
		path := s.indexPath(dir)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := s.writeIndexFile(dir, &indexFile{Entities: []indexEntry{}}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) entityPath(dir, id string) string {
	return filepath.Join(s.dataDir, dir, id+".yaml")
}

// Index files sit at the data directory root, as siblings of the entity
// directories: <dataDir>/projects-index.json and so on.
func (s *Store) indexPath(dir string) string {
	return filepath.Join(s.dataDir, dir+"-index.json")
}

// writeEntity marshals an entity to YAML and writes it with temp-rename
// semantics so readers never observe a half-written file.
func (s *Store) writeEntity(dir, id string, entity interface{}) error {
	data, err := yaml.Marshal(entity)
	if err != nil {
		return errs.Wrap(errs.KindSystem, "store.writeEntity", err)
	}
	return writeFileAtomic(s.entityPath(dir, id), data)
}

// readEntity unmarshals an entity file into out.
func (s *Store) readEntity(dir, id string, out interface{}) error {
	data, err := os.ReadFile(s.entityPath(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return errs.E(errs.KindNotFound, "store.readEntity", dir+"/"+id)
		}
		return errs.Wrap(errs.KindSystem, "store.readEntity", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errs.Wrapf(errs.KindParsing, "store.readEntity", err, "corrupt entity %s/%s", dir, id)
	}
	return nil
}

// entityExists reports whether an entity file is present.
func (s *Store) entityExists(dir, id string) bool {
	_, err := os.Stat(s.entityPath(dir, id))
	return err == nil
}

// indexVersion is the index file schema version.
const indexVersion = 1

// indexEntry is the per-entity summary line kept in an index file.
type indexEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// indexFile is the JSON envelope of an entity index.
type indexFile struct {
	Entities    []indexEntry `json:"entities"`
	LastUpdated time.Time    `json:"lastUpdated"`
	Version     int          `json:"version"`
}

// readIndexFile loads the index envelope for an entity directory. A
// missing file yields an empty index.
func (s *Store) readIndexFile(dir string) (*indexFile, error) {
	data, err := os.ReadFile(s.indexPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return &indexFile{}, nil
		}
		return nil, errs.Wrap(errs.KindSystem, "store.readIndex", err)
	}
	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errs.Wrapf(errs.KindParsing, "store.readIndex", err, "corrupt index %s", dir)
	}
	return &idx, nil
}

// writeIndexFile stamps and replaces the index envelope.
func (s *Store) writeIndexFile(dir string, idx *indexFile) error {
	if idx.Entities == nil {
		idx.Entities = []indexEntry{}
	}
	idx.LastUpdated = time.Now()
	idx.Version = indexVersion
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSystem, "store.writeIndex", err)
	}
	return writeFileAtomic(s.indexPath(dir), append(data, '\n'))
}

// readIndex returns the id list for an entity directory.
func (s *Store) readIndex(dir string) ([]string, error) {
	idx, err := s.readIndexFile(dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(idx.Entities))
	for _, entry := range idx.Entities {
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

// indexAdd upserts an entity's summary line in the index.
func (s *Store) indexAdd(dir string, entry indexEntry) error {
	idx, err := s.readIndexFile(dir)
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range idx.Entities {
		if existing.ID == entry.ID {
			idx.Entities[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		idx.Entities = append(idx.Entities, entry)
	}
	return s.writeIndexFile(dir, idx)
}

// indexRemove drops an id from the index.
func (s *Store) indexRemove(dir, id string) error {
	idx, err := s.readIndexFile(dir)
	if err != nil {
		return err
	}
	kept := idx.Entities[:0]
	for _, existing := range idx.Entities {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	idx.Entities = kept
	return s.writeIndexFile(dir, idx)
}

// removeFile deletes a file, treating an already-missing file as success.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// lockManager hands out one mutex per resource identifier such as
// "task:<id>". Cascading operations always acquire in the fixed order
// project, epic, task, dependency to stay deadlock-free.
type lockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockManager() *lockManager {
	return &lockManager{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the named resource and returns its release function.
func (lm *lockManager) acquire(resource string) func() {
	lm.mu.Lock()
	l, ok := lm.locks[resource]
	if !ok {
		l = &sync.Mutex{}
		lm.locks[resource] = l
	}
	lm.mu.Unlock()

	l.Lock()
	return l.Unlock
}
