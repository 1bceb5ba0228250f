// Package prompts provides a read-through cache of prompt templates loaded
// from YAML files, keyed by logical task name.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/vibeman/internal/errs"
)

// KnownKeys lists the logical prompt names shipped with the distribution.
var KnownKeys = []string{
	"decomposition",
	"atomic_detection",
	"context_integration",
	"agent_system",
	"coordination",
	"escalation",
	"intent_recognition",
	"fallback",
}

// Record is one loaded prompt file.
type Record struct {
	// SystemPrompt is the generic prompt text, always present in a valid file.
	SystemPrompt string
	// KeyPrompt is the key-specific prompt (<key>_prompt), if present.
	KeyPrompt string
	// Version is the prompt file version string.
	Version string
	// LastUpdated is the file's declared update date.
	LastUpdated string
	// Compatibility lists model identifiers the prompt was written for.
	Compatibility []string
}

// Best returns the most specific prompt text: the key-specific prompt when
// present, otherwise the system prompt.
func (r *Record) Best() string {
	if r.KeyPrompt != "" {
		return r.KeyPrompt
	}
	return r.SystemPrompt
}

// Service loads and caches prompt records from a directory of YAML files.
type Service struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]*Record
}

// NewService creates a prompt service reading from dir.
func NewService(dir string) *Service {
	return &Service{
		dir:   dir,
		cache: make(map[string]*Record),
	}
}

// Directory returns the prompt directory path.
func (s *Service) Directory() string {
	return s.dir
}

// GetPrompt returns the most specific prompt for the key. A missing or
// malformed file falls back to the built-in prompt for the key.
func (s *Service) GetPrompt(key string) string {
	rec, err := s.load(key)
	if err != nil {
		return fallbackPrompt(key)
	}
	return rec.Best()
}

// GetPromptWithVariables returns the prompt for the key with {{name}}
// placeholders substituted from vars. Unknown placeholders are left intact.
func (s *Service) GetPromptWithVariables(key string, vars map[string]string) string {
	prompt := s.GetPrompt(key)
	for name, value := range vars {
		prompt = strings.ReplaceAll(prompt, "{{"+name+"}}", value)
	}
	return prompt
}

// GetRecord returns the full loaded record for a key.
func (s *Service) GetRecord(key string) (*Record, error) {
	return s.load(key)
}

// ReloadPrompt drops the cached record for a key and reads it again.
func (s *Service) ReloadPrompt(key string) error {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	_, err := s.load(key)
	return err
}

// ClearCache drops all cached records.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*Record)
}

// GetAvailablePromptTypes lists the prompt keys present on disk.
func (s *Service) GetAvailablePromptTypes() []string {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".yaml"))
	}
	return keys
}

// ValidateAllPrompts checks every on-disk prompt file for the required
// fields: system_prompt, version, and compatibility. It returns a map of
// key to validation error for files that fail.
func (s *Service) ValidateAllPrompts() map[string]error {
	failures := make(map[string]error)
	for _, key := range s.GetAvailablePromptTypes() {
		rec, err := s.load(key)
		if err != nil {
			failures[key] = err
			continue
		}
		switch {
		case rec.SystemPrompt == "":
			failures[key] = errs.E(errs.KindValidation, "prompts.Validate", "missing system_prompt")
		case rec.Version == "":
			failures[key] = errs.E(errs.KindValidation, "prompts.Validate", "missing version")
		case len(rec.Compatibility) == 0:
			failures[key] = errs.E(errs.KindValidation, "prompts.Validate", "missing compatibility")
		}
	}
	return failures
}

// invalidate drops a single key from the cache. Used by the watcher.
func (s *Service) invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
}

// load returns the cached record for key, reading the YAML file on miss.
func (s *Service) load(key string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	path := filepath.Join(s.dir, key+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.E(errs.KindNotFound, "prompts.load", "prompt file "+path)
		}
		return nil, errs.Wrap(errs.KindSystem, "prompts.load", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrapf(errs.KindParsing, "prompts.load", err, "prompt file %s", path)
	}

	rec = &Record{
		SystemPrompt: stringField(raw, "system_prompt"),
		KeyPrompt:    stringField(raw, key+"_prompt"),
		Version:      stringField(raw, "version"),
		LastUpdated:  stringField(raw, "last_updated"),
	}
	if compat, ok := raw["compatibility"].([]interface{}); ok {
		for _, c := range compat {
			if str, ok := c.(string); ok {
				rec.Compatibility = append(rec.Compatibility, str)
			}
		}
	}

	s.mu.Lock()
	s.cache[key] = rec
	s.mu.Unlock()
	return rec, nil
}

func stringField(raw map[string]interface{}, name string) string {
	if v, ok := raw[name].(string); ok {
		return v
	}
	return ""
}

// fallbackPrompt returns the built-in prompt for a key.
func fallbackPrompt(key string) string {
	if p, ok := builtinPrompts[key]; ok {
		return p
	}
	return fmt.Sprintf(genericFallback, key)
}
