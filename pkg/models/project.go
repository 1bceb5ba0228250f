// Package models defines the shared entity types for the task manager:
// projects, epics, tasks, dependencies, schedules, agents, and workflows.
package models

import "time"

// ProjectStatus represents the current state of a project.
type ProjectStatus string

const (
	// ProjectStatusActive indicates the project is being worked on.
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusPaused indicates work on the project is suspended.
	ProjectStatusPaused ProjectStatus = "paused"
	// ProjectStatusCompleted indicates all work is finished.
	ProjectStatusCompleted ProjectStatus = "completed"
	// ProjectStatusArchived indicates the project is retained for history only.
	ProjectStatusArchived ProjectStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusPaused, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	default:
		return false
	}
}

// Project is the top-level grouping of epics and tasks.
type Project struct {
	// ID is the unique identifier for this project.
	ID string `json:"id" yaml:"id"`
	// Name is the human-readable project name.
	Name string `json:"name" yaml:"name"`
	// Description provides detail about the project goal.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// RootPath is the filesystem root of the project's codebase.
	RootPath string `json:"root_path,omitempty" yaml:"root_path,omitempty"`
	// Status is the current state of the project.
	Status ProjectStatus `json:"status" yaml:"status"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// UpdatedAt is when the project was last modified.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks required project fields.
func (p *Project) Validate() error {
	switch {
	case p.ID == "":
		return &FieldError{Entity: "project", Field: "id"}
	case p.Name == "":
		return &FieldError{Entity: "project", Field: "name", ID: p.ID}
	case !p.Status.Valid():
		return &FieldError{Entity: "project", Field: "status", ID: p.ID}
	}
	return nil
}

// EpicStatus represents the current state of an epic.
type EpicStatus string

const (
	// EpicStatusPending indicates no tasks have started.
	EpicStatusPending EpicStatus = "pending"
	// EpicStatusInProgress indicates at least one task has started.
	EpicStatusInProgress EpicStatus = "in_progress"
	// EpicStatusCompleted indicates all tasks completed.
	EpicStatusCompleted EpicStatus = "completed"
	// EpicStatusBlocked indicates the epic cannot proceed.
	EpicStatusBlocked EpicStatus = "blocked"
)

// Valid returns true if the status is a known value.
func (s EpicStatus) Valid() bool {
	switch s {
	case EpicStatusPending, EpicStatusInProgress, EpicStatusCompleted, EpicStatusBlocked:
		return true
	default:
		return false
	}
}

// Epic is a named grouping of related tasks under a project.
type Epic struct {
	// ID is the unique identifier for this epic.
	ID string `json:"id" yaml:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id" yaml:"project_id"`
	// Title is the short description of the epic.
	Title string `json:"title" yaml:"title"`
	// Description provides detail about the epic scope.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Status is the current state of the epic.
	Status EpicStatus `json:"status" yaml:"status"`
	// Priority is the urgency of the epic.
	Priority Priority `json:"priority" yaml:"priority"`
	// EstimatedHours is the rolled-up estimate across tasks.
	EstimatedHours float64 `json:"estimated_hours" yaml:"estimated_hours"`
	// TaskIDs lists the tasks belonging to this epic.
	TaskIDs []string `json:"task_ids,omitempty" yaml:"task_ids,omitempty"`
	// Dependencies lists epic IDs this epic waits on.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// CreatedAt is when the epic was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// UpdatedAt is when the epic was last modified.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Validate checks required epic fields.
func (e *Epic) Validate() error {
	switch {
	case e.ID == "":
		return &FieldError{Entity: "epic", Field: "id"}
	case e.ProjectID == "":
		return &FieldError{Entity: "epic", Field: "project_id", ID: e.ID}
	case e.Title == "":
		return &FieldError{Entity: "epic", Field: "title", ID: e.ID}
	case !e.Status.Valid():
		return &FieldError{Entity: "epic", Field: "status", ID: e.ID}
	}
	return nil
}
