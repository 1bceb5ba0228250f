package models

import (
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates the task is being worked on.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusCompleted indicates the task completed successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusCancelled indicates the task was cancelled.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusBlocked, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	// TaskTypeDevelopment is feature or fix implementation work.
	TaskTypeDevelopment TaskType = "development"
	// TaskTypeTesting is test authoring or execution work.
	TaskTypeTesting TaskType = "testing"
	// TaskTypeDocumentation is documentation work.
	TaskTypeDocumentation TaskType = "documentation"
	// TaskTypeDeployment is release or infrastructure work.
	TaskTypeDeployment TaskType = "deployment"
	// TaskTypeResearch is investigation or spike work.
	TaskTypeResearch TaskType = "research"
	// TaskTypeReview is code or design review work.
	TaskTypeReview TaskType = "review"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeDevelopment, TaskTypeTesting, TaskTypeDocumentation,
		TaskTypeDeployment, TaskTypeResearch, TaskTypeReview:
		return true
	default:
		return false
	}
}

// Priority represents the urgency of a task or epic.
type Priority string

const (
	// PriorityLow is the lowest urgency.
	PriorityLow Priority = "low"
	// PriorityMedium is normal urgency.
	PriorityMedium Priority = "medium"
	// PriorityHigh is elevated urgency.
	PriorityHigh Priority = "high"
	// PriorityCritical is the highest urgency.
	PriorityCritical Priority = "critical"
)

// Valid returns true if the priority is a known value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Weight returns a numeric weight for ordering, higher is more urgent.
func (p Priority) Weight() float64 {
	switch p {
	case PriorityCritical:
		return 1.0
	case PriorityHigh:
		return 0.75
	case PriorityMedium:
		return 0.5
	case PriorityLow:
		return 0.25
	default:
		return 0.5
	}
}

// AtomicHoursThreshold is the estimated-hours ceiling for an atomic task.
const AtomicHoursThreshold = 0.25

// conjunctionTokens are words that signal a task bundles multiple actions.
var conjunctionTokens = []string{"and", "or", "then"}

// Task represents a unit of work in the system. A task is atomic when it
// is small enough for a single agent to complete in one short session; see
// IsAtomicCandidate for the structural criteria.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id" yaml:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id" yaml:"project_id"`
	// EpicID is the owning epic.
	EpicID string `json:"epic_id" yaml:"epic_id"`
	// Title is the short description of the task.
	Title string `json:"title" yaml:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Type classifies the work.
	Type TaskType `json:"type" yaml:"type"`
	// Priority is the urgency of the task.
	Priority Priority `json:"priority" yaml:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status" yaml:"status"`
	// EstimatedHours is the estimated effort in hours.
	EstimatedHours float64 `json:"estimated_hours" yaml:"estimated_hours"`
	// ActualHours is the recorded effort in hours, filled on completion.
	ActualHours float64 `json:"actual_hours,omitempty" yaml:"actual_hours,omitempty"`
	// FilePaths lists the files or components this task touches.
	FilePaths []string `json:"file_paths,omitempty" yaml:"file_paths,omitempty"`
	// AcceptanceCriteria defines the criteria for task completion.
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Dependents lists task IDs that wait on this task.
	Dependents []string `json:"dependents,omitempty" yaml:"dependents,omitempty"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Deadline is the optional due date used for deadline-driven scheduling.
	Deadline *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	// CreatedBy records who or what created the task.
	CreatedBy string `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	// BlockedReason explains why the task is blocked, if it is.
	BlockedReason string `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ContainsConjunction reports whether the task title or description contains
// one of the conjunction tokens ("and", "or", "then") as a whole word.
func (t *Task) ContainsConjunction() bool {
	text := strings.ToLower(t.Title + " " + t.Description)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		for _, tok := range conjunctionTokens {
			if w == tok {
				return true
			}
		}
	}
	return false
}

// IsAtomicCandidate applies the structural atomicity criteria: estimate at
// or under the threshold, no conjunction tokens, and exactly one acceptance
// criterion. The semantic criteria (single action verb, single target) are
// judged by the atomic detector.
func (t *Task) IsAtomicCandidate() bool {
	if t.EstimatedHours <= 0 || t.EstimatedHours > AtomicHoursThreshold {
		return false
	}
	if t.ContainsConjunction() {
		return false
	}
	return len(t.AcceptanceCriteria) == 1
}

// Validate checks that the task has the fields required for scheduling.
func (t *Task) Validate() error {
	switch {
	case t.ID == "":
		return &FieldError{Entity: "task", Field: "id"}
	case t.Title == "":
		return &FieldError{Entity: "task", Field: "title", ID: t.ID}
	case !t.Type.Valid():
		return &FieldError{Entity: "task", Field: "type", ID: t.ID}
	case !t.Priority.Valid():
		return &FieldError{Entity: "task", Field: "priority", ID: t.ID}
	case !t.Status.Valid():
		return &FieldError{Entity: "task", Field: "status", ID: t.ID}
	case t.EstimatedHours < 0:
		return &FieldError{Entity: "task", Field: "estimated_hours", ID: t.ID}
	}
	return nil
}

// FieldError reports a missing or invalid entity field.
type FieldError struct {
	// Entity is the entity kind ("task", "project", ...).
	Entity string
	// Field is the offending field name.
	Field string
	// ID is the entity ID, if known.
	ID string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.ID != "" {
		return e.Entity + " " + e.ID + ": missing or invalid field " + e.Field
	}
	return e.Entity + ": missing or invalid field " + e.Field
}
