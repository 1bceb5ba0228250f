package models

import "time"

// DependencyType classifies a dependency edge between two tasks.
type DependencyType string

const (
	// DependencyBlocks means the target cannot start until the source finishes.
	DependencyBlocks DependencyType = "blocks"
	// DependencyEnables means the source makes the target easier but not required.
	DependencyEnables DependencyType = "enables"
	// DependencyRelated marks an informational relationship.
	DependencyRelated DependencyType = "related"
)

// Valid returns true if the type is a known value.
func (t DependencyType) Valid() bool {
	switch t {
	case DependencyBlocks, DependencyEnables, DependencyRelated:
		return true
	default:
		return false
	}
}

// Dependency is a directed edge between two tasks: From must complete
// before To may start (when Hard is true).
type Dependency struct {
	// ID is the unique identifier for this edge.
	ID string `json:"id" yaml:"id"`
	// ProjectID is the project both endpoints belong to.
	ProjectID string `json:"project_id" yaml:"project_id"`
	// From is the prerequisite task ID.
	From string `json:"from" yaml:"from"`
	// To is the dependent task ID.
	To string `json:"to" yaml:"to"`
	// Type classifies the edge.
	Type DependencyType `json:"type" yaml:"type"`
	// Weight is the edge weight for critical-path computation, at least 1.
	Weight int `json:"weight" yaml:"weight"`
	// Hard marks the edge as a scheduling constraint.
	Hard bool `json:"hard" yaml:"hard"`
	// Rationale explains why the edge exists.
	Rationale string `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	// CreatedAt is when the edge was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Validate checks required dependency fields.
func (d *Dependency) Validate() error {
	switch {
	case d.ID == "":
		return &FieldError{Entity: "dependency", Field: "id"}
	case d.From == "":
		return &FieldError{Entity: "dependency", Field: "from", ID: d.ID}
	case d.To == "":
		return &FieldError{Entity: "dependency", Field: "to", ID: d.ID}
	case d.From == d.To:
		return &FieldError{Entity: "dependency", Field: "to", ID: d.ID}
	case !d.Type.Valid():
		return &FieldError{Entity: "dependency", Field: "type", ID: d.ID}
	case d.Weight < 1:
		return &FieldError{Entity: "dependency", Field: "weight", ID: d.ID}
	}
	return nil
}
