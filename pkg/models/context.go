package models

// ProjectContext describes the project a task belongs to, used to ground
// atomicity and decomposition decisions in the surrounding codebase.
type ProjectContext struct {
	ProjectID     string   `json:"projectId" yaml:"project_id"`
	Languages     []string `json:"languages" yaml:"languages"`
	Frameworks    []string `json:"frameworks" yaml:"frameworks"`
	Tools         []string `json:"tools" yaml:"tools"`
	ExistingTasks []string `json:"existingTasks" yaml:"existing_tasks"`
	// CodebaseSize is a rough bucket: small, medium, or large.
	CodebaseSize string `json:"codebaseSize" yaml:"codebase_size"`
	TeamSize     int    `json:"teamSize" yaml:"team_size"`
	// Complexity is a rough bucket: low, medium, or high.
	Complexity string `json:"complexity" yaml:"complexity"`
}
