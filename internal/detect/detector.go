// Package detect judges whether a task is atomic: small enough to complete
// in a single focused session with no natural sub-division.
package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/internal/llm"
	"github.com/ShayCichocki/vibeman/internal/prompts"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// DetectionResult is the atomicity verdict for a task.
type DetectionResult struct {
	IsAtomic          bool     `json:"isAtomic"`
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning"`
	EstimatedHours    float64  `json:"estimatedHours"`
	ComplexityFactors []string `json:"complexityFactors"`
	Recommendations   []string `json:"recommendations"`
}

// Detector produces atomicity verdicts by combining a heuristic gate with a
// language model consult.
type Detector struct {
	provider llm.Provider
	prompts  *prompts.Service
	debugLog func(format string, args ...interface{})
}

// NewDetector creates a detector using the given model provider and prompt
// service.
func NewDetector(provider llm.Provider, svc *prompts.Service) *Detector {
	return &Detector{
		provider: provider,
		prompts:  svc,
		debugLog: func(string, ...interface{}) {},
	}
}

// SetDebugLog installs a debug logging function.
func (d *Detector) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		d.debugLog = fn
	}
}

// Detect returns the atomicity verdict for a task in its project context.
//
// A heuristic gate runs first: conjunction tokens in the title or
// description, multiple acceptance criteria, or an estimate above the
// atomicity threshold each reject the task outright. The language model is
// still consulted for reasoning and complexity factors, but a heuristic
// rejection fixes the verdict regardless of what the model says.
func (d *Detector) Detect(ctx context.Context, task *models.Task, pctx models.ProjectContext) (*DetectionResult, error) {
	if task == nil {
		return nil, errs.E(errs.KindValidation, "detect.Detect", "nil task")
	}

	heuristicAtomic, gateReasons := d.heuristicGate(task)
	d.debugLog("atomic gate for %s: atomic=%v reasons=%v", task.ID, heuristicAtomic, gateReasons)

	verdict, err := d.consult(ctx, task, pctx)
	if err != nil {
		if errs.KindOf(err) == errs.KindCancelled {
			return nil, err
		}
		if !heuristicAtomic {
			// The gate already settled the verdict; the model consult was
			// only for commentary, so degrade to the heuristic answer.
			return &DetectionResult{
				IsAtomic:          false,
				Confidence:        1.0,
				Reasoning:         strings.Join(gateReasons, "; "),
				EstimatedHours:    task.EstimatedHours,
				ComplexityFactors: gateReasons,
			}, nil
		}
		return nil, err
	}

	if !heuristicAtomic {
		verdict.IsAtomic = false
		verdict.Confidence = 1.0
		if len(gateReasons) > 0 {
			verdict.Reasoning = strings.Join(gateReasons, "; ") + ". " + verdict.Reasoning
		}
	}
	if verdict.Confidence < 0 {
		verdict.Confidence = 0
	} else if verdict.Confidence > 1 {
		verdict.Confidence = 1
	}
	if verdict.EstimatedHours <= 0 {
		verdict.EstimatedHours = task.EstimatedHours
	}
	return verdict, nil
}

// heuristicGate applies the cheap structural checks. It returns whether the
// task passes, and the reasons it does not.
func (d *Detector) heuristicGate(task *models.Task) (bool, []string) {
	var reasons []string
	if task.ContainsConjunction() {
		reasons = append(reasons, "title or description bundles multiple actions")
	}
	if len(task.AcceptanceCriteria) > 1 {
		reasons = append(reasons, fmt.Sprintf("has %d acceptance criteria", len(task.AcceptanceCriteria)))
	}
	if task.EstimatedHours > models.AtomicHoursThreshold {
		reasons = append(reasons, fmt.Sprintf("estimated %.2fh exceeds %.2fh threshold",
			task.EstimatedHours, models.AtomicHoursThreshold))
	}
	return len(reasons) == 0, reasons
}

// consult asks the language model for a full verdict.
func (d *Detector) consult(ctx context.Context, task *models.Task, pctx models.ProjectContext) (*DetectionResult, error) {
	system := d.prompts.GetPromptWithVariables("atomic_detection", map[string]string{
		"threshold_hours": fmt.Sprintf("%.2f", models.AtomicHoursThreshold),
	})

	prompt := buildDetectionPrompt(task, pctx)
	raw, err := d.provider.Invoke(ctx, llm.Request{
		LogicalTask:  "atomic_detection",
		Prompt:       prompt,
		SystemPrompt: system,
		Format:       llm.FormatJSON,
	})
	if err != nil {
		return nil, err
	}
	return parseVerdict(raw)
}

func buildDetectionPrompt(task *models.Task, pctx models.ProjectContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(&b, "Type: %s\nPriority: %s\nEstimated hours: %.2f\n",
		task.Type, task.Priority, task.EstimatedHours)
	if len(task.AcceptanceCriteria) > 0 {
		fmt.Fprintf(&b, "Acceptance criteria:\n")
		for _, c := range task.AcceptanceCriteria {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	if len(task.FilePaths) > 0 {
		fmt.Fprintf(&b, "File paths: %s\n", strings.Join(task.FilePaths, ", "))
	}

	fmt.Fprintf(&b, "\nProject context:\n")
	if len(pctx.Languages) > 0 {
		fmt.Fprintf(&b, "  Languages: %s\n", strings.Join(pctx.Languages, ", "))
	}
	if len(pctx.Frameworks) > 0 {
		fmt.Fprintf(&b, "  Frameworks: %s\n", strings.Join(pctx.Frameworks, ", "))
	}
	if len(pctx.Tools) > 0 {
		fmt.Fprintf(&b, "  Tools: %s\n", strings.Join(pctx.Tools, ", "))
	}
	if pctx.CodebaseSize != "" {
		fmt.Fprintf(&b, "  Codebase size: %s\n", pctx.CodebaseSize)
	}
	if pctx.TeamSize > 0 {
		fmt.Fprintf(&b, "  Team size: %d\n", pctx.TeamSize)
	}
	if pctx.Complexity != "" {
		fmt.Fprintf(&b, "  Complexity: %s\n", pctx.Complexity)
	}
	return b.String()
}

// parseVerdict extracts the JSON verdict object from a model response.
func parseVerdict(response string) (*DetectionResult, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200] + "... (truncated)"
		}
		return nil, errs.E(errs.KindParsing, "detect.parseVerdict",
			fmt.Sprintf("no JSON object in response: %q", preview))
	}

	var result DetectionResult
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &result); err != nil {
		return nil, errs.Wrap(errs.KindParsing, "detect.parseVerdict", err)
	}
	return &result, nil
}
