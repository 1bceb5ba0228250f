// Package decompose recursively splits non-atomic tasks into smaller
// sub-tasks until every leaf is atomic or the depth limit is reached.
package decompose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/vibeman/internal/detect"
	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/internal/llm"
	"github.com/ShayCichocki/vibeman/internal/prompts"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// SubTaskMaxHours is the upper bound on a sub-task's estimate before
// further atomicity refinement.
const SubTaskMaxHours = 4.0

// Options tune the recursion.
type Options struct {
	// MaxDepth is the deepest level a task may be split at.
	MaxDepth int
	// MaxSubTasks caps how many sub-tasks one split may produce.
	MaxSubTasks int
	// MinConfidence is the detector confidence needed to accept an
	// atomic verdict without splitting further.
	MinConfidence float64
}

// DefaultOptions returns the standard recursion bounds.
func DefaultOptions() Options {
	return Options{
		MaxDepth:      3,
		MaxSubTasks:   5,
		MinConfidence: 0.7,
	}
}

// Result is the outcome of decomposing one task.
type Result struct {
	Success      bool
	IsAtomic     bool
	SubTasks     []*models.Task
	OriginalTask *models.Task
	Depth        int
	Err          error
}

// Engine runs recursive decomposition using a detector for atomicity
// verdicts and a model provider for splits.
type Engine struct {
	detector *detect.Detector
	provider llm.Provider
	prompts  *prompts.Service
	opts     Options
	debugLog func(format string, args ...interface{})
}

// NewEngine creates a decomposition engine.
func NewEngine(detector *detect.Detector, provider llm.Provider, svc *prompts.Service, opts Options) *Engine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 3
	}
	if opts.MaxSubTasks <= 0 {
		opts.MaxSubTasks = 5
	}
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = 0.7
	}
	return &Engine{
		detector: detector,
		provider: provider,
		prompts:  svc,
		opts:     opts,
		debugLog: func(string, ...interface{}) {},
	}
}

// SetDebugLog installs a debug logging function.
func (e *Engine) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		e.debugLog = fn
	}
}

// DecomposeTask splits a task into atomic sub-tasks, recursing until every
// leaf is atomic or the depth limit is hit. Model failures and malformed
// splits degrade gracefully by treating the task as atomic; detector
// failures surface as an unsuccessful result.
func (e *Engine) DecomposeTask(ctx context.Context, task *models.Task, pctx models.ProjectContext) *Result {
	return e.decompose(ctx, task, pctx, 0)
}

func (e *Engine) decompose(ctx context.Context, task *models.Task, pctx models.ProjectContext, depth int) *Result {
	if task == nil {
		return &Result{
			OriginalTask: task,
			Depth:        depth,
			Err:          errs.E(errs.KindValidation, "decompose.DecomposeTask", "nil task"),
		}
	}
	if depth >= e.opts.MaxDepth {
		e.debugLog("task %s at depth %d: forcing atomic", task.ID, depth)
		return &Result{Success: true, IsAtomic: true, OriginalTask: task, Depth: depth}
	}

	verdict, err := e.detector.Detect(ctx, task, pctx)
	if err != nil {
		return &Result{
			OriginalTask: task,
			Depth:        depth,
			Err:          errs.Wrapf(errs.KindOf(err), "decompose.DecomposeTask", err, "atomicity check for %s", task.ID),
		}
	}
	if verdict.IsAtomic && verdict.Confidence >= e.opts.MinConfidence {
		return &Result{Success: true, IsAtomic: true, OriginalTask: task, Depth: depth}
	}

	subTasks, err := e.split(ctx, task, pctx)
	if err != nil {
		if errs.KindOf(err) == errs.KindCancelled {
			return &Result{OriginalTask: task, Depth: depth, Err: err}
		}
		// A broken split is recoverable: keep the task whole.
		e.debugLog("split of %s failed (%v), treating as atomic", task.ID, err)
		return &Result{Success: true, IsAtomic: true, OriginalTask: task, Depth: depth}
	}

	// Recurse into the sub-tasks concurrently; the model calls dominate
	// the cost and the children are independent.
	children := make([]*Result, len(subTasks))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.opts.MaxSubTasks)
	for i, sub := range subTasks {
		i, sub := i, sub
		group.Go(func() error {
			children[i] = e.decompose(groupCtx, sub, pctx, depth+1)
			return children[i].Err
		})
	}
	if err := group.Wait(); err != nil {
		return &Result{OriginalTask: task, Depth: depth, Err: err}
	}

	// Replace any still-divisible sub-task with its own leaves while
	// keeping the total under the cap.
	var leaves []*models.Task
	for i, child := range children {
		if child.IsAtomic || len(child.SubTasks) == 0 {
			leaves = append(leaves, subTasks[i])
		} else {
			leaves = append(leaves, child.SubTasks...)
		}
		if len(leaves) >= e.opts.MaxSubTasks {
			leaves = leaves[:e.opts.MaxSubTasks]
			break
		}
	}

	return &Result{
		Success:      true,
		IsAtomic:     false,
		SubTasks:     leaves,
		OriginalTask: task,
		Depth:        depth,
	}
}

// split asks the model for sub-task descriptors and materializes them.
func (e *Engine) split(ctx context.Context, task *models.Task, pctx models.ProjectContext) ([]*models.Task, error) {
	system := e.prompts.GetPromptWithVariables("decomposition", map[string]string{
		"max_sub_tasks": fmt.Sprintf("%d", e.opts.MaxSubTasks),
		"max_hours":     fmt.Sprintf("%.0f", SubTaskMaxHours),
	})

	raw, err := e.provider.Invoke(ctx, llm.Request{
		LogicalTask:  "decomposition",
		Prompt:       buildSplitPrompt(task, pctx),
		SystemPrompt: system,
		Format:       llm.FormatJSON,
	})
	if err != nil {
		return nil, err
	}

	descriptors, err := parseSplitResponse(raw)
	if err != nil {
		return nil, err
	}

	return e.materialize(task, descriptors)
}

// materialize validates descriptors and turns them into tasks with
// structured ids derived from the parent.
func (e *Engine) materialize(parent *models.Task, descriptors []subTaskDescriptor) ([]*models.Task, error) {
	if len(descriptors) > e.opts.MaxSubTasks {
		descriptors = descriptors[:e.opts.MaxSubTasks]
	}

	now := time.Now()
	tasks := make([]*models.Task, 0, len(descriptors))
	for i, d := range descriptors {
		if strings.TrimSpace(d.Title) == "" {
			return nil, errs.E(errs.KindValidation, "decompose.materialize",
				fmt.Sprintf("sub-task %d has no title", i))
		}
		if d.EstimatedHours <= 0 || d.EstimatedHours > SubTaskMaxHours {
			return nil, errs.E(errs.KindValidation, "decompose.materialize",
				fmt.Sprintf("sub-task %q estimate %.2fh out of range (0, %.0f]", d.Title, d.EstimatedHours, SubTaskMaxHours))
		}

		taskType := models.TaskType(strings.ToLower(d.Type))
		if !taskType.Valid() {
			taskType = parent.Type
		}
		priority := models.Priority(strings.ToLower(d.Priority))
		if !priority.Valid() {
			priority = parent.Priority
		}

		sub := &models.Task{
			ID:                 fmt.Sprintf("%s-%02d", parent.ID, i+1),
			ProjectID:          parent.ProjectID,
			EpicID:             parent.EpicID,
			Title:              d.Title,
			Description:        d.Description,
			Type:               taskType,
			Priority:           priority,
			Status:             models.TaskStatusPending,
			EstimatedHours:     d.EstimatedHours,
			FilePaths:          d.FilePaths,
			AcceptanceCriteria: d.AcceptanceCriteria,
			Tags:               d.Tags,
			CreatedBy:          parent.CreatedBy,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		tasks = append(tasks, sub)
	}

	// Resolve positional dependency references between siblings.
	for i, d := range descriptors {
		if i >= len(tasks) {
			break
		}
		for _, ref := range d.Dependencies {
			id, ok := resolveSiblingRef(ref, tasks, parent.ID)
			if !ok || id == tasks[i].ID {
				continue
			}
			tasks[i].Dependencies = append(tasks[i].Dependencies, id)
		}
	}
	return tasks, nil
}

// resolveSiblingRef maps a dependency reference (zero-based index or a
// structured id) onto a sibling's id.
func resolveSiblingRef(ref string, siblings []*models.Task, parentID string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, parentID+"-") {
		for _, s := range siblings {
			if s.ID == ref {
				return ref, true
			}
		}
		return "", false
	}
	var idx int
	if _, err := fmt.Sscanf(ref, "%d", &idx); err != nil {
		return "", false
	}
	if idx < 0 || idx >= len(siblings) {
		return "", false
	}
	return siblings[idx].ID, true
}

func buildSplitPrompt(task *models.Task, pctx models.ProjectContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Decompose this task:\n\nTitle: %s\n", task.Title)
	if task.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", task.Description)
	}
	fmt.Fprintf(&b, "Type: %s\nPriority: %s\nEstimated hours: %.2f\n",
		task.Type, task.Priority, task.EstimatedHours)
	if len(pctx.Languages) > 0 {
		fmt.Fprintf(&b, "\nLanguages: %s\n", strings.Join(pctx.Languages, ", "))
	}
	if len(pctx.Frameworks) > 0 {
		fmt.Fprintf(&b, "Frameworks: %s\n", strings.Join(pctx.Frameworks, ", "))
	}
	if len(pctx.ExistingTasks) > 0 {
		fmt.Fprintf(&b, "Existing tasks already planned: %s\n", strings.Join(pctx.ExistingTasks, "; "))
	}
	return b.String()
}
