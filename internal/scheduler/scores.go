package scheduler

import (
	"runtime"
	"strings"
	"time"

	"github.com/ShayCichocki/vibeman/internal/graph"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// impactTags boost a task's business-impact score.
var impactTags = map[string]bool{
	"customer-facing": true,
	"revenue-impact":  true,
	"critical-path":   true,
	"security":        true,
}

// RequiredCapabilities maps a task type onto the agent capabilities needed
// to execute it.
func RequiredCapabilities(t models.TaskType) []models.Capability {
	switch t {
	case models.TaskTypeDevelopment:
		return []models.Capability{models.CapabilityTaskExecution, models.CapabilityCodeGeneration}
	case models.TaskTypeTesting:
		return []models.Capability{models.CapabilityTaskExecution, models.CapabilityTesting}
	case models.TaskTypeDocumentation:
		return []models.Capability{models.CapabilityTaskExecution, models.CapabilityDocumentation}
	case models.TaskTypeDeployment:
		return []models.Capability{models.CapabilityTaskExecution, models.CapabilityDeployment}
	case models.TaskTypeResearch:
		return []models.Capability{models.CapabilityResearch}
	case models.TaskTypeReview:
		return []models.Capability{models.CapabilityAnalysis}
	default:
		return []models.Capability{models.CapabilityTaskExecution}
	}
}

// SetAgentPool informs the scheduler of the current agents for
// agent-availability scoring. Without a pool the factor is neutral.
func (s *Scheduler) SetAgentPool(agents []*models.Agent) {
	s.agents = agents
}

// scoreTasks computes the per-factor breakdown for every task and the
// algorithm-specific total.
func (s *Scheduler) scoreTasks(tasks []*models.Task, g *graph.DependencyGraph, algorithm models.SchedulingAlgorithm) map[string]models.ScoreBreakdown {
	maxDependents := 1
	for _, task := range tasks {
		if n := g.TransitiveDependents(task.ID); n > maxDependents {
			maxDependents = n
		}
	}

	critical := make(map[string]bool)
	for _, id := range g.CriticalPath() {
		critical[id] = true
	}

	systemLoad := s.systemLoadScore()
	now := s.now()

	scores := make(map[string]models.ScoreBreakdown, len(tasks))
	for _, task := range tasks {
		b := models.ScoreBreakdown{
			PriorityScore:          s.cfg.PriorityWeights.For(task.Priority),
			DependencyScore:        float64(g.TransitiveDependents(task.ID)) / float64(maxDependents),
			DeadlineScore:          deadlineScore(task, now),
			SystemLoadScore:        systemLoad,
			ComplexityScore:        complexityScore(task),
			BusinessImpactScore:    businessImpactScore(task),
			AgentAvailabilityScore: s.agentAvailabilityScore(task),
			ResourceScore:          s.resourceScore(task),
		}

		switch algorithm {
		case models.AlgorithmPriorityFirst:
			b.TotalScore = b.PriorityScore
		case models.AlgorithmEarliestDeadline:
			b.TotalScore = b.DeadlineScore
		case models.AlgorithmShortestJob:
			hours := task.EstimatedHours
			if hours <= 0 {
				hours = minScheduledHours
			}
			b.TotalScore = 1 / (1 + hours)
		case models.AlgorithmCriticalPath:
			b.TotalScore = 0.7 * b.DependencyScore
			if critical[task.ID] {
				b.TotalScore += 0.3
			}
		case models.AlgorithmResourceAware:
			b.TotalScore = b.ResourceScore
		default:
			w := s.cfg.ScoreWeights
			b.TotalScore = w.Dependencies*b.DependencyScore +
				w.Deadline*b.DeadlineScore +
				w.SystemLoad*b.SystemLoadScore +
				w.Complexity*b.ComplexityScore +
				w.BusinessImpact*b.BusinessImpactScore +
				w.AgentAvailability*b.AgentAvailabilityScore
		}
		scores[task.ID] = b
	}
	return scores
}

// deadlineScore decreases monotonically with slack. Overdue tasks score 1;
// tasks without a deadline score a neutral 0.5.
func deadlineScore(task *models.Task, now time.Time) float64 {
	if task.Deadline == nil {
		return 0.5
	}
	slackHours := task.Deadline.Sub(now).Hours()
	if slackHours <= 0 {
		return 1
	}
	return 1 / (1 + slackHours/24)
}

// complexityScore is the inverse of a weighted size measure: more files,
// dependencies, and acceptance criteria mean a lower score.
func complexityScore(task *models.Task) float64 {
	raw := 0.3*float64(len(task.FilePaths)) +
		0.3*float64(len(task.Dependencies)) +
		0.2*float64(len(task.AcceptanceCriteria))
	if task.Type == models.TaskTypeTesting {
		raw += 0.2
	}
	return 1 / (1 + raw)
}

// businessImpactScore combines priority weight, a type boost, and a tag
// boost for high-impact labels, clamped to 1.
func businessImpactScore(task *models.Task) float64 {
	score := task.Priority.Weight()
	switch task.Type {
	case models.TaskTypeDeployment:
		score += 0.15
	case models.TaskTypeDevelopment:
		score += 0.1
	}
	for _, tag := range task.Tags {
		if impactTags[strings.ToLower(tag)] {
			score += 0.2
			break
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

// agentAvailabilityScore is the fraction of the known agent pool covering
// the task's required capabilities.
func (s *Scheduler) agentAvailabilityScore(task *models.Task) float64 {
	if len(s.agents) == 0 {
		return 1
	}
	required := RequiredCapabilities(task.Type)
	capable := 0
	for _, agent := range s.agents {
		if agent.HasCapabilities(required) {
			capable++
		}
	}
	return float64(capable) / float64(len(s.agents))
}

// resourceScore favors tasks with a small footprint relative to the
// envelope.
func (s *Scheduler) resourceScore(task *models.Task) float64 {
	alloc := s.allocationFor(task)
	memFraction := float64(alloc.MemoryMB) / float64(s.cfg.MaxMemoryMB)
	cpuFraction := alloc.CPUWeight / s.cfg.MaxCPUUtilization
	score := 1 - (memFraction+cpuFraction)/2
	if score < 0 {
		score = 0
	}
	return score
}

// systemLoadScore estimates the process's free headroom at the scheduling
// instant from allocated versus obtained memory.
func (s *Scheduler) systemLoadScore() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.Sys == 0 {
		return 1
	}
	free := 1 - float64(m.Alloc)/float64(m.Sys)
	if free < 0 {
		return 0
	}
	return free
}
