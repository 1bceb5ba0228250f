package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/vibeman/internal/config"
	"github.com/ShayCichocki/vibeman/internal/errs"
	"github.com/ShayCichocki/vibeman/pkg/models"
)

// Engine is the orchestration core: it owns the agent pool, the workflow
// state machines, the pending task pool, and the in-flight executions, and
// runs the five periodic supervision timers.
type Engine struct {
	cfg      config.OrchestrationConfig
	sched    config.SchedulingConfig
	strategy AssignmentStrategy

	registry *agentRegistry
	emitter  *EventEmitter
	logger   *zap.Logger
	runlog   *RunLog
	snapshot *Snapshotter
	epics    EpicStore
	now      func() time.Time

	mu          sync.RWMutex
	workflows   map[string]*models.Workflow
	entries     map[string]*models.ScheduleEntry
	assignments map[string]*models.TaskAssignment
	executions  map[string]*models.ExecutionContext

	rrCounter      atomic.Uint64
	schedulingBusy atomic.Bool

	startedAt      time.Time
	completedTotal atomic.Int64
	failedTotal    atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithStrategy sets the assignment strategy.
func WithStrategy(strategy AssignmentStrategy) Option {
	return func(e *Engine) {
		if strategy.Valid() {
			e.strategy = strategy
		}
	}
}

// WithRunLog attaches a durable run log.
func WithRunLog(rl *RunLog) Option {
	return func(e *Engine) { e.runlog = rl }
}

// WithSnapshotter attaches periodic state snapshots.
func WithSnapshotter(s *Snapshotter) Option {
	return func(e *Engine) { e.snapshot = s }
}

// EpicStore is the slice of the entity store the engine uses to validate
// task references at intake.
type EpicStore interface {
	EpicExists(id string) bool
	CreateEpic(epic *models.Epic) error
}

// WithEpicStore attaches the store used to resolve epic references.
func WithEpicStore(st EpicStore) Option {
	return func(e *Engine) { e.epics = st }
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an orchestration engine. The engine is inert until
// Start is called; all public methods work without the timers running.
func NewEngine(cfg config.OrchestrationConfig, sched config.SchedulingConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		sched:       sched,
		strategy:    StrategyIntelligentHybrid,
		logger:      zap.NewNop(),
		now:         time.Now,
		workflows:   make(map[string]*models.Workflow),
		entries:     make(map[string]*models.ScheduleEntry),
		assignments: make(map[string]*models.TaskAssignment),
		executions:  make(map[string]*models.ExecutionContext),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registry = newAgentRegistry(e.now)
	e.emitter = NewEventEmitter(256, e.logger)
	e.startedAt = e.now()
	return e
}

// Events exposes the engine's event stream.
func (e *Engine) Events() <-chan Event {
	return e.emitter.Events()
}

// Start launches the five periodic timers: heartbeat check, task
// scheduler, execution watchdog, cleanup, and metrics. Each runs on its
// own ticker so a slow tick in one never delays the others. Start returns
// immediately; the timers stop when ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.runTimer(ctx, e.cfg.HeartbeatInterval, e.heartbeatTick)
	e.runTimer(ctx, e.sched.SchedulingInterval, func() { e.schedulingTick() })
	e.runTimer(ctx, e.cfg.WatchdogInterval, e.watchdogTick)
	e.runTimer(ctx, e.cfg.CleanupInterval, e.cleanupTick)
	e.runTimer(ctx, e.cfg.MetricsInterval, e.metricsTick)
	e.logger.Info("orchestration engine started",
		zap.String("strategy", string(e.strategy)),
		zap.Duration("scheduling_interval", e.sched.SchedulingInterval))
}

func (e *Engine) runTimer(ctx context.Context, interval time.Duration, tick func()) {
	if interval <= 0 {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stop:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

// Stop halts the timers and waits for in-flight ticks to finish.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
	e.logger.Info("orchestration engine stopped")
}

// Reset clears all engine state: agents, workflows, assignments,
// executions, and the pending pool. Intended for test isolation.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.workflows = make(map[string]*models.Workflow)
	e.entries = make(map[string]*models.ScheduleEntry)
	e.assignments = make(map[string]*models.TaskAssignment)
	e.executions = make(map[string]*models.ExecutionContext)
	e.mu.Unlock()
	e.registry.reset()
	e.completedTotal.Store(0)
	e.failedTotal.Store(0)
	e.startedAt = e.now()
}

// RegisterAgent adds an agent to the pool and returns it with a fresh id.
// The agent starts in online status.
func (e *Engine) RegisterAgent(info AgentInfo) *models.Agent {
	agent := e.registry.register(info)
	e.emitter.Emit(Event{
		Type:      EventAgentRegistered,
		AgentID:   agent.ID,
		Message:   agent.Name,
		Timestamp: e.now(),
	})
	if e.runlog != nil {
		e.runlog.RecordEvent(string(EventAgentRegistered), agent.ID, "", agent.Name)
	}
	return agent
}

// UpdateAgentStatus sets an agent's status and refreshes its heartbeat.
func (e *Engine) UpdateAgentStatus(id string, status models.AgentStatus) error {
	return e.registry.updateStatus(id, status)
}

// Heartbeat records a liveness signal from an agent without changing its
// status unless it was offline.
func (e *Engine) Heartbeat(id string) error {
	agent, ok := e.registry.get(id)
	if !ok {
		return errs.E(errs.KindNotFound, "orchestrator.Heartbeat", "agent "+id)
	}
	status := agent.Status
	if status == models.AgentStatusOffline {
		status = models.AgentStatusOnline
	}
	return e.registry.updateStatus(id, status)
}

// GetAgent returns an agent by id.
func (e *Engine) GetAgent(id string) (*models.Agent, error) {
	agent, ok := e.registry.get(id)
	if !ok {
		return nil, errs.E(errs.KindNotFound, "orchestrator.GetAgent", "agent "+id)
	}
	return agent, nil
}

// GetAvailableAgents returns schedulable agents covering the required
// capabilities, sorted by load ascending then success rate descending.
func (e *Engine) GetAvailableAgents(required []models.Capability) []*models.Agent {
	return e.registry.available(required)
}

// Agents returns a deep-copied view of the full agent pool.
func (e *Engine) Agents() []*models.Agent {
	return e.registry.all()
}
