package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"realtorflow/platform/config"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
	"realtorflow/platform/orcerr"
)

// readyItem is one entry of the ready queue (spec §4.5): a pair
// identifying a task that is eligible to run.
type readyItem struct {
	executionID string
	taskID      string
}

// Orchestrator is the Workflow Orchestrator (L5): it owns workflow
// definitions and live executions, and drives a fixed worker pool over
// a single bounded ready queue, per spec §4.5's scheduling model.
type Orchestrator struct {
	cfg      *config.Config
	log      *logging.Logger
	mem      *memory.Store
	executor TaskExecutor
	defs     *DefinitionRegistry

	mu         sync.RWMutex
	executions map[string]*execution

	ready  chan readyItem
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// New constructs an Orchestrator. It does not start the worker pool or
// monitor — call Start for that, typically once at process boot.
func New(cfg *config.Config, log *logging.Logger, mem *memory.Store, executor TaskExecutor, defs *DefinitionRegistry) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		log:        log,
		mem:        mem,
		executor:   executor,
		defs:       defs,
		executions: make(map[string]*execution),
		ready:      make(chan readyItem, cfg.ReadyQueueCapacity),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the fixed worker pool (cfg.WorkerCount, default 3)
// and the independent monitor routine (spec §5: "One additional
// monitor routine runs independently").
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.cfg.WorkerCount; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		o.wg.Add(1)
		go o.workerLoop(ctx, workerID)
	}
	o.wg.Add(1)
	go o.monitorLoop(ctx)
}

// Stop signals every worker and the monitor to exit and waits for
// them to drain.
func (o *Orchestrator) Stop() {
	o.once.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

// RegisterWorkflowTemplate validates and stores a definition (spec
// §4.5). Delegates to the DefinitionRegistry so validation logic lives
// in one place.
func (o *Orchestrator) RegisterWorkflowTemplate(def *WorkflowDefinition) error {
	if def.CreatedAt.IsZero() {
		def.CreatedAt = time.Now().UTC()
	}
	return o.defs.RegisterWorkflowTemplate(def)
}

// CreateWorkflowExecution clones the template's TaskSpecs into fresh
// TaskStates (all waiting), seeds context, persists initial state, and
// returns the execution id.
func (o *Orchestrator) CreateWorkflowExecution(ctx context.Context, templateID string, inputData map[string]any, userID, executionID string) (string, error) {
	def, ok := o.defs.Get(templateID)
	if !ok {
		return "", orcerr.NotFound("CreateWorkflowExecution", templateID)
	}

	if executionID == "" {
		executionID = uuid.New().String()
	}

	exec := newExecution(executionID, def, inputData, userID)

	o.mu.Lock()
	o.executions[executionID] = exec
	o.mu.Unlock()

	o.persist(ctx, exec)
	return executionID, nil
}

// StartWorkflowExecution transitions pending → running and enqueues
// every task whose dependencies are already satisfied (spec §4.5).
func (o *Orchestrator) StartWorkflowExecution(ctx context.Context, executionID string) error {
	exec, ok := o.get(executionID)
	if !ok {
		return orcerr.NotFound("StartWorkflowExecution", executionID)
	}

	exec.mu.Lock()
	if exec.status != ExecutionPending {
		exec.mu.Unlock()
		return orcerr.StateConflict("StartWorkflowExecution", executionID, "execution is not pending")
	}
	now := time.Now().UTC()
	exec.status = ExecutionRunning
	exec.startedAt = &now

	var toEnqueue []string
	for id, t := range exec.tasks {
		if t.Status == TaskWaiting && exec.dependenciesCompleted(id) {
			t.Status = TaskReady
			toEnqueue = append(toEnqueue, id)
		}
	}
	exec.mu.Unlock()

	for _, id := range toEnqueue {
		o.enqueue(executionID, id)
	}
	o.persist(ctx, exec)
	return nil
}

// PauseWorkflowExecution is valid only while running.
func (o *Orchestrator) PauseWorkflowExecution(executionID string) error {
	exec, ok := o.get(executionID)
	if !ok {
		return orcerr.NotFound("PauseWorkflowExecution", executionID)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.status != ExecutionRunning {
		return orcerr.StateConflict("PauseWorkflowExecution", executionID, "execution is not running")
	}
	exec.status = ExecutionPaused
	return nil
}

// ResumeWorkflowExecution is valid only while paused; it re-enqueues
// every currently-ready task.
func (o *Orchestrator) ResumeWorkflowExecution(executionID string) error {
	exec, ok := o.get(executionID)
	if !ok {
		return orcerr.NotFound("ResumeWorkflowExecution", executionID)
	}
	exec.mu.Lock()
	if exec.status != ExecutionPaused {
		exec.mu.Unlock()
		return orcerr.StateConflict("ResumeWorkflowExecution", executionID, "execution is not paused")
	}
	exec.status = ExecutionRunning
	var ready []string
	for id, t := range exec.tasks {
		if t.Status == TaskReady {
			ready = append(ready, id)
		}
	}
	exec.mu.Unlock()

	for _, id := range ready {
		o.enqueue(executionID, id)
	}
	return nil
}

// CancelWorkflowExecution is valid from any non-terminal state.
// Cancellation is cooperative: in-flight tasks finish their current
// call and still record a result, but dependents are never enqueued
// after cancellation (spec §5).
func (o *Orchestrator) CancelWorkflowExecution(executionID string) error {
	exec, ok := o.get(executionID)
	if !ok {
		return orcerr.NotFound("CancelWorkflowExecution", executionID)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.status.terminal() {
		return orcerr.StateConflict("CancelWorkflowExecution", executionID, "execution already terminal")
	}
	now := time.Now().UTC()
	exec.status = ExecutionCancelled
	exec.completedAt = &now
	return nil
}

// GetWorkflowStatus returns aggregated progress (spec §4.5).
func (o *Orchestrator) GetWorkflowStatus(executionID string) (StatusDTO, error) {
	exec, ok := o.get(executionID)
	if !ok {
		return StatusDTO{}, orcerr.NotFound("GetWorkflowStatus", executionID)
	}
	exec.mu.Lock()
	defer exec.mu.Unlock()
	return exec.statusDTO(), nil
}

func (o *Orchestrator) get(executionID string) (*execution, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	exec, ok := o.executions[executionID]
	return exec, ok
}

// enqueue never blocks beyond the ready queue's bounded capacity (spec
// §5); a full queue drops the item with a logged warning rather than
// stalling the caller, since the queue's default capacity is sized to
// be non-binding for typical workloads.
func (o *Orchestrator) enqueue(executionID, taskID string) {
	select {
	case o.ready <- readyItem{executionID: executionID, taskID: taskID}:
	default:
		o.log.Warn(executionID, "ready queue full, dropping task", logging.Fields{"task_id": taskID})
	}
}

func (o *Orchestrator) persist(ctx context.Context, exec *execution) {
	exec.mu.Lock()
	doc := exec.toPersisted()
	exec.mu.Unlock()

	if err := o.mem.PutRaw(ctx, memory.WorkflowStateKey(exec.id), doc, o.cfg.WorkflowTTL()); err != nil {
		o.log.Warn(exec.id, "failed to persist workflow state", logging.Fields{"error": err.Error()})
	}
}
