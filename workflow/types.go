// Package workflow implements the Workflow Orchestrator (L5, spec
// §4.5): definition registration, execution instantiation, DAG
// scheduling onto a bounded worker pool, retries, timeouts, pause,
// resume, and cancellation.
package workflow

import "time"

// AgentRole mirrors agentruntime.RoleName as a plain string so this
// package does not need to import agentruntime directly; the executor
// that binds tasks to agent runtimes does that translation.
type AgentRole string

// Priority is informational only: the scheduler is a single FIFO ready
// queue, not a priority queue, per spec §4.5.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DependencyFailurePolicy resolves spec §9's open question: whether a
// dependent task should be auto-skipped once one of its dependencies
// exhausts retries and fails. The base design (spec §4.5) is "wait":
// dependents stay waiting forever and the execution is later declared
// failed by the completion check. "skip" is an optional per-definition
// policy.
type DependencyFailurePolicy string

const (
	OnDependencyFailureWait DependencyFailurePolicy = "wait"
	OnDependencyFailureSkip DependencyFailurePolicy = "skip"
)

// TaskSpec is one node of a WorkflowDefinition's DAG.
type TaskSpec struct {
	TaskID         string         `json:"task_id"`
	AgentRole      AgentRole      `json:"agent_role"`
	TaskType       string         `json:"task_type"`
	Description    string         `json:"description"`
	InputData      map[string]any `json:"input_data"`
	Dependencies   []string       `json:"dependencies"`
	Priority       Priority       `json:"priority"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty"`
	MaxRetries     int            `json:"max_retries"`
}

// WorkflowDefinition is an immutable (after registration) template
// describing a DAG of tasks.
type WorkflowDefinition struct {
	WorkflowID            string                   `json:"workflow_id"`
	Name                  string                   `json:"name"`
	Description           string                   `json:"description"`
	Tasks                 []TaskSpec               `json:"tasks"`
	CreatedAt             time.Time                `json:"created_at"`
	OnDependencyFailure    DependencyFailurePolicy `json:"on_dependency_failure,omitempty"`
}

func (d *WorkflowDefinition) dependencyPolicy() DependencyFailurePolicy {
	if d.OnDependencyFailure == "" {
		return OnDependencyFailureWait
	}
	return d.OnDependencyFailure
}

// TaskStatus is a TaskState's lifecycle position. Transitions are
// monotonic except failed → ready, which is allowed while
// retry_count < max_retries (spec §3).
type TaskStatus string

const (
	TaskWaiting   TaskStatus = "waiting"
	TaskReady     TaskStatus = "ready"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

func (s TaskStatus) terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskSkipped:
		return true
	}
	return false
}

// TaskState is one task's mutable state within an execution.
type TaskState struct {
	Status         TaskStatus     `json:"status"`
	RetryCount     int            `json:"retry_count"`
	AssignedWorker string         `json:"assigned_worker,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Result         map[string]any `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ExecutionStatus is a WorkflowExecution's lifecycle position.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionPaused    ExecutionStatus = "paused"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

func (s ExecutionStatus) terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	}
	return false
}

// LogEntry is one append-only execution_log record (spec §3:
// "execution_log ... totally ordered").
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"` // task_completed | task_retry | task_failed
	TaskID    string    `json:"task_id"`
	Worker    string    `json:"worker,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// StatusDTO is GetWorkflowStatus's return shape (spec §4.5).
type StatusDTO struct {
	Status         ExecutionStatus `json:"status"`
	Progress       int             `json:"progress"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	TotalTasks     int             `json:"total_tasks"`
	CompletedTasks int             `json:"completed_tasks"`
	RunningTasks   int             `json:"running_tasks"`
	FailedTasks    int             `json:"failed_tasks"`
	Errors         []string        `json:"errors,omitempty"`
}

// persistedExecution is the JSON document shape stored under
// workflow_state_<execution_id> (spec §6): "at minimum {status,
// progress, context, created_at, completed_at?, failed_tasks?}".
type persistedExecution struct {
	Status      ExecutionStatus        `json:"status"`
	Progress    int                    `json:"progress"`
	Context     map[string]any         `json:"context"`
	CreatedAt   time.Time              `json:"created_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	FailedTasks []string               `json:"failed_tasks,omitempty"`
	Tasks       map[string]*TaskState  `json:"tasks"`
	Log         []LogEntry             `json:"execution_log"`
}
