package workflow

import "context"

// TaskContext is what the orchestrator hands the TaskExecutor for one
// task (spec §4.5 worker loop step 5: "invoke its execute contract
// with the task and the execution context").
type TaskContext struct {
	ExecutionID string
	WorkflowID  string
	TaskID      string
	AgentRole   AgentRole
	TaskType    string
	Description string
	InputData   map[string]any
	UserID      string

	// ExecutionContext is a snapshot of the execution's context map at
	// dispatch time, so the executor can read prior tasks' results
	// (stored at task_<id>_result) without touching orchestrator state
	// directly.
	ExecutionContext map[string]any
}

// TaskExecutor binds a task's agent_role to wherever tasks actually
// run. The orchestrator depends only on this interface, not on
// agentruntime directly, so the two packages stay decoupled — the
// binding (mapping a TaskContext onto an agentruntime.TaskInput) lives
// at the call site that wires the two together.
type TaskExecutor interface {
	ExecuteTask(ctx context.Context, tc TaskContext) (map[string]any, error)
}
