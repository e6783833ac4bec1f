package tools

import "context"

// StatusLookup fetches a sibling task's status, injected rather than
// imported directly to avoid a tools -> workflow -> tools cycle (the
// workflow orchestrator is the one that constructs this tool).
type StatusLookup func(ctx context.Context, workflowID, taskID string) (map[string]any, error)

// WorkflowManagementTool exposes sibling task state to agents that
// need to inspect progress made elsewhere in their own workflow.
type WorkflowManagementTool struct {
	lookup StatusLookup
}

func NewWorkflowManagementTool(lookup StatusLookup) *WorkflowManagementTool {
	return &WorkflowManagementTool{lookup: lookup}
}

func (t *WorkflowManagementTool) Name() string       { return "workflow_management" }
func (t *WorkflowManagementTool) Description() string { return "reports the status of a task within the caller's workflow" }
func (t *WorkflowManagementTool) Category() Category  { return CategoryWorkflowManagement }

// Execute expects input.Context["task_id"]; defaults to the caller's
// own workflow_id when looking up state.
func (t *WorkflowManagementTool) Execute(ctx context.Context, input Input) (Result, error) {
	taskID, _ := input.Context["task_id"].(string)
	if taskID == "" {
		return Result{Success: false, Errors: []string{"task_id is required"}}, nil
	}

	status, err := t.lookup(ctx, input.WorkflowID, taskID)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, nil
	}

	return Result{Success: true, Data: status}, nil
}
