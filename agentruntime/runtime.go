package agentruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"realtorflow/platform/llmrouter"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
	"realtorflow/platform/orcerr"
	"realtorflow/platform/tools"
)

// Runtime executes tasks on behalf of whichever role a TaskInput names
// (spec §4.4). It is stateless between calls: every field below is
// shared, read-mostly infrastructure, never per-task state.
type Runtime struct {
	roles  *Registry
	router *llmrouter.Router
	tools  *tools.Registry
	mem    *memory.Store
	log    *logging.Logger
}

func New(roles *Registry, router *llmrouter.Router, toolRegistry *tools.Registry, mem *memory.Store, log *logging.Logger) *Runtime {
	return &Runtime{roles: roles, router: router, tools: toolRegistry, mem: mem, log: log}
}

// Execute implements the task execution contract (spec §4.4):
// materialize a task context, build a prompt from the role's
// backstory, call the Model Router, and drive the tool-call loop until
// the model returns a non-tool-call response or max_iterations is
// reached.
func (rt *Runtime) Execute(ctx context.Context, in TaskInput) (TaskResult, error) {
	role, ok := rt.roles.Get(in.Role)
	if !ok {
		return TaskResult{}, orcerr.NotFound("Execute", string(in.Role))
	}

	expectedOutput := in.ExpectedOutput
	if expectedOutput == "" {
		expectedOutput = role.DefaultExpectedOutput
	}

	taskContext := mergeContext(in.Context, map[string]any{
		"task_id":      in.TaskID,
		"workflow_id":  in.WorkflowID,
		"input_data":   in.InputData,
	})

	messages := []llmrouter.Message{
		{Role: "user", Content: buildTaskPrompt(in.Description, expectedOutput, taskContext)},
	}

	var result TaskResult
	maxIterations := role.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	for iteration := 0; iteration < maxIterations; iteration++ {
		resp, err := rt.router.GenerateResponse(ctx, llmrouter.Request{
			Messages:        messages,
			SystemPrompt:    rolePrompt(role),
			ModelPreference: role.ModelPreference,
			Tools:           role.Tools,
		})
		if err != nil {
			return TaskResult{}, orcerr.Execution("Execute", string(in.Role), "model router call failed", err)
		}

		result.ModelUsed = resp.ModelUsed
		result.Tokens.Prompt += resp.TokenUsage.Prompt
		result.Tokens.Completion += resp.TokenUsage.Completion
		result.Tokens.Total += resp.TokenUsage.Total
		result.Cost += resp.Cost

		if len(resp.ToolCalls) == 0 {
			result.Output = resp.Content
			return result, nil
		}

		messages = append(messages, llmrouter.Message{Role: "assistant", Content: resp.Content})
		messages = append(messages, llmrouter.Message{Role: "user", Content: rt.runToolCalls(ctx, role, in, resp.ToolCalls)})
	}

	rt.log.Warn(in.WorkflowID, "agent hit max iterations without a final response", logging.Fields{
		"task_id": in.TaskID, "role": string(in.Role),
	})
	return result, nil
}

// runToolCalls invokes every requested tool through the Tool Registry
// (rejecting any name outside the role's allow-list without aborting
// the task) and formats the outputs as the next user message, per spec
// §4.4 step 4 ("tool outputs are re-injected as the next user
// message").
func (rt *Runtime) runToolCalls(ctx context.Context, role *RoleDef, in TaskInput, calls []llmrouter.ToolCall) string {
	var sb strings.Builder
	sb.WriteString("Tool results:\n")

	for _, call := range calls {
		if !role.allowsTool(call.Name) {
			sb.WriteString(fmt.Sprintf("- %s: denied, not in this role's tool allow-list\n", call.Name))
			continue
		}

		args := map[string]any{}
		if len(call.Arguments) > 0 {
			if err := json.Unmarshal(call.Arguments, &args); err != nil {
				sb.WriteString(fmt.Sprintf("- %s: invalid arguments: %s\n", call.Name, err.Error()))
				continue
			}
		}

		toolCtx := mergeContext(in.Context, args)
		result := rt.tools.Invoke(ctx, call.Name, tools.Input{
			AgentID:    string(role.Name),
			WorkflowID: in.WorkflowID,
			UserID:     in.UserID,
			Context:    toolCtx,
		})

		if !result.Success {
			sb.WriteString(fmt.Sprintf("- %s: failed: %s\n", call.Name, strings.Join(result.Errors, "; ")))
			continue
		}

		data, err := json.Marshal(result.Data)
		if err != nil {
			data = []byte("{}")
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", call.Name, string(data)))
	}

	return sb.String()
}

// Remember and Recall are the only way a Runtime touches agent-scoped
// memory, and both key the entry by the role's own name (which is also
// its agent id) — there is no method that lets one role read another's
// agent-scoped entries (spec §4.4 role isolation). Cross-role visibility
// only happens through a SharedContext both roles are listed in.
func (rt *Runtime) Remember(ctx context.Context, role RoleName, identifier string, content any, workflowID string) error {
	_, err := rt.mem.Store(ctx, content, memory.StoreParams{
		Type:       memory.TypeShortTerm,
		Scope:      memory.ScopeAgent,
		Identifier: string(role) + ":" + identifier,
		AgentID:    string(role),
		WorkflowID: workflowID,
	})
	return err
}

func (rt *Runtime) Recall(ctx context.Context, role RoleName, identifier string) (*memory.Entry, error) {
	return rt.mem.Retrieve(ctx, memory.TypeShortTerm, memory.ScopeAgent, string(role)+":"+identifier)
}

func rolePrompt(role *RoleDef) string {
	return fmt.Sprintf("%s\n\n%s", role.Backstory, role.Goal)
}

func buildTaskPrompt(description, expectedOutput string, taskContext map[string]any) string {
	var sb strings.Builder
	sb.WriteString(description)
	if expectedOutput != "" {
		sb.WriteString("\n\nExpected output: ")
		sb.WriteString(expectedOutput)
	}
	if len(taskContext) > 0 {
		if b, err := json.Marshal(taskContext); err == nil {
			sb.WriteString("\n\nTask context: ")
			sb.Write(b)
		}
	}
	return sb.String()
}

func mergeContext(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
