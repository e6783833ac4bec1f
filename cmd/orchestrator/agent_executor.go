package main

import (
	"context"

	"realtorflow/platform/agentruntime"
	"realtorflow/platform/workflow"
)

// agentExecutor adapts *agentruntime.Runtime to workflow.TaskExecutor,
// translating between the two packages' independent task contracts so
// neither package imports the other (spec §4.4/§4.5 are deliberately
// decoupled; this binding lives at the process-wiring layer instead).
type agentExecutor struct {
	runtime *agentruntime.Runtime
}

func newAgentExecutor(rt *agentruntime.Runtime) *agentExecutor {
	return &agentExecutor{runtime: rt}
}

func (a *agentExecutor) ExecuteTask(ctx context.Context, tc workflow.TaskContext) (map[string]any, error) {
	result, err := a.runtime.Execute(ctx, agentruntime.TaskInput{
		TaskID:      tc.TaskID,
		WorkflowID:  tc.WorkflowID,
		Role:        agentruntime.RoleName(tc.AgentRole),
		Description: tc.Description,
		InputData:   tc.InputData,
		Context:     tc.ExecutionContext,
		UserID:      tc.UserID,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"output":     result.Output,
		"model_used": result.ModelUsed,
		"tokens": map[string]any{
			"prompt":     result.Tokens.Prompt,
			"completion": result.Tokens.Completion,
			"total":      result.Tokens.Total,
		},
		"cost": result.Cost,
	}, nil
}
