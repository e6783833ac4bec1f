package agentruntime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/config"
	"realtorflow/platform/llmrouter"
	"realtorflow/platform/logging"
	"realtorflow/platform/memory"
	"realtorflow/platform/tools"
)

// fakeAdapter returns scripted responses in order, one per Dispatch
// call, so tests can drive the tool-call loop deterministically.
type fakeAdapter struct {
	responses []llmrouter.Response
	calls     int
}

func (f *fakeAdapter) Dispatch(ctx context.Context, model *llmrouter.ModelInfo, req llmrouter.Request) (llmrouter.Response, error) {
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeAdapter) Ping(ctx context.Context) error { return nil }

type stubTool struct {
	name string
}

func (s *stubTool) Name() string                 { return s.name }
func (s *stubTool) Description() string          { return "stub" }
func (s *stubTool) Category() tools.Category     { return tools.CategoryKnowledgeBase }
func (s *stubTool) Execute(ctx context.Context, input tools.Input) (tools.Result, error) {
	return tools.Result{Success: true, Data: map[string]any{"echo": input.Context["query"]}}, nil
}

func newTestRuntime(t *testing.T, adapter llmrouter.Adapter) (*Runtime, *Registry) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	log := logging.New("test")

	modelReg := llmrouter.NewRegistry()
	modelReg.Register(&llmrouter.ModelInfo{ID: "test-model", Provider: llmrouter.ProviderLocal, CostPerToken: 0.0001, PerformanceScore: 0.8})
	router := llmrouter.New(modelReg, cfg, log, llmrouter.WithAdapter(llmrouter.ProviderLocal, adapter))

	mem := memory.New(cfg, log, nil)
	t.Cleanup(func() { _ = mem.Shutdown() })

	toolReg := tools.New(log, mem)
	toolReg.Register(&stubTool{name: "knowledge_base"})

	roles := NewRegistry()
	roles.Register(&RoleDef{
		Name:      RoleHelpAgent,
		Goal:      "help users",
		Backstory: "a patient assistant",
		Tools:     []string{"knowledge_base"},
	})

	return New(roles, router, toolReg, mem, log), roles
}

func TestRuntime_Execute_NoToolCall(t *testing.T) {
	adapter := &fakeAdapter{responses: []llmrouter.Response{
		{Content: "here is your answer", ModelUsed: "test-model", TokenUsage: llmrouter.TokenUsage{Prompt: 10, Completion: 5, Total: 15}},
	}}
	rt, _ := newTestRuntime(t, adapter)

	result, err := rt.Execute(context.Background(), TaskInput{
		TaskID: "t1", WorkflowID: "w1", Role: RoleHelpAgent, Description: "what is a contingency?",
	})
	require.NoError(t, err)
	assert.Equal(t, "here is your answer", result.Output)
	assert.Equal(t, 15, result.Tokens.Total)
}

func TestRuntime_Execute_WithToolCall(t *testing.T) {
	adapter := &fakeAdapter{responses: []llmrouter.Response{
		{
			Content: "let me look that up",
			ToolCalls: []llmrouter.ToolCall{
				{Name: "knowledge_base", Arguments: json.RawMessage(`{"query":"escrow"}`)},
			},
		},
		{Content: "escrow is a neutral third party holding funds"},
	}}
	rt, _ := newTestRuntime(t, adapter)

	result, err := rt.Execute(context.Background(), TaskInput{
		TaskID: "t2", WorkflowID: "w1", Role: RoleHelpAgent, Description: "what is escrow?",
	})
	require.NoError(t, err)
	assert.Equal(t, "escrow is a neutral third party holding funds", result.Output)
	assert.Equal(t, 2, adapter.calls)
}

func TestRuntime_Execute_ToolOutsideAllowList(t *testing.T) {
	adapter := &fakeAdapter{responses: []llmrouter.Response{
		{
			Content: "trying a disallowed tool",
			ToolCalls: []llmrouter.ToolCall{
				{Name: "signature_tracking", Arguments: json.RawMessage(`{}`)},
			},
		},
		{Content: "final answer without that tool"},
	}}
	rt, _ := newTestRuntime(t, adapter)

	result, err := rt.Execute(context.Background(), TaskInput{
		TaskID: "t3", WorkflowID: "w1", Role: RoleHelpAgent, Description: "try something out of scope",
	})
	require.NoError(t, err)
	assert.Equal(t, "final answer without that tool", result.Output)
}

func TestRuntime_Execute_UnknownRole(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeAdapter{})
	_, err := rt.Execute(context.Background(), TaskInput{Role: RoleName("not_a_role")})
	require.Error(t, err)
}

func TestRuntime_RememberRecall_RoleIsolation(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeAdapter{})
	ctx := context.Background()

	require.NoError(t, rt.Remember(ctx, RoleHelpAgent, "note-1", map[string]any{"fact": "x"}, "w1"))

	entry, err := rt.Recall(ctx, RoleHelpAgent, "note-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, string(RoleHelpAgent), entry.AgentID)

	other, err := rt.Recall(ctx, RoleSummaryAgent, "note-1")
	require.NoError(t, err)
	assert.Nil(t, other)
}
