package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/logging"
)

type stubTool struct {
	name     string
	category Category
	result   Result
	err      error
	panics   bool
}

func (s *stubTool) Name() string       { return s.name }
func (s *stubTool) Description() string { return "stub" }
func (s *stubTool) Category() Category  { return s.category }
func (s *stubTool) Execute(ctx context.Context, input Input) (Result, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func newTestRegistry() *Registry {
	return New(logging.New("tools_test"), nil)
}

func TestRegistry_RegisterGetByCategoryList(t *testing.T) {
	r := newTestRegistry()
	t1 := &stubTool{name: "a", category: CategoryKnowledgeBase}
	t2 := &stubTool{name: "b", category: CategoryKnowledgeBase}
	t3 := &stubTool{name: "c", category: CategorySummarization}
	r.Register(t1)
	r.Register(t2)
	r.Register(t3)

	assert.Equal(t, t1, r.Get("a"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.ByCategory(CategoryKnowledgeBase), 2)
	assert.Len(t, r.List(), 3)
}

func TestRegistry_RegisterReplacesDuplicate(t *testing.T) {
	r := newTestRegistry()
	first := &stubTool{name: "dup", category: CategoryKnowledgeBase}
	second := &stubTool{name: "dup", category: CategorySummarization}
	r.Register(first)
	r.Register(second)

	assert.Equal(t, second, r.Get("dup"))
	assert.Len(t, r.List(), 1)
}

func TestRegistry_InvokeMissingToolReturnsFailure(t *testing.T) {
	r := newTestRegistry()
	result := r.Invoke(context.Background(), "nope", Input{})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "nope", result.ToolName)
}

func TestRegistry_InvokeSuccess(t *testing.T) {
	r := newTestRegistry()
	r.Register(&stubTool{
		name: "ok", category: CategoryKnowledgeBase,
		result: Result{Success: true, Data: map[string]any{"k": "v"}},
	})

	result := r.Invoke(context.Background(), "ok", Input{AgentID: "a1", WorkflowID: "wf1"})
	assert.True(t, result.Success)
	assert.Equal(t, "v", result.Data["k"])
	assert.Equal(t, "ok", result.ToolName)
	assert.NotZero(t, result.Timestamp)
}

func TestRegistry_InvokeErrorSynthesizesFailure(t *testing.T) {
	r := newTestRegistry()
	r.Register(&stubTool{name: "broken", category: CategoryKnowledgeBase, err: errors.New("kaboom")})

	result := r.Invoke(context.Background(), "broken", Input{})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "kaboom")
}

func TestRegistry_InvokePanicDoesNotPropagate(t *testing.T) {
	r := newTestRegistry()
	r.Register(&stubTool{name: "panicky", category: CategoryKnowledgeBase, panics: true})

	var result Result
	assert.NotPanics(t, func() {
		result = r.Invoke(context.Background(), "panicky", Input{})
	})
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
}
