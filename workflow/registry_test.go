package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/orcerr"
)

func TestDefinitionRegistry_RegisterWorkflowTemplate_Success(t *testing.T) {
	reg := NewDefinitionRegistry()
	def := &WorkflowDefinition{
		WorkflowID: "wf-1",
		Tasks: []TaskSpec{
			{TaskID: "A"},
			{TaskID: "B", Dependencies: []string{"A"}},
		},
	}
	require.NoError(t, reg.RegisterWorkflowTemplate(def))

	got, ok := reg.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, def, got)
}

func TestDefinitionRegistry_RegisterWorkflowTemplate_SelfCycle(t *testing.T) {
	reg := NewDefinitionRegistry()
	def := &WorkflowDefinition{
		WorkflowID: "wf-cycle",
		Tasks: []TaskSpec{
			{TaskID: "A", Dependencies: []string{"A"}},
		},
	}
	err := reg.RegisterWorkflowTemplate(def)
	require.Error(t, err)
	kind, ok := orcerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, orcerr.KindValidation, kind)

	_, found := reg.Get("wf-cycle")
	assert.False(t, found)
}

func TestDefinitionRegistry_RegisterWorkflowTemplate_LongerCycle(t *testing.T) {
	reg := NewDefinitionRegistry()
	def := &WorkflowDefinition{
		WorkflowID: "wf-cycle2",
		Tasks: []TaskSpec{
			{TaskID: "A", Dependencies: []string{"C"}},
			{TaskID: "B", Dependencies: []string{"A"}},
			{TaskID: "C", Dependencies: []string{"B"}},
		},
	}
	require.Error(t, reg.RegisterWorkflowTemplate(def))
}

func TestDefinitionRegistry_RegisterWorkflowTemplate_DanglingReference(t *testing.T) {
	reg := NewDefinitionRegistry()
	def := &WorkflowDefinition{
		WorkflowID: "wf-dangling",
		Tasks: []TaskSpec{
			{TaskID: "A", Dependencies: []string{"ghost"}},
		},
	}
	err := reg.RegisterWorkflowTemplate(def)
	require.Error(t, err)
	kind, _ := orcerr.KindOf(err)
	assert.Equal(t, orcerr.KindValidation, kind)
}

func TestDefinitionRegistry_RegisterWorkflowTemplate_DuplicateTaskID(t *testing.T) {
	reg := NewDefinitionRegistry()
	def := &WorkflowDefinition{
		WorkflowID: "wf-dup",
		Tasks: []TaskSpec{
			{TaskID: "A"},
			{TaskID: "A"},
		},
	}
	require.Error(t, reg.RegisterWorkflowTemplate(def))
}

func TestDefinitionRegistry_RegisterWorkflowTemplate_NoTasks(t *testing.T) {
	reg := NewDefinitionRegistry()
	require.Error(t, reg.RegisterWorkflowTemplate(&WorkflowDefinition{WorkflowID: "wf-empty"}))
}
