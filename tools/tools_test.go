package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtorflow/platform/tokens"
)

func TestContractGenerationTool_RendersTemplate(t *testing.T) {
	tool := NewContractGenerationTool()
	result, err := tool.Execute(context.Background(), Input{
		Context: map[string]any{
			"template": "Sale of {{.Address}} to {{.Buyer}}",
			"fields":   map[string]any{"Address": "123 Main St", "Buyer": "Jane Doe"},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Sale of 123 Main St to Jane Doe", result.Data["document"])
}

func TestContractGenerationTool_MissingTemplate(t *testing.T) {
	tool := NewContractGenerationTool()
	result, err := tool.Execute(context.Background(), Input{Context: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestKnowledgeBaseTool_LookupFoundAndMissing(t *testing.T) {
	tool := NewKnowledgeBaseTool(map[string]string{"escrow": "a neutral third party holds funds"})

	found, err := tool.Execute(context.Background(), Input{Context: map[string]any{"topic": "Escrow"}})
	require.NoError(t, err)
	assert.True(t, found.Data["found"].(bool))

	missing, err := tool.Execute(context.Background(), Input{Context: map[string]any{"topic": "zoning"}})
	require.NoError(t, err)
	assert.False(t, missing.Data["found"].(bool))
}

func TestSignatureTrackingTool_CompletesAfterAllSigners(t *testing.T) {
	tool := NewSignatureTrackingTool(tokens.NewIssuer("test-secret"))
	ctx := context.Background()
	input := Input{
		WorkflowID: "wf1",
		Context: map[string]any{
			"document_id":      "doc1",
			"required_signers": []string{"buyer", "seller"},
		},
	}

	input.Context["record_signature"] = "buyer"
	r1, err := tool.Execute(ctx, input)
	require.NoError(t, err)
	assert.False(t, r1.Data["complete"].(bool))
	assert.Nil(t, r1.Data["completion_receipt"])

	input.Context["record_signature"] = "seller"
	r2, err := tool.Execute(ctx, input)
	require.NoError(t, err)
	assert.True(t, r2.Data["complete"].(bool))
	require.NotEmpty(t, r2.Data["completion_receipt"])
}

func TestSummarizationTool_DelegatesToSummarizer(t *testing.T) {
	tool := NewSummarizationTool(func(ctx context.Context, text string, maxWords int) (string, error) {
		return "short version", nil
	})
	result, err := tool.Execute(context.Background(), Input{Context: map[string]any{"text": "a long document"}})
	require.NoError(t, err)
	assert.Equal(t, "short version", result.Data["summary"])
}

func TestSummarizationTool_PropagatesError(t *testing.T) {
	tool := NewSummarizationTool(func(ctx context.Context, text string, maxWords int) (string, error) {
		return "", errors.New("model unavailable")
	})
	result, err := tool.Execute(context.Background(), Input{Context: map[string]any{"text": "x"}})
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestWorkflowManagementTool_ReturnsLookupResult(t *testing.T) {
	tool := NewWorkflowManagementTool(func(ctx context.Context, workflowID, taskID string) (map[string]any, error) {
		assert.Equal(t, "wf1", workflowID)
		assert.Equal(t, "task1", taskID)
		return map[string]any{"status": "completed"}, nil
	})
	result, err := tool.Execute(context.Background(), Input{WorkflowID: "wf1", Context: map[string]any{"task_id": "task1"}})
	require.NoError(t, err)
	assert.Equal(t, "completed", result.Data["status"])
}
