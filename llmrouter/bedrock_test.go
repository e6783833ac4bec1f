package llmrouter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBedrockRuntime struct {
	respBody []byte
	err      error
	lastIn   *bedrockruntime.InvokeModelInput
}

func (f *fakeBedrockRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastIn = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.respBody}, nil
}

func TestBedrockAdapter_Dispatch(t *testing.T) {
	apiResp := anthropicResponse{}
	apiResp.Content = []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	}{{Type: "text", Text: "bedrock claude reply"}}
	apiResp.Usage.InputTokens = 6
	apiResp.Usage.OutputTokens = 2
	body, err := json.Marshal(apiResp)
	require.NoError(t, err)

	fake := &fakeBedrockRuntime{respBody: body}
	b := NewBedrockAdapter(fake)
	model := newTestModel("anthropic.claude-3-5-sonnet-20241022-v2:0", ProviderBedrock)

	resp, err := b.Dispatch(context.Background(), model, Request{
		SystemPrompt: "be concise",
		Messages:     []Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "bedrock claude reply", resp.Content)
	assert.Equal(t, 8, resp.TokenUsage.Total)
	assert.Equal(t, model.ID, *fake.lastIn.ModelId)

	var sentBody bedrockAnthropicBody
	require.NoError(t, json.Unmarshal(fake.lastIn.Body, &sentBody))
	assert.Equal(t, bedrockAnthropicVersion, sentBody.AnthropicVersion)
	assert.Equal(t, "be concise", sentBody.System)
}

func TestBedrockAdapter_Dispatch_Error(t *testing.T) {
	fake := &fakeBedrockRuntime{err: errors.New("access denied")}
	b := NewBedrockAdapter(fake)
	_, err := b.Dispatch(context.Background(), newTestModel("m", ProviderBedrock), Request{})
	require.Error(t, err)
}
