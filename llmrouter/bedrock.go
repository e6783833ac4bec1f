package llmrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockRuntimeClient is the subset of *bedrockruntime.Client the
// adapter needs, so tests can substitute a fake.
type BedrockRuntimeClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// bedrockAnthropicBody is the Claude-on-Bedrock InvokeModel body: the
// same message shape as AnthropicNativeAdapter, minus the model field
// (the model id travels in the InvokeModel call, not the body) and
// plus the mandated anthropic_version marker.
type bedrockAnthropicBody struct {
	AnthropicVersion string             `json:"anthropic_version"`
	Messages         []anthropicMessage `json:"messages"`
	MaxTokens        int                `json:"max_tokens"`
	System           string             `json:"system,omitempty"`
	Temperature      float64            `json:"temperature,omitempty"`
	Tools            []anthropicToolDef `json:"tools,omitempty"`
}

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockAdapter calls Claude models hosted on AWS Bedrock. It reuses
// AnthropicNativeAdapter's message-shape mapping (spec §4.3: Bedrock's
// Claude models share Anthropic's wire shape) but dispatches through
// bedrockruntime.InvokeModel instead of an HTTPClient.
type BedrockAdapter struct {
	client BedrockRuntimeClient
}

func NewBedrockAdapter(client BedrockRuntimeClient) *BedrockAdapter {
	return &BedrockAdapter{client: client}
}

func (b *BedrockAdapter) Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error) {
	anthReq := buildAnthropicRequest(model.ID, req)
	body := bedrockAnthropicBody{
		AnthropicVersion: bedrockAnthropicVersion,
		Messages:         anthReq.Messages,
		MaxTokens:        anthReq.MaxTokens,
		System:           anthReq.System,
		Temperature:      anthReq.Temperature,
		Tools:            anthReq.Tools,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling bedrock body: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model.ID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return Response{}, fmt.Errorf("bedrock invoke: %w", err)
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(out.Body, &apiResp); err != nil {
		return Response{}, fmt.Errorf("decoding bedrock response: %w", err)
	}
	return anthropicResponseToResponse(model, &apiResp), nil
}

// Ping has no cheap Bedrock-native health probe; InvokeModel itself is
// the only call the runtime role grants, so dispatch is the health
// check (the router's retry/fallback path already treats a failed
// Dispatch as unhealthy).
func (b *BedrockAdapter) Ping(ctx context.Context) error {
	return nil
}
