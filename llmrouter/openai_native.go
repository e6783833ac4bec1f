package llmrouter

import (
	"context"
	"fmt"
	"net/http"
)

// OpenAINativeAdapter talks directly to OpenAI's chat-completions
// endpoint. It shares the aggregator's OpenAI-compatible wire shape
// (spec §4.3) but targets a fixed default base URL and has its own
// health check, since OpenRouter and OpenAI are independently
// available.
type OpenAINativeAdapter struct {
	apiKey  string
	baseURL string
	client  HTTPClient
}

func NewOpenAINativeAdapter(apiKey, baseURL string, client HTTPClient) *OpenAINativeAdapter {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAINativeAdapter{apiKey: apiKey, baseURL: baseURL, client: client}
}

func (o *OpenAINativeAdapter) Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error) {
	agg := &AggregatorAdapter{apiKey: o.apiKey, baseURL: o.baseURL, client: o.client}
	body := buildChatRequest(model.ID, req)
	apiResp, err := agg.call(ctx, body)
	if err != nil {
		return Response{}, fmt.Errorf("openai dispatch: %w", err)
	}
	return chatResponseToResponse(model, apiResp), nil
}

func (o *OpenAINativeAdapter) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("openai ping: status %d", resp.StatusCode)
	}
	return nil
}
