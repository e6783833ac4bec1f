package llmrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

// AnthropicNativeAdapter talks to Anthropic's Messages API directly
// (grounded on the teacher's anthropic provider): the system prompt is
// a dedicated top-level field, not a message with role "system", and
// usage is reported as input_tokens/output_tokens.
type AnthropicNativeAdapter struct {
	apiKey  string
	baseURL string
	client  HTTPClient
}

func NewAnthropicNativeAdapter(apiKey, baseURL string, client HTTPClient) *AnthropicNativeAdapter {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicNativeAdapter{apiKey: apiKey, baseURL: baseURL, client: client}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema struct {
		Type string `json:"type"`
	} `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicToolDef `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text,omitempty"`
		ID    string          `json:"id,omitempty"`
		Name  string          `json:"name,omitempty"`
		Input json.RawMessage `json:"input,omitempty"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func buildAnthropicRequest(modelID string, req Request) anthropicRequest {
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var toolDefs []anthropicToolDef
	for _, name := range req.Tools {
		var def anthropicToolDef
		def.Name = name
		def.InputSchema.Type = "object"
		toolDefs = append(toolDefs, def)
	}

	return anthropicRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
		Tools:       toolDefs,
	}
}

func anthropicResponseToResponse(model *ModelInfo, apiResp *anthropicResponse) Response {
	var sb strings.Builder
	var toolCalls []ToolCall
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			sb.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, ToolCall{Name: block.Name, Arguments: block.Input})
		}
	}
	usage := TokenUsage{
		Prompt:     apiResp.Usage.InputTokens,
		Completion: apiResp.Usage.OutputTokens,
		Total:      apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens,
	}
	return Response{
		Content:    sb.String(),
		ModelUsed:  model.ID,
		Provider:   model.Provider,
		Cost:       float64(usage.Total) * model.CostPerToken,
		TokenUsage: usage,
		ToolCalls:  toolCalls,
		Metadata:   map[string]any{},
	}
}

func (a *AnthropicNativeAdapter) Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error) {
	apiResp, err := a.call(ctx, buildAnthropicRequest(model.ID, req))
	if err != nil {
		return Response{}, err
	}
	return anthropicResponseToResponse(model, apiResp), nil
}

func (a *AnthropicNativeAdapter) call(ctx context.Context, body anthropicRequest) (*anthropicResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	a.setHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(errBody))
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &apiResp, nil
}

func (a *AnthropicNativeAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}

func (a *AnthropicNativeAdapter) Ping(ctx context.Context) error {
	// Anthropic has no dedicated health endpoint; a minimal 1-token
	// request against the real endpoint is the cheapest live check.
	_, err := a.call(ctx, anthropicRequest{
		Model:     "claude-3-5-haiku-20241022",
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}
