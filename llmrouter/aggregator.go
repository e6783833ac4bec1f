package llmrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPClient is the minimal surface adapters depend on, so tests can
// substitute a mock instead of a real transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AggregatorAdapter talks to OpenRouter's OpenAI-compatible
// chat-completions endpoint (spec §4.3: one endpoint, many upstream
// models, a single wire shape to translate).
type AggregatorAdapter struct {
	apiKey  string
	baseURL string
	client  HTTPClient
}

func NewAggregatorAdapter(apiKey, baseURL string, client HTTPClient) *AggregatorAdapter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &AggregatorAdapter{apiKey: apiKey, baseURL: baseURL, client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatToolDef struct {
	Type     string `json:"type"`
	Function struct {
		Name       string `json:"name"`
		Parameters struct {
			Type string `json:"type"`
		} `json:"parameters"`
	} `json:"function"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []chatToolDef `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (a *AggregatorAdapter) Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error) {
	body := buildChatRequest(model.ID, req)
	apiResp, err := a.call(ctx, body)
	if err != nil {
		return Response{}, err
	}
	return chatResponseToResponse(model, apiResp), nil
}

func (a *AggregatorAdapter) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	a.setHeaders(httpReq)
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("aggregator ping: status %d", resp.StatusCode)
	}
	return nil
}

func (a *AggregatorAdapter) call(ctx context.Context, body chatCompletionRequest) (*chatCompletionResponse, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	a.setHeaders(httpReq)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("aggregator request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, string(errBody))
	}

	var apiResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &apiResp, nil
}

func (a *AggregatorAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
}

// buildChatRequest is shared wire-shape construction for every
// OpenAI-compatible adapter (aggregator and openai_native): messages
// with an optional system message prepended, tool names advertised
// with a generic object schema (the registry's tools accept a
// free-form input map, so there is no per-tool parameter schema to
// forward).
func buildChatRequest(modelID string, req Request) chatCompletionRequest {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	var toolDefs []chatToolDef
	for _, name := range req.Tools {
		var def chatToolDef
		def.Type = "function"
		def.Function.Name = name
		def.Function.Parameters.Type = "object"
		toolDefs = append(toolDefs, def)
	}

	return chatCompletionRequest{
		Model:       modelID,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      false,
		Tools:       toolDefs,
	}
}

// chatResponseToResponse computes cost as total_tokens * cost_per_token
// (spec §4.3) and fills in the fields the router itself doesn't.
func chatResponseToResponse(model *ModelInfo, apiResp *chatCompletionResponse) Response {
	var content string
	var toolCalls []ToolCall
	if len(apiResp.Choices) > 0 {
		msg := apiResp.Choices[0].Message
		content = msg.Content
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
		}
	}
	usage := TokenUsage{
		Prompt:     apiResp.Usage.PromptTokens,
		Completion: apiResp.Usage.CompletionTokens,
		Total:      apiResp.Usage.TotalTokens,
	}
	return Response{
		Content:    content,
		ModelUsed:  model.ID,
		Provider:   model.Provider,
		Cost:       float64(usage.Total) * model.CostPerToken,
		TokenUsage: usage,
		ToolCalls:  toolCalls,
		Metadata:   map[string]any{},
	}
}
