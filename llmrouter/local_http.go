package llmrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LocalHTTPAdapter calls a self-hosted Ollama-compatible server. Local
// inference reports no token usage, so the adapter approximates it
// from word counts and treats cost as zero (spec §4.3: local models
// carry no per-token billing).
type LocalHTTPAdapter struct {
	baseURL string
	client  HTTPClient
}

func NewLocalHTTPAdapter(baseURL string, client HTTPClient) *LocalHTTPAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &LocalHTTPAdapter{baseURL: baseURL, client: client}
}

type localChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  localOptions  `json:"options,omitempty"`
}

type localOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type localChatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (l *LocalHTTPAdapter) Dispatch(ctx context.Context, model *ModelInfo, req Request) (Response, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	body := localChatRequest{
		Model:    model.ID,
		Messages: messages,
		Stream:   false,
		Options: localOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling local request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewBuffer(reqBody))
	if err != nil {
		return Response{}, fmt.Errorf("building local request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("local http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("local server returned status %d", resp.StatusCode)
	}

	var apiResp localChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Response{}, fmt.Errorf("decoding local response: %w", err)
	}

	usage := estimateLocalUsage(apiResp.Message.Content)
	return Response{
		Content:    apiResp.Message.Content,
		ModelUsed:  model.ID,
		Provider:   model.Provider,
		Cost:       0,
		TokenUsage: usage,
		Metadata:   map[string]any{},
	}, nil
}

// estimateLocalUsage approximates token usage from the response
// content alone as word_count * 1.3, then splits that single estimate
// 70/30 between prompt and completion. Ollama reports no usage field
// at all, so there is nothing to measure on the prompt side.
func estimateLocalUsage(completion string) TokenUsage {
	estimated := float64(len(strings.Fields(completion))) * 1.3
	prompt := int(estimated * 0.7)
	comp := int(estimated * 0.3)
	return TokenUsage{Prompt: prompt, Completion: comp, Total: prompt + comp}
}

func (l *LocalHTTPAdapter) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("local ping: status %d", resp.StatusCode)
	}
	return nil
}
