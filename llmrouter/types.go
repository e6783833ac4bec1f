// Package llmrouter implements the Model Router (spec §4.3): the
// single entry point for every LLM call the agent runtime makes. It
// owns the model registry, the selection policy, health status,
// provider adapters, retries, and token/cost accounting.
package llmrouter

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Provider identifies which backend a ModelInfo is served by.
type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderLocal      Provider = "local"
	ProviderBedrock    Provider = "bedrock"
)

// ModelInfo is the registry's view of one callable model (spec §3).
type ModelInfo struct {
	ID               string
	Name             string
	Provider         Provider
	CostPerToken     float64
	ContextLength    int
	Capabilities     []string
	PerformanceScore float64 // in [0, 1]

	available       atomic.Bool
	lastHealthCheck atomic.Int64 // unix nanos
}

func (m *ModelInfo) IsAvailable() bool { return m.available.Load() }

// SetAvailable flips availability with compare-and-set semantics so
// two concurrent failures from the same provider's models produce a
// single observable flip, not a flapping sequence (spec §4.3
// concurrency requirement).
func (m *ModelInfo) SetAvailable(v bool) {
	m.available.CompareAndSwap(!v, v)
}

func (m *ModelInfo) LastHealthCheck() time.Time {
	ns := m.lastHealthCheck.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func (m *ModelInfo) touchHealthCheck(at time.Time) {
	m.lastHealthCheck.Store(at.UnixNano())
}

// Message is one entry in a ModelRequest's ordered conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the common shape every provider adapter converts to its
// own wire format.
type Request struct {
	Messages        []Message
	SystemPrompt    string
	MaxTokens       int
	Temperature     float64
	Stream          bool
	Tools           []string
	ModelPreference string
}

// ToolCall is one tool invocation the model requested instead of (or
// alongside) a final answer. Arguments is the tool's raw JSON
// argument object, opaque to the router — the agent runtime decodes
// it against the target tool's expected input shape.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// TokenUsage is the accounting breakdown attached to every Response.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Response is what generate_response returns on success.
type Response struct {
	Content        string
	ModelUsed      string
	Provider       Provider
	Cost           float64
	ProcessingTime time.Duration
	TokenUsage     TokenUsage
	ToolCalls      []ToolCall
	Metadata       map[string]any
}
