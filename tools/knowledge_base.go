package tools

import (
	"context"
	"strings"
)

// KnowledgeBaseTool is a read-only lookup over a small in-process fact
// table. The real-estate knowledge content itself is out of scope; the
// lookup mechanism agents rely on is what this tool exercises.
type KnowledgeBaseTool struct {
	facts map[string]string
}

func NewKnowledgeBaseTool(facts map[string]string) *KnowledgeBaseTool {
	if facts == nil {
		facts = map[string]string{}
	}
	return &KnowledgeBaseTool{facts: facts}
}

func (t *KnowledgeBaseTool) Name() string       { return "knowledge_base" }
func (t *KnowledgeBaseTool) Description() string { return "looks up reference facts by topic" }
func (t *KnowledgeBaseTool) Category() Category  { return CategoryKnowledgeBase }

// Execute expects input.Context["topic"].
func (t *KnowledgeBaseTool) Execute(ctx context.Context, input Input) (Result, error) {
	topic, _ := input.Context["topic"].(string)
	if topic == "" {
		return Result{Success: false, Errors: []string{"topic is required"}}, nil
	}

	answer, found := t.facts[strings.ToLower(topic)]
	return Result{
		Success: true,
		Data:    map[string]any{"topic": topic, "found": found, "answer": answer},
	}, nil
}
