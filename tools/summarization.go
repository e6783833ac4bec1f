package tools

import "context"

// Summarizer calls back into the Model Router to produce a summary.
// It is a narrow function type rather than a direct dependency on the
// llmrouter package so the tool registry never needs to import the
// model router (avoiding an import cycle: llmrouter's adapters may
// themselves be invoked through tools in future extensions).
type Summarizer func(ctx context.Context, text string, maxWords int) (string, error)

// SummarizationTool produces a shortened version of arbitrary text by
// delegating to whatever model the caller wired in at construction.
type SummarizationTool struct {
	summarize Summarizer
}

func NewSummarizationTool(summarize Summarizer) *SummarizationTool {
	return &SummarizationTool{summarize: summarize}
}

func (t *SummarizationTool) Name() string       { return "summarization" }
func (t *SummarizationTool) Description() string { return "produces a shortened summary of supplied text via the model router" }
func (t *SummarizationTool) Category() Category  { return CategorySummarization }

// Execute expects input.Context["text"] and an optional
// ["max_words"] (default 150).
func (t *SummarizationTool) Execute(ctx context.Context, input Input) (Result, error) {
	text, _ := input.Context["text"].(string)
	if text == "" {
		return Result{Success: false, Errors: []string{"text is required"}}, nil
	}
	maxWords := 150
	if mw, ok := input.Context["max_words"].(int); ok && mw > 0 {
		maxWords = mw
	}

	summary, err := t.summarize(ctx, text, maxWords)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, nil
	}

	return Result{
		Success: true,
		Data:    map[string]any{"summary": summary},
	}, nil
}
