package tools

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
)

// ContractGenerationTool renders a contract body from a template
// string plus extracted fields. Purely in-process: no connector in the
// pack fits text substitution better than the standard library's
// text/template, so this tool is the one justified stdlib-only
// component in the registry.
type ContractGenerationTool struct{}

func NewContractGenerationTool() *ContractGenerationTool {
	return &ContractGenerationTool{}
}

func (t *ContractGenerationTool) Name() string        { return "contract_generation" }
func (t *ContractGenerationTool) Description() string  { return "renders a contract body from a template and extracted fields" }
func (t *ContractGenerationTool) Category() Category   { return CategoryContractGeneration }

// Execute expects input.Context["template"] (string) and
// input.Context["fields"] (map[string]any).
func (t *ContractGenerationTool) Execute(ctx context.Context, input Input) (Result, error) {
	tmplText, _ := input.Context["template"].(string)
	if tmplText == "" {
		return Result{Success: false, Errors: []string{"template is required"}}, nil
	}
	fields, _ := input.Context["fields"].(map[string]any)

	tmpl, err := template.New("contract").Parse(tmplText)
	if err != nil {
		return Result{Success: false, Errors: []string{fmt.Sprintf("parsing template: %v", err)}}, nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, fields); err != nil {
		return Result{Success: false, Errors: []string{fmt.Sprintf("rendering template: %v", err)}}, nil
	}

	return Result{
		Success: true,
		Data:    map[string]any{"document": buf.String()},
		Metadata: map[string]any{"field_count": len(fields)},
	}, nil
}
