package tools

import (
	"context"
	"fmt"
	"regexp"

	"realtorflow/platform/datastore"
)

// ComplianceCheckingTool evaluates extracted fields against the
// jurisdiction/contract-type rule table.
type ComplianceCheckingTool struct {
	store *datastore.ComplianceStore
}

func NewComplianceCheckingTool(store *datastore.ComplianceStore) *ComplianceCheckingTool {
	return &ComplianceCheckingTool{store: store}
}

func (t *ComplianceCheckingTool) Name() string       { return "compliance_checking" }
func (t *ComplianceCheckingTool) Description() string { return "evaluates extracted fields against jurisdiction-specific compliance rules" }
func (t *ComplianceCheckingTool) Category() Category  { return CategoryComplianceChecking }

// Execute expects input.Context["jurisdiction"], ["contract_type"],
// and ["fields"] (map[string]any, values coerced to string for regex
// matching).
func (t *ComplianceCheckingTool) Execute(ctx context.Context, input Input) (Result, error) {
	jurisdiction, _ := input.Context["jurisdiction"].(string)
	contractType, _ := input.Context["contract_type"].(string)
	fields, _ := input.Context["fields"].(map[string]any)
	if jurisdiction == "" || contractType == "" {
		return Result{Success: false, Errors: []string{"jurisdiction and contract_type are required"}}, nil
	}

	rules, err := t.store.RulesFor(ctx, jurisdiction, contractType)
	if err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, nil
	}

	var violations []string
	for _, rule := range rules {
		value := fmt.Sprintf("%v", fields[rule.FieldName])
		re, err := regexp.Compile(rule.RequiredRegex)
		if err != nil {
			violations = append(violations, fmt.Sprintf("rule %d has an invalid pattern: %v", rule.ID, err))
			continue
		}
		if !re.MatchString(value) {
			violations = append(violations, rule.FailureMessage)
		}
	}

	return Result{
		Success: len(violations) == 0,
		Data: map[string]any{
			"rules_checked": len(rules),
			"violations":    violations,
		},
	}, nil
}
