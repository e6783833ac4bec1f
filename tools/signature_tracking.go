package tools

import (
	"context"
	"sync"

	"realtorflow/platform/tokens"
)

// SignatureTrackingTool records per-signer completion state for a
// document and, once every required signer has signed, mints a JWT
// completion receipt via tokens.Issuer.
type SignatureTrackingTool struct {
	issuer *tokens.Issuer

	mu    sync.Mutex
	state map[string]map[string]bool // document_id -> signer -> signed
}

func NewSignatureTrackingTool(issuer *tokens.Issuer) *SignatureTrackingTool {
	return &SignatureTrackingTool{issuer: issuer, state: make(map[string]map[string]bool)}
}

func (t *SignatureTrackingTool) Name() string       { return "signature_tracking" }
func (t *SignatureTrackingTool) Description() string { return "tracks signer completion and mints a receipt once all required parties have signed" }
func (t *SignatureTrackingTool) Category() Category  { return CategorySignatureTracking }

// Execute expects input.Context["document_id"], ["required_signers"]
// ([]string), and either a ["record_signature"] signer name to mark
// signed, or no signer to just poll status.
func (t *SignatureTrackingTool) Execute(ctx context.Context, input Input) (Result, error) {
	documentID, _ := input.Context["document_id"].(string)
	if documentID == "" {
		return Result{Success: false, Errors: []string{"document_id is required"}}, nil
	}
	required := toStringSlice(input.Context["required_signers"])

	t.mu.Lock()
	signed, ok := t.state[documentID]
	if !ok {
		signed = make(map[string]bool)
		t.state[documentID] = signed
	}
	if signer, ok := input.Context["record_signature"].(string); ok && signer != "" {
		signed[signer] = true
	}
	complete := len(required) > 0
	for _, r := range required {
		if !signed[r] {
			complete = false
			break
		}
	}
	snapshot := make(map[string]bool, len(signed))
	for k, v := range signed {
		snapshot[k] = v
	}
	t.mu.Unlock()

	data := map[string]any{
		"document_id":      documentID,
		"signed":           snapshot,
		"complete":         complete,
		"required_signers": required,
	}

	if complete {
		receipt, err := t.issuer.IssueCompletionReceipt(input.WorkflowID, documentID, required)
		if err != nil {
			return Result{Success: false, Errors: []string{err.Error()}}, nil
		}
		data["completion_receipt"] = receipt
	}

	return Result{Success: true, Data: data}, nil
}

func toStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
