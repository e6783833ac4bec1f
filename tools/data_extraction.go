package tools

import (
	"context"

	"realtorflow/platform/datastore"
)

// DataExtractionTool writes structured fields pulled out of an
// uploaded document to the extraction store, keyed by workflow and
// document.
type DataExtractionTool struct {
	store *datastore.ExtractionStore
}

func NewDataExtractionTool(store *datastore.ExtractionStore) *DataExtractionTool {
	return &DataExtractionTool{store: store}
}

func (t *DataExtractionTool) Name() string       { return "data_extraction" }
func (t *DataExtractionTool) Description() string { return "persists structured fields extracted from a contract document" }
func (t *DataExtractionTool) Category() Category  { return CategoryDataExtraction }

// Execute expects input.Context["document_id"] and
// input.Context["fields"] (map[string]any).
func (t *DataExtractionTool) Execute(ctx context.Context, input Input) (Result, error) {
	documentID, _ := input.Context["document_id"].(string)
	if documentID == "" {
		return Result{Success: false, Errors: []string{"document_id is required"}}, nil
	}
	fields, _ := input.Context["fields"].(map[string]any)
	if fields == nil {
		return Result{Success: false, Errors: []string{"fields is required"}}, nil
	}

	record := datastore.ExtractedFields{
		WorkflowID: input.WorkflowID,
		DocumentID: documentID,
		Fields:     fields,
	}
	if err := t.store.Save(ctx, record); err != nil {
		return Result{Success: false, Errors: []string{err.Error()}}, nil
	}

	return Result{
		Success: true,
		Data:    map[string]any{"document_id": documentID, "field_count": len(fields)},
	}, nil
}
