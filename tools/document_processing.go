package tools

import (
	"context"
	"fmt"

	"realtorflow/platform/storage"
)

// DocumentProcessingTool fetches and stores contract templates and
// generated documents through a pluggable blob Backend.
type DocumentProcessingTool struct {
	backend        storage.Backend
	defaultBucket  string
}

func NewDocumentProcessingTool(backend storage.Backend, defaultBucket string) *DocumentProcessingTool {
	return &DocumentProcessingTool{backend: backend, defaultBucket: defaultBucket}
}

func (t *DocumentProcessingTool) Name() string        { return "document_processing" }
func (t *DocumentProcessingTool) Description() string  { return "fetches and stores contract templates and documents in blob storage" }
func (t *DocumentProcessingTool) Category() Category   { return CategoryDocumentProcessing }

// Execute expects input.Context["operation"] to be "get" or "put", plus
// "key" and, for "put", "content" ([]byte or string) and optional
// "content_type" and "bucket".
func (t *DocumentProcessingTool) Execute(ctx context.Context, input Input) (Result, error) {
	op, _ := input.Context["operation"].(string)
	key, _ := input.Context["key"].(string)
	if key == "" {
		return Result{Success: false, Errors: []string{"key is required"}}, nil
	}
	bucket := t.defaultBucket
	if b, ok := input.Context["bucket"].(string); ok && b != "" {
		bucket = b
	}

	switch op {
	case "get":
		data, err := t.backend.Get(ctx, bucket, key)
		if err != nil {
			return Result{Success: false, Errors: []string{err.Error()}}, nil
		}
		return Result{
			Success:  true,
			Data:     map[string]any{"content": data, "key": key, "bucket": bucket},
			Metadata: map[string]any{"backend": t.backend.Name()},
		}, nil
	case "put":
		content, err := contentBytes(input.Context["content"])
		if err != nil {
			return Result{Success: false, Errors: []string{err.Error()}}, nil
		}
		contentType, _ := input.Context["content_type"].(string)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := t.backend.Put(ctx, bucket, key, content, contentType); err != nil {
			return Result{Success: false, Errors: []string{err.Error()}}, nil
		}
		return Result{
			Success:  true,
			Data:     map[string]any{"key": key, "bucket": bucket, "bytes_written": len(content)},
			Metadata: map[string]any{"backend": t.backend.Name()},
		}, nil
	default:
		return Result{Success: false, Errors: []string{fmt.Sprintf("unsupported operation %q", op)}}, nil
	}
}

func contentBytes(v any) ([]byte, error) {
	switch c := v.(type) {
	case []byte:
		return c, nil
	case string:
		return []byte(c), nil
	default:
		return nil, fmt.Errorf("content must be string or []byte")
	}
}
