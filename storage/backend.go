// Package storage provides the pluggable blob backend behind the
// document_processing tool: templates and generated contract documents
// are fetched and written through a single Backend interface,
// regardless of which cloud object store a deployment points at.
package storage

import "context"

// Backend is the minimal blob contract document_processing needs: get
// and put whole objects by key within one bucket/container.
type Backend interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Name() string
}
