package storage

import (
	"context"
	"fmt"
	"os"

	"realtorflow/platform/config"
)

// NewBackend constructs the Backend named by cfg.StorageBackendKind,
// reading the provider-specific settings the document_processing tool
// needs from the environment (mirroring how the rest of the core reads
// per-provider configuration alongside the main Config struct).
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackendKind {
	case config.StorageS3:
		return NewS3Backend(ctx, S3Options{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        os.Getenv("AWS_S3_ENDPOINT"),
			ForcePathStyle:  os.Getenv("AWS_S3_FORCE_PATH_STYLE") == "true",
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
	case config.StorageGCS:
		return NewGCSBackend(ctx)
	case config.StorageAzure:
		accountName := os.Getenv("AZURE_STORAGE_ACCOUNT")
		if accountName == "" {
			return nil, fmt.Errorf("AZURE_STORAGE_ACCOUNT is required for the azure storage backend")
		}
		return NewAzureBackend(accountName)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackendKind)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
