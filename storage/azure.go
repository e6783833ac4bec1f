package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBackend stores documents in Azure Blob Storage, using the
// default Azure credential chain.
type AzureBackend struct {
	client *azblob.Client
}

func NewAzureBackend(accountName string) (*AzureBackend, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("acquiring Azure credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Azure blob client: %w", err)
	}
	return &AzureBackend{client: client}, nil
}

func (b *AzureBackend) Get(ctx context.Context, container, key string) ([]byte, error) {
	resp, err := b.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("azure get %s/%s: %w", container, key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azure read %s/%s: %w", container, key, err)
	}
	return data, nil
}

func (b *AzureBackend) Put(ctx context.Context, container, key string, data []byte, contentType string) error {
	ct := contentType
	_, err := b.client.UploadBuffer(ctx, container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &azblob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		return fmt.Errorf("azure put %s/%s: %w", container, key, err)
	}
	return nil
}

func (b *AzureBackend) Name() string { return "azure" }
