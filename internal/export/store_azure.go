package export

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"sdmx-explorer/internal/config"
)

// AzureStore uploads exports to an Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

// NewAzureStore creates an AzureStore using shared-key authentication.
func NewAzureStore(cfg config.ExportConfig) (*AzureStore, error) {
	if cfg.AzureAccount == "" || cfg.AzureKey == "" {
		return nil, fmt.Errorf("Azure account name and key are required")
	}
	if cfg.AzureContainer == "" {
		return nil, fmt.Errorf("Azure container is required")
	}

	sharedKeyCred, err := azblob.NewSharedKeyCredential(cfg.AzureAccount, cfg.AzureKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AzureAccount)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, sharedKeyCred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}

	return &AzureStore{client: client, container: cfg.AzureContainer, prefix: cfg.Dir}, nil
}

// Put streams body into container/prefix/key.
func (s *AzureStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	name := objectKey(s.prefix, key)
	_, err := s.client.UploadStream(ctx, s.container, name, body, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload blob %q: %w", name, err)
	}
	return nil
}

// Location returns the az:// URI of key.
func (s *AzureStore) Location(key string) string {
	return fmt.Sprintf("az://%s/%s", s.container, objectKey(s.prefix, key))
}
