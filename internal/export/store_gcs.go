package export

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"sdmx-explorer/internal/config"
)

// GCSStore uploads exports to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a GCSStore. Without a credentials file the client falls
// back to application default credentials.
func NewGCSStore(ctx context.Context, cfg config.ExportConfig) (*GCSStore, error) {
	if cfg.GCSBucket == "" {
		return nil, fmt.Errorf("GCS bucket is required")
	}

	var opts []option.ClientOption
	if cfg.GCSCredentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, cfg.GCSCredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}

	return &GCSStore{client: client, bucket: cfg.GCSBucket, prefix: cfg.Dir}, nil
}

// Put writes body to bucket/prefix/key.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	name := objectKey(s.prefix, key)
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs object %q: %w", name, err)
	}
	return nil
}

// Location returns the gs:// URI of key.
func (s *GCSStore) Location(key string) string {
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectKey(s.prefix, key))
}
