package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"sdmx-explorer/internal/config"
	"sdmx-explorer/internal/domain"
)

// Compile-time checks: every sink implements domain.ObjectStore.
var (
	_ domain.ObjectStore = (*LocalStore)(nil)
	_ domain.ObjectStore = (*S3Store)(nil)
	_ domain.ObjectStore = (*AzureStore)(nil)
	_ domain.ObjectStore = (*GCSStore)(nil)
)

// LocalStore writes exports below a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a LocalStore rooted at dir ("." when empty).
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = "."
	}
	return &LocalStore{dir: dir}
}

// Put writes body to dir/key, creating parent directories.
func (s *LocalStore) Put(_ context.Context, key, _ string, body io.Reader) error {
	dest := s.Location(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(dest) //nolint:gosec // path is built from the configured export dir
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

// Location returns the file path key is written to.
func (s *LocalStore) Location(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

// objectKey joins a remote prefix and key with forward slashes.
func objectKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || prefix == "." {
		return key
	}
	return path.Join(prefix, key)
}

// OpenStore builds the sink selected by cfg.Sink. For remote sinks cfg.Dir is
// used as the object key prefix.
func OpenStore(ctx context.Context, cfg config.ExportConfig) (domain.ObjectStore, error) {
	switch cfg.Sink {
	case "", config.SinkLocal:
		return NewLocalStore(cfg.Dir), nil
	case config.SinkS3:
		return NewS3Store(cfg)
	case config.SinkAzure:
		return NewAzureStore(cfg)
	case config.SinkGCS:
		return NewGCSStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported export sink %q", cfg.Sink)
	}
}
