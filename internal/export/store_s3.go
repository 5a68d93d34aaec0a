package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sdmx-explorer/internal/config"
)

// S3Store uploads exports to an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Store creates an S3Store. A custom endpoint switches to path-style
// addressing, which most S3-compatible providers require.
func NewS3Store(cfg config.ExportConfig) (*S3Store, error) {
	if !cfg.HasS3Config() {
		return nil, fmt.Errorf("S3 config is incomplete")
	}

	opts := s3.Options{
		Region: *cfg.S3Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			*cfg.S3KeyID, *cfg.S3Secret, "",
		),
	}
	if cfg.S3Endpoint != nil && *cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(endpointURL(*cfg.S3Endpoint))
		opts.UsePathStyle = true
	}

	return &S3Store{
		client: s3.New(opts),
		bucket: *cfg.S3Bucket,
		prefix: cfg.Dir,
	}, nil
}

// Put uploads body as bucket/prefix/key.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, key)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3 object %q: %w", objectKey(s.prefix, key), err)
	}
	return nil
}

// Location returns the s3:// URI of key.
func (s *S3Store) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey(s.prefix, key))
}

// endpointURL adds an https scheme to a bare host.
func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "https://" + endpoint
}
