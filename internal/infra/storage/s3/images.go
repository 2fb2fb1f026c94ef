package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wanderlust/internal/app/policies"
)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ImageStore removes listing images from an S3-compatible bucket. Uploads
// happen in the image service; this side only cleans up after deletions.
type ImageStore struct {
	bucket  string
	objects objectRemover
	logger  *slog.Logger
}

type objectRemover interface {
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

func NewImageStore(opts Options, logger *slog.Logger) (*ImageStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(parseEndpoint(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageStore{bucket: bucket, objects: client, logger: logger}, nil
}

// Delete removes the object; a missing object is not an error.
func (s *ImageStore) Delete(ctx context.Context, filename string) error {
	key := objectKey(filename)
	if key == "" {
		return nil
	}
	if err := s.objects.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("s3: remove %s: %w", key, err)
	}
	s.logger.Info("listing image removed", "bucket", s.bucket, "key", key)
	return nil
}

func objectKey(filename string) string {
	return strings.Trim(strings.TrimSpace(filename), "/")
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

// NoopImageStore is used when no bucket is configured.
type NoopImageStore struct{}

func (NoopImageStore) Delete(context.Context, string) error { return nil }

var (
	_ policies.ImageStore = (*ImageStore)(nil)
	_ policies.ImageStore = NoopImageStore{}
)
