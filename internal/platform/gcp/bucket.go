package gcp

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/knoxfield/corpusflow/internal/platform/logger"
)

// Bucket reads record content from the origin object store for events
// that arrive without an inline buffer.
type Bucket interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Close() error
}

type bucketService struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewBucket returns (nil, nil) when no bucket is configured; the
// coordinator then requires inline buffers.
func NewBucket(log *logger.Logger, bucket string) (Bucket, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(context.Background(), ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &bucketService{
		log:    log.With("service", "gcp.Bucket"),
		client: client,
		bucket: bucket,
	}, nil
}

func (s *bucketService) Download(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s/%s: %w", s.bucket, key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

func (s *bucketService) Close() error { return s.client.Close() }
