package artifact

import (
	"context"
	"fmt"
	"time"
)

const (
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Store is the object storage used for templates and generated files.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

var (
	_ Store = (*S3Store)(nil)
	_ Store = (*MemoryStore)(nil)
)

// Open returns the store named by driver. The S3 bucket must already exist.
func Open(ctx context.Context, driver string, opts S3Options) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverS3, "":
		s, err := NewS3Store(ctx, opts)
		if err != nil {
			return nil, err
		}

		if err := s.CheckBucket(ctx); err != nil {
			return nil, err
		}

		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
