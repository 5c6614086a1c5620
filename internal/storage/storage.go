package storage

import (
	"context"
	"io"

	"github.com/knothq/mailgraph/internal/util"
)

// BlobStorage stores uploaded corpus files between the upload request and
// the worker that processes them.
type BlobStorage interface {
	Put(ctx context.Context, name string, key string, file io.ReadSeeker) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewFromEnv picks the storage backend from STORAGE_ADAPTER.
func NewFromEnv(ctx context.Context) (BlobStorage, error) {
	adapter := util.GetEnvString("STORAGE_ADAPTER", "local")
	switch adapter {
	case "s3":
		return NewS3Storage(ctx)
	default:
		return NewLocalStorage(util.GetEnvString("UPLOAD_DIR", "uploads"))
	}
}
