package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

var ErrObjectNotFound = errors.New("stored object not found")

// BlobStore persists opaque objects under internally generated keys.
type BlobStore interface {
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectKey string) error
}

// NewBlobStore picks the store named by STORAGE_PROVIDER.
func NewBlobStore(ctx context.Context, provider string, gcsBucket string, localDir string) (BlobStore, error) {
	switch strings.TrimSpace(strings.ToLower(provider)) {
	case "", StorageProviderLocal:
		return NewLocalBlobStore(localDir)
	case StorageProviderGCS:
		return NewGCSBlobStore(ctx, gcsBucket)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", provider)
	}
}
