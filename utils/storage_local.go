package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type localBlobStore struct {
	dir string
}

func NewLocalBlobStore(dir string) (BlobStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("LOCAL_STORAGE_DIR is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &localBlobStore{dir: dir}, nil
}

// object keys are generated internally; reject anything that could escape dir
func (s *localBlobStore) path(objectKey string) (string, error) {
	clean := filepath.Clean("/" + objectKey)
	if clean == "/" || strings.Contains(objectKey, "..") {
		return "", fmt.Errorf("invalid object key %q", objectKey)
	}
	return filepath.Join(s.dir, clean), nil
}

func (s *localBlobStore) Put(_ context.Context, objectKey string, data []byte, _ string) error {
	p, err := s.path(objectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *localBlobStore) Open(_ context.Context, objectKey string) (io.ReadCloser, error) {
	p, err := s.path(objectKey)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *localBlobStore) Delete(_ context.Context, objectKey string) error {
	p, err := s.path(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
