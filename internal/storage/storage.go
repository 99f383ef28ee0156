package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrStorage        = errors.New("storage error")
)

// ObjectStore holds encoded deliverables and preview bytes. Implementations
// are selected by config: a local directory or a MinIO bucket.
type ObjectStore interface {
	Put(ctx context.Context, path string, data io.Reader, size int64, contentType string) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	DeleteWithPrefix(ctx context.Context, prefix string) error
}
