package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned by Get for a missing object
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes one stored object
type BlobInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
	ETag    string
}

// BlobStore is a flat object namespace holding reference note images
type BlobStore interface {
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Get(ctx context.Context, name string) ([]byte, error)
	Name() string
}
