// Package storage stores published channel artifacts in an object store.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStorage defines the interface for object storage operations
type ObjectStorage interface {
	// Upload stores size bytes from reader under key, replacing any existing object
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object; a missing key yields ErrNotFound
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Delete removes an object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)

	// EnsureBucket verifies the bucket is reachable, creating it where the backend allows
	EnsureBucket(ctx context.Context) error
}
