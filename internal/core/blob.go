package core

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStore implementations when a
// Get targets a key that holds no object. The service maps it to
// NotFound; any other storage error stays retryable.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore provides an interface for document content storage backends.
// All operations use io.Reader/io.Writer for streaming so large payloads
// never need a full in-memory buffer.
type ObjectStore interface {
	// Put stores content under key. Writing the same key with the same
	// bytes is safe: pre-commit steps may be retried. Keys of committed
	// versions are never rewritten with different content.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get retrieves content by key and writes it to w. A key with no
	// object reports ErrObjectNotFound.
	Get(ctx context.Context, key string, w io.Writer) error

	// Delete removes content by key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// ValidateSetup verifies that the store is accessible and properly
	// configured.
	ValidateSetup(ctx context.Context) error
}
