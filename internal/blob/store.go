// Package blob abstracts durable byte storage for chunk payloads and
// assembled media objects. Keys are slash-separated paths.
package blob

import (
	"context"
	"io"
)

// Store is the minimal contract the upload pipeline needs. Put must
// materialize the object atomically: a reader error or crash mid-write
// must never leave a partial object visible under key.
type Store interface {
	// Put streams r into the object at key and returns the byte count.
	Put(ctx context.Context, key string, r io.Reader) (int64, error)

	// Open returns a reader over the object. common.ErrorNotFound when
	// the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
