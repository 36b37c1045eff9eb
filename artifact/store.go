package artifact

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named artifact does not exist.
//
// Implementations must return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("artifact not found")

// Store is an abstraction over artifact storage. Artifacts are small whole
// blobs, so the interface is byte-oriented rather than streaming.
type Store interface {
	// Get returns the content of the named artifact.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes an artifact atomically, replacing any existing content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes an artifact. Deleting a missing artifact is not an
	// error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all artifacts with the given prefix, in
	// ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
}
