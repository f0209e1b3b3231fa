package driven

import "context"

// BlobStore persists opaque named blobs. The tracking map lives here
// as a single blob so that builds survive process restarts.
//
// Implementations may include:
//   - Local files under the application state directory
//   - A SQLite key/value table
type BlobStore interface {
	// Read returns the blob stored under key.
	// Returns domain.ErrNotFound if no blob exists.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, replacing any existing blob.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the blob under key. Deleting a missing blob
	// is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
