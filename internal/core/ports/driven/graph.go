package driven

import (
	"context"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
)

// GraphStore persists chunks as graph nodes and answers vector
// similarity queries over them. Implementations wrap every operation
// in transient-failure retry, so callers treat a returned error as
// final.
//
// All mutating operations are idempotent: removing an absent source
// is a no-op, sequence links are merged rather than created, and
// index creation tolerates an existing index.
type GraphStore interface {
	// EnsureIndexes drops and recreates the vector index with the
	// given dimensionality, and creates the (source, sequence) lookup
	// index if absent.
	EnsureIndexes(ctx context.Context, dimensions int) error

	// RemoveSource deletes all chunk nodes owned by the source path,
	// along with their relationships.
	RemoveSource(ctx context.Context, source string) error

	// CreateChunk stores one chunk node with its embedding.
	CreateChunk(ctx context.Context, chunk *domain.Chunk) error

	// LinkSequence merges successor edges between consecutive chunks
	// of the source path, matching sequence index i to i+1.
	LinkSequence(ctx context.Context, source string) error

	// SimilaritySearch returns the topK chunks nearest to the query
	// embedding, highest score first, each with the text of its
	// sequential successor when one exists.
	SimilaritySearch(ctx context.Context, embedding []float32, topK int) ([]domain.ContextHit, error)

	// CountChunks returns the number of chunk nodes in the graph.
	CountChunks(ctx context.Context) (int64, error)

	// CountSources returns the number of distinct source paths with
	// at least one chunk.
	CountSources(ctx context.Context) (int64, error)

	// Ping verifies connectivity to the graph database.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
