package driven

import (
	"context"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
)

// Chunker splits document text into overlapping windows carrying the
// document's source metadata.
type Chunker interface {
	// Split chunks the document, assigning consecutive sequence
	// indices starting at startIndex. Given identical text and
	// configuration, chunk boundaries and count are reproducible.
	Split(ctx context.Context, doc *domain.Document, startIndex int) ([]domain.Chunk, error)
}
