// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits document text into fixed-size overlapping chunks.
// It implements the Chunker port.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Split chunks the document text into overlapping windows, carrying
// the document's source metadata on every chunk. Sequence indices
// are consecutive starting at startIndex, so chunks of successive
// documents in a build batch never collide. Boundaries are measured
// in runes, multi-byte text is never split mid-character.
func (p *Processor) Split(_ context.Context, doc *domain.Document, startIndex int) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if doc.Text == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	runes := []rune(doc.Text)
	total := len(runes)

	step := p.chunkSize - p.overlap
	estimated := total/step + 1
	chunks := make([]domain.Chunk, 0, estimated)

	index := startIndex
	for start := 0; start < total; start += step {
		end := min(start+p.chunkSize, total)

		chunks = append(chunks, domain.Chunk{
			ID:            uuid.New().String(),
			Source:        doc.Source,
			Filename:      doc.Filename,
			Text:          string(runes[start:end]),
			SequenceIndex: index,
		})
		index++

		if end == total {
			break
		}
	}

	return chunks, nil
}
