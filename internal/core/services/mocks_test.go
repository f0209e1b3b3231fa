package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// memBlobStore is an in-memory blob store for tests.
type memBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	failRead  bool
	failWrite bool
}

var _ driven.BlobStore = (*memBlobStore)(nil)

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (m *memBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return nil, fmt.Errorf("blob store unavailable")
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: blob %q", domain.ErrNotFound, key)
	}
	return data, nil
}

func (m *memBlobStore) Write(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return fmt.Errorf("blob store unavailable")
	}
	m.blobs[key] = data
	return nil
}

func (m *memBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *memBlobStore) Close() error { return nil }

// fakeRegistry loads files from disk as plain text documents. Paths
// listed in failPaths fail to load.
type fakeRegistry struct {
	extensions []string
	failPaths  map[string]bool
}

var _ driven.LoaderRegistry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		extensions: []string{".md"},
		failPaths:  make(map[string]bool),
	}
}

func (r *fakeRegistry) Register(driven.Loader) {}

func (r *fakeRegistry) Load(_ context.Context, path string) (*domain.Document, error) {
	if r.failPaths[path] {
		return nil, fmt.Errorf("load %s: corrupt file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNoExtractableText)
	}
	return &domain.Document{
		Source:   path,
		Filename: filepath.Base(path),
		Text:     text,
		Type:     domain.FileTypeMarkdown,
	}, nil
}

func (r *fakeRegistry) Extensions() []string { return r.extensions }

// lineChunker produces one chunk per non-empty line, making chunk
// counts and sequence indices easy to predict in tests.
type lineChunker struct{}

var _ driven.Chunker = (*lineChunker)(nil)

func (lineChunker) Split(_ context.Context, doc *domain.Document, startIndex int) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	var chunks []domain.Chunk
	index := startIndex
	for _, line := range strings.Split(doc.Text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			ID:            fmt.Sprintf("%s#%d", doc.Filename, index),
			Source:        doc.Source,
			Filename:      doc.Filename,
			Text:          line,
			SequenceIndex: index,
		})
		index++
	}
	return chunks, nil
}

// fakeEmbedder returns fixed-size vectors and records batch sizes.
type fakeEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
	embedErr   error
	batchErr   error
	closed     bool
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{1, 2, 3}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(texts))
	f.mu.Unlock()
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1, 2}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int   { return 3 }
func (f *fakeEmbedder) ModelName() string { return "fake-embedding" }

func (f *fakeEmbedder) Ping(context.Context) error { return nil }

func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

// fakeGraph keeps chunks per source in memory and records the
// operations run against it.
type fakeGraph struct {
	mu sync.Mutex

	chunks        map[string][]domain.Chunk
	linkedSources []string
	removed       []string
	indexedDims   int

	removeErr error
	createErr     error
	createErrOnce bool
	linkErr       error
	indexErr      error
	countErr      error

	searchHits []domain.ContextHit
	searchErr  error

	closed bool
}

var _ driven.GraphStore = (*fakeGraph)(nil)

func newFakeGraph() *fakeGraph {
	return &fakeGraph{chunks: make(map[string][]domain.Chunk)}
}

func (g *fakeGraph) EnsureIndexes(_ context.Context, dimensions int) error {
	if g.indexErr != nil {
		return g.indexErr
	}
	g.mu.Lock()
	g.indexedDims = dimensions
	g.mu.Unlock()
	return nil
}

func (g *fakeGraph) RemoveSource(_ context.Context, source string) error {
	if g.removeErr != nil {
		return g.removeErr
	}
	g.mu.Lock()
	g.removed = append(g.removed, source)
	delete(g.chunks, source)
	g.mu.Unlock()
	return nil
}

func (g *fakeGraph) CreateChunk(_ context.Context, chunk *domain.Chunk) error {
	if g.createErr != nil {
		err := g.createErr
		if g.createErrOnce {
			g.createErr = nil
		}
		return err
	}
	g.mu.Lock()
	g.chunks[chunk.Source] = append(g.chunks[chunk.Source], *chunk)
	g.mu.Unlock()
	return nil
}

func (g *fakeGraph) LinkSequence(_ context.Context, source string) error {
	if g.linkErr != nil {
		return g.linkErr
	}
	g.mu.Lock()
	g.linkedSources = append(g.linkedSources, source)
	g.mu.Unlock()
	return nil
}

func (g *fakeGraph) SimilaritySearch(context.Context, []float32, int) ([]domain.ContextHit, error) {
	if g.searchErr != nil {
		return nil, g.searchErr
	}
	return g.searchHits, nil
}

func (g *fakeGraph) CountChunks(context.Context) (int64, error) {
	if g.countErr != nil {
		return 0, g.countErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var total int64
	for _, chunks := range g.chunks {
		total += int64(len(chunks))
	}
	return total, nil
}

func (g *fakeGraph) CountSources(context.Context) (int64, error) {
	if g.countErr != nil {
		return 0, g.countErr
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(len(g.chunks)), nil
}

func (g *fakeGraph) Ping(context.Context) error { return nil }

func (g *fakeGraph) Close(context.Context) error {
	g.closed = true
	return nil
}

func (g *fakeGraph) sourceChunks(source string) []domain.Chunk {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.Chunk, len(g.chunks[source]))
	copy(out, g.chunks[source])
	return out
}
