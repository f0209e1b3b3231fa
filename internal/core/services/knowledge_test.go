package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/postprocessors/chunker"
)

type testHarness struct {
	dir      string
	blob     *memBlobStore
	tracking *TrackingStore
	registry *fakeRegistry
	embedder *fakeEmbedder
	graph    *fakeGraph
	svc      *Knowledge
}

func newHarness(t *testing.T, cfg KnowledgeConfig) *testHarness {
	t.Helper()
	h := &testHarness{
		dir:      t.TempDir(),
		blob:     newMemBlobStore(),
		registry: newFakeRegistry(),
		embedder: &fakeEmbedder{},
		graph:    newFakeGraph(),
	}
	h.tracking = NewTrackingStore(h.blob, "tracking.json")
	cfg.KnowledgeDir = h.dir
	h.svc = NewKnowledge(h.tracking, h.registry, lineChunker{}, h.embedder, h.graph, cfg)
	return h
}

func (h *testHarness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestBuildIndex_EmptyDirectory(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesScanned)
	assert.Equal(t, 0, report.FilesProcessed)
}

// A build that indexed nothing must not unlock queries: the vector
// index was never created, so searching would fail instead of
// degrading to the sentinel.
func TestBuildIndex_EmptyDirectoryKeepsQuerySentinel(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.graph.searchErr = errors.New("There is no such vector schema index: document_embeddings")

	report, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.FilesScanned)
	assert.Zero(t, h.graph.indexedDims)

	got, err := h.svc.ContextForQuery(context.Background(), "golems", 0)

	require.NoError(t, err)
	assert.Equal(t, domain.NoContextFound, got)
}

// An incremental build with nothing to do still unlocks queries when
// the graph already holds chunks from an earlier build.
func TestBuildIndex_NoopBuildOnPopulatedGraphIsReady(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "intro\nbody")
	h.graph.searchHits = []domain.ContextHit{
		{Text: "intro", Filename: "guide.md", Score: 0.9},
	}

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	report, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesUnchanged)

	got, err := h.svc.ContextForQuery(context.Background(), "intro", 0)

	require.NoError(t, err)
	assert.Contains(t, got, "[Source 1: guide.md]")
}

func TestBuildIndex_IndexesNewFiles(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	guide := h.writeFile(t, "guide.md", "intro\nbody")
	notes := h.writeFile(t, "notes.md", "one note")

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesScanned)
	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 3, report.ChunksIndexed)
	assert.Equal(t, 0, report.ErrorCount)

	// Chunks carry embeddings and land under their source.
	assert.Len(t, h.graph.sourceChunks(guide), 2)
	assert.Len(t, h.graph.sourceChunks(notes), 1)
	for _, chunk := range h.graph.sourceChunks(guide) {
		assert.NotEmpty(t, chunk.Embedding)
	}

	// Every processed file gets its successor edges merged and the
	// vector index is rebuilt at the embedder's dimensionality.
	assert.ElementsMatch(t, []string{guide, notes}, h.graph.linkedSources)
	assert.Equal(t, 3, h.graph.indexedDims)

	// Tracking was persisted.
	_, tracked := h.tracking.Get(guide)
	assert.True(t, tracked)
	assert.Contains(t, string(h.blob.blobs["tracking.json"]), "guide.md")
}

func TestBuildIndex_SequenceIndicesSpanBatch(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	a := h.writeFile(t, "a.md", "l1\nl2")
	b := h.writeFile(t, "b.md", "l3")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	// The scanner sorts by path, so a.md is chunked first with
	// indices 0,1 and b.md continues at 2.
	chunksA := h.graph.sourceChunks(a)
	chunksB := h.graph.sourceChunks(b)
	require.Len(t, chunksA, 2)
	require.Len(t, chunksB, 1)
	assert.Equal(t, 0, chunksA[0].SequenceIndex)
	assert.Equal(t, 1, chunksA[1].SequenceIndex)
	assert.Equal(t, 2, chunksB[0].SequenceIndex)
}

func TestBuildIndex_SecondBuildSkipsUnchanged(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "intro\nbody")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesUnchanged)
	assert.Equal(t, 0, report.FilesProcessed)
	assert.Equal(t, 0, report.ChunksIndexed)
}

func TestBuildIndex_ModifiedFileReindexed(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	guide := h.writeFile(t, "guide.md", "old content")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	h.writeFile(t, "guide.md", "new content\nsecond line")
	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)

	// Stale chunks are removed before the new ones are created.
	chunks := h.graph.sourceChunks(guide)
	require.Len(t, chunks, 2)
	assert.Equal(t, "new content", chunks[0].Text)
}

func TestBuildIndex_DeletedFilePurged(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	guide := h.writeFile(t, "guide.md", "content")
	keep := h.writeFile(t, "keep.md", "kept")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, os.Remove(guide))

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesRemoved)
	assert.Empty(t, h.graph.sourceChunks(guide))
	assert.NotEmpty(t, h.graph.sourceChunks(keep))

	_, tracked := h.tracking.Get(guide)
	assert.False(t, tracked)
}

func TestBuildIndex_ForceReprocessesAll(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "content")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	report, err := h.svc.BuildIndex(context.Background(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 0, report.FilesUnchanged)
}

func TestBuildIndex_LoadFailureSkipsFileAndKeepsTrackingClean(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	good := h.writeFile(t, "good.md", "fine")
	bad := h.writeFile(t, "bad.md", "unreadable payload")
	h.registry.failPaths[bad] = true

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 1, report.ErrorCount)

	// The failed file keeps its chance on the next build.
	_, tracked := h.tracking.Get(bad)
	assert.False(t, tracked)
	_, tracked = h.tracking.Get(good)
	assert.True(t, tracked)

	// Its stale chunks were not touched either.
	assert.NotContains(t, h.graph.removed, bad)
}

func TestBuildIndex_EmptyFileMarkedProcessed(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	empty := h.writeFile(t, "empty.md", "   \n")

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 0, report.ChunksIndexed)
	assert.Equal(t, 0, report.ErrorCount)

	// Marked so it is not re-read on every build.
	_, tracked := h.tracking.Get(empty)
	assert.True(t, tracked)

	report, err = h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesUnchanged)
}

func TestBuildIndex_EmbedBatchFailureSkipsBatch(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{EmbedBatchSize: 2})
	guide := h.writeFile(t, "guide.md", "l1\nl2\nl3")
	h.embedder.batchErr = errors.New("rate limited")

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 0, report.ChunksIndexed)
	assert.Equal(t, 3, report.ErrorCount)
	// Nothing landed for the file, so it is not marked and stays
	// eligible.
	assert.Equal(t, 0, report.FilesProcessed)
	_, tracked := h.tracking.Get(guide)
	assert.False(t, tracked)
}

func TestBuildIndex_FullyFailedFileRetriedNextBuild(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "l1\nl2")
	h.embedder.batchErr = errors.New("rate limited")

	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	h.embedder.batchErr = nil
	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 2, report.ChunksIndexed)
	assert.Equal(t, 0, report.FilesUnchanged)
}

func TestBuildIndex_PartialChunkFailureStillMarks(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{EmbedBatchSize: 1})
	guide := h.writeFile(t, "guide.md", "l1\nl2")
	h.graph.createErr = errors.New("node too large")
	h.graph.createErrOnce = true

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksIndexed)
	assert.Equal(t, 1, report.ErrorCount)
	// One chunk landed, so the file keeps the processed mark.
	assert.Equal(t, 1, report.FilesProcessed)
	_, tracked := h.tracking.Get(guide)
	assert.True(t, tracked)
}

func TestBuildIndex_RespectsEmbedBatchSize(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{EmbedBatchSize: 2})
	h.writeFile(t, "guide.md", "l1\nl2\nl3\nl4\nl5")

	_, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, h.embedder.batchSizes)
}

func TestBuildIndex_RemoveSourceFailureAborts(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "content")
	h.graph.removeErr = errors.New("graph down")

	_, err := h.svc.BuildIndex(context.Background(), false)

	assert.Error(t, err)
}

func TestBuildIndex_AfterClose(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	require.NoError(t, h.svc.Close(context.Background()))

	_, err := h.svc.BuildIndex(context.Background(), false)

	assert.ErrorIs(t, err, domain.ErrClosed)
}

func TestBuildIndex_RejectsConcurrentBuild(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})

	require.NoError(t, h.svc.beginBuild())
	defer h.svc.endBuild()

	_, err := h.svc.BuildIndex(context.Background(), false)

	assert.ErrorIs(t, err, domain.ErrBuildInProgress)
}

func TestContextForQuery_EmptyQuery(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})

	_, err := h.svc.ContextForQuery(context.Background(), "   ", 0)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestContextForQuery_EmptyIndexReturnsSentinel(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})

	context1, err := h.svc.ContextForQuery(context.Background(), "anything", 0)

	require.NoError(t, err)
	assert.Equal(t, domain.NoContextFound, context1)
}

func TestContextForQuery_UnreachableIndexReturnsSentinel(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.graph.countErr = errors.New("graph down")

	got, err := h.svc.ContextForQuery(context.Background(), "anything", 0)

	require.NoError(t, err)
	assert.Equal(t, domain.NoContextFound, got)
}

func TestContextForQuery_FormatsHits(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "content")
	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	h.graph.searchHits = []domain.ContextHit{
		{Text: "Golems are clay.", Filename: "bestiary.md", NextText: "They obey words.", Score: 0.9},
		{Text: "Dragons hoard.", Filename: "dragons.md", Score: 0.7},
	}

	got, err := h.svc.ContextForQuery(context.Background(), "golem", 2)

	require.NoError(t, err)
	assert.Contains(t, got, "[Source 1: bestiary.md]")
	assert.Contains(t, got, "Golems are clay.\n\nThey obey words.")
	assert.Contains(t, got, "[Source 2: dragons.md]")
}

func TestContextForQuery_NoHitsReturnsSentinel(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "content")
	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	h.graph.searchHits = nil

	got, err := h.svc.ContextForQuery(context.Background(), "unrelated", 0)

	require.NoError(t, err)
	assert.Equal(t, domain.NoContextFound, got)
}

func TestContextForQuery_EmbedErrorPropagates(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "content")
	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	h.embedder.embedErr = errors.New("provider down")

	_, err = h.svc.ContextForQuery(context.Background(), "golem", 0)

	assert.Error(t, err)
}

func TestContextForQuery_ColdProcessFindsExistingIndex(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	// Simulate an index built by an earlier process.
	h.graph.chunks["/kb/old.md"] = []domain.Chunk{{ID: "c1", Text: "old"}}
	h.graph.searchHits = []domain.ContextHit{{Text: "old", Filename: "old.md", Score: 0.5}}

	got, err := h.svc.ContextForQuery(context.Background(), "old", 0)

	require.NoError(t, err)
	assert.Contains(t, got, "[Source 1: old.md]")
}

func TestFormatContext_SkipsEmptyText(t *testing.T) {
	got := formatContext([]domain.ContextHit{
		{Text: "", Filename: "ghost.md"},
		{Text: "real", Filename: "real.md"},
	})

	assert.NotContains(t, got, "ghost.md")
	assert.Contains(t, got, "real.md")
}

func TestStatus_ReportsTotals(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.writeFile(t, "guide.md", "l1\nl2")
	_, err := h.svc.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	status, err := h.svc.Status(context.Background())

	require.NoError(t, err)
	assert.False(t, status.Building)
	assert.Equal(t, int64(2), status.TotalChunks)
	assert.Equal(t, int64(1), status.TotalSources)
}

func TestStatus_GraphDownLeavesTotalsZero(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.graph.countErr = errors.New("graph down")

	status, err := h.svc.Status(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), status.TotalChunks)
	assert.Equal(t, int64(0), status.TotalSources)
}

func TestClose_Idempotent(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})

	require.NoError(t, h.svc.Close(context.Background()))
	require.NoError(t, h.svc.Close(context.Background()))

	assert.True(t, h.graph.closed)
	assert.True(t, h.embedder.closed)
}

// The full pipeline with the production chunker: a short file yields
// one chunk, a long file yields overlapping windows, and sequence
// indices stay consecutive across the batch.
func TestBuildIndex_ScenarioWithRealChunker(t *testing.T) {
	h := newHarness(t, KnowledgeConfig{})
	h.svc.chunker = chunker.New(chunker.WithChunkSize(1000), chunker.WithOverlap(200))

	introText := strings.Repeat("a", 600)
	rulesText := strings.Repeat("b", 2500)
	intro := h.writeFile(t, "intro.md", introText)
	rules := h.writeFile(t, "rules.md", rulesText)

	report, err := h.svc.BuildIndex(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 4, report.ChunksIndexed)

	introChunks := h.graph.sourceChunks(intro)
	require.Len(t, introChunks, 1)
	assert.Equal(t, introText, introChunks[0].Text)
	assert.Equal(t, 0, introChunks[0].SequenceIndex)

	rulesChunks := h.graph.sourceChunks(rules)
	require.Len(t, rulesChunks, 3)
	for i, c := range rulesChunks {
		assert.Equal(t, i+1, c.SequenceIndex)
		assert.NotEmpty(t, c.Embedding)
	}

	// Stored checksums match the current on-disk bytes.
	rec, ok := h.tracking.Get(rules)
	require.True(t, ok)
	assert.Equal(t, Fingerprint([]byte(rulesText)), rec.Checksum)
}
