package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driving"
	"github.com/lorekeep/lorekeep-cli/internal/logger"
)

// Ensure Knowledge implements the interface.
var _ driving.KnowledgeService = (*Knowledge)(nil)

// KnowledgeConfig holds build and retrieval tuning for the
// knowledge service.
type KnowledgeConfig struct {
	// KnowledgeDir is the directory scanned for source files.
	KnowledgeDir string

	// DefaultTopK is the result count used when a query does not
	// specify one.
	DefaultTopK int

	// EmbedBatchSize is the number of chunks embedded per request.
	EmbedBatchSize int

	// EmbedRatePerSecond throttles embedding requests, zero or less
	// disables throttling.
	EmbedRatePerSecond float64
}

// Knowledge synchronises the graph index with the knowledge
// directory and answers context queries against it.
type Knowledge struct {
	tracking *TrackingStore
	detector *ChangeDetector
	scanner  *Scanner
	loaders  driven.LoaderRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	graph    driven.GraphStore
	limiter  *rate.Limiter
	cfg      KnowledgeConfig

	// State tracking
	mu       sync.RWMutex
	building bool
	ready    bool
	closed   bool
	progress driving.IndexStatus
}

// NewKnowledge creates the knowledge service. All dependencies are
// required.
func NewKnowledge(
	tracking *TrackingStore,
	loaders driven.LoaderRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	graph driven.GraphStore,
	cfg KnowledgeConfig,
) *Knowledge {
	if cfg.KnowledgeDir == "" {
		cfg.KnowledgeDir = "knowledge_base"
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 10
	}

	limit := rate.Inf
	if cfg.EmbedRatePerSecond > 0 {
		limit = rate.Limit(cfg.EmbedRatePerSecond)
	}

	return &Knowledge{
		tracking: tracking,
		detector: NewChangeDetector(),
		scanner:  NewScanner(loaders.Extensions()),
		loaders:  loaders,
		chunker:  chunker,
		embedder: embedder,
		graph:    graph,
		limiter:  rate.NewLimiter(limit, 1),
		cfg:      cfg,
	}
}

// BuildIndex synchronises the graph with the knowledge directory.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (k *Knowledge) BuildIndex(ctx context.Context, force bool) (*driving.BuildReport, error) {
	if err := k.beginBuild(); err != nil {
		return nil, err
	}
	defer k.endBuild()

	report := &driving.BuildReport{}

	if err := k.tracking.Load(ctx); err != nil {
		return nil, fmt.Errorf("load tracking state: %w", err)
	}

	logger.Info("Checking for new or modified files in %s", k.cfg.KnowledgeDir)
	files, err := k.scanner.Scan(ctx, k.cfg.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("scan knowledge directory: %w", err)
	}
	report.FilesScanned = len(files)

	changes := k.detector.Detect(k.tracking.Records(), files, force)

	// Purge deleted files first, persisting tracking after the batch
	// so a crash mid-run never resurrects committed deletions.
	if len(changes.Deleted) > 0 {
		logger.Info("Removing %d deleted file(s) from the graph", len(changes.Deleted))
		for _, path := range changes.Deleted {
			if err := k.graph.RemoveSource(ctx, path); err != nil {
				return report, fmt.Errorf("remove chunks for %s: %w", path, err)
			}
			k.tracking.Remove(path)
			report.FilesRemoved++
		}
		if err := k.tracking.Flush(ctx); err != nil {
			return report, fmt.Errorf("persist tracking state: %w", err)
		}
	}

	report.FilesUnchanged = len(changes.Unchanged)
	if len(changes.ToProcess) == 0 {
		logger.Info("All files already processed, knowledge graph is up to date")
		// A no-op build only proves the index is usable when chunks
		// are actually in the graph. On a fresh graph the vector
		// index was never created, so queries must keep degrading
		// to the sentinel instead of hitting a missing index.
		if count, err := k.graph.CountChunks(ctx); err == nil && count > 0 {
			k.setReady()
		}
		return report, nil
	}

	logger.Info("Processing %d new/modified file(s)", len(changes.ToProcess))

	// Load and chunk the whole batch up front. Sequence indices are
	// consecutive across the batch, restarting at zero each build.
	var (
		batch    []domain.Chunk
		loaded   []domain.SourceFile
		seq      int
		produced = make(map[string]int)
	)
	for _, file := range changes.ToProcess {
		doc, err := k.loaders.Load(ctx, file.Path)
		if err != nil {
			if errors.Is(err, domain.ErrNoExtractableText) {
				// An empty file is not a failure. It is marked
				// processed with zero chunks so it is not re-read
				// on every build.
				logger.Warn("%s contains no extractable text", file.Name)
				loaded = append(loaded, file)
				continue
			}
			logger.Warn("Failed to load %s: %v", file.Path, err)
			report.ErrorCount++
			k.bumpErrors(1)
			continue
		}

		chunks, err := k.chunker.Split(ctx, doc, seq)
		if err != nil {
			logger.Warn("Failed to chunk %s: %v", file.Path, err)
			report.ErrorCount++
			k.bumpErrors(1)
			continue
		}

		seq += len(chunks)
		batch = append(batch, chunks...)
		produced[file.Path] = len(chunks)
		loaded = append(loaded, file)
		k.bumpFiles()
	}
	logger.Info("Created %d chunk(s) from %d file(s)", len(batch), len(loaded))

	// Drop stale chunks before recreating, so old and new chunks for
	// the same path never coexist.
	for _, file := range loaded {
		if err := k.graph.RemoveSource(ctx, file.Path); err != nil {
			return report, fmt.Errorf("remove stale chunks for %s: %w", file.Path, err)
		}
	}

	indexed, err := k.storeChunks(ctx, batch, report)
	if err != nil {
		return report, err
	}

	// Merge successor edges per file. The merge is idempotent and
	// derivable from (source, sequence index), safe to rerun.
	for _, file := range loaded {
		if err := k.graph.LinkSequence(ctx, file.Path); err != nil {
			return report, fmt.Errorf("link chunks for %s: %w", file.Path, err)
		}
	}

	if err := k.graph.EnsureIndexes(ctx, k.embedder.Dimensions()); err != nil {
		return report, fmt.Errorf("ensure indexes: %w", err)
	}

	// Partial chunk failures keep the processed mark, but a file
	// whose every chunk failed to land has nothing in the graph and
	// stays eligible for the next build.
	for _, file := range loaded {
		if produced[file.Path] > 0 && indexed[file.Path] == 0 {
			logger.Warn("No chunks stored for %s, it will be retried on the next build", file.Path)
			continue
		}
		k.tracking.Mark(file.Path, file.Checksum)
		report.FilesProcessed++
	}
	if err := k.tracking.Flush(ctx); err != nil {
		return report, fmt.Errorf("persist tracking state: %w", err)
	}

	k.setReady()
	logger.Info("Index build complete: %d chunk(s) from %d file(s), %d error(s)",
		report.ChunksIndexed, report.FilesProcessed, report.ErrorCount)
	return report, nil
}

// storeChunks embeds and creates chunk nodes in fixed-size batches,
// returning the number of chunks stored per source. A failed batch
// or chunk is logged and skipped; it does not abort the remaining
// work.
func (k *Knowledge) storeChunks(ctx context.Context, batch []domain.Chunk, report *driving.BuildReport) (map[string]int, error) {
	indexed := make(map[string]int)
	for start := 0; start < len(batch); start += k.cfg.EmbedBatchSize {
		end := min(start+k.cfg.EmbedBatchSize, len(batch))
		group := batch[start:end]

		if err := k.limiter.Wait(ctx); err != nil {
			return indexed, fmt.Errorf("embedding rate limit: %w", err)
		}

		texts := make([]string, len(group))
		for i := range group {
			texts[i] = group[i].Text
		}

		embeddings, err := k.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			logger.Warn("Embedding batch failed, skipping %d chunk(s): %v", len(group), err)
			report.ErrorCount += len(group)
			k.bumpErrors(len(group))
			continue
		}

		for i := range group {
			group[i].Embedding = embeddings[i]
			if err := k.graph.CreateChunk(ctx, &group[i]); err != nil {
				logger.Warn("Failed to store chunk %d of %s: %v",
					group[i].SequenceIndex, group[i].Source, err)
				report.ErrorCount++
				k.bumpErrors(1)
				continue
			}
			indexed[group[i].Source]++
			report.ChunksIndexed++
			k.bumpChunks()
		}
	}
	return indexed, nil
}

// ContextForQuery retrieves and formats context for a query.
func (k *Knowledge) ContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	k.mu.RLock()
	closed, ready := k.closed, k.ready
	k.mu.RUnlock()

	if closed {
		return "", domain.ErrClosed
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = k.cfg.DefaultTopK
	}

	if !ready {
		// A previous process may already have built the index. An
		// empty or unreachable index degrades to the sentinel
		// instead of failing the caller.
		count, err := k.graph.CountChunks(ctx)
		if err != nil {
			logger.Warn("Index availability check failed: %v", err)
			return domain.NoContextFound, nil
		}
		if count == 0 {
			return domain.NoContextFound, nil
		}
		k.setReady()
	}

	embedding, err := k.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	hits, err := k.graph.SimilaritySearch(ctx, embedding, topK)
	if err != nil {
		return "", fmt.Errorf("similarity search: %w", err)
	}

	context := formatContext(hits)
	if context == "" {
		return domain.NoContextFound, nil
	}
	return context, nil
}

// formatContext renders hits as a ranked, source-attributed text
// block. Each hit is followed by its successor chunk's text when one
// exists, extending continuity past the chunk boundary.
func formatContext(hits []domain.ContextHit) string {
	parts := make([]string, 0, len(hits))
	for i, hit := range hits {
		if hit.Text == "" {
			continue
		}
		text := hit.Text
		if hit.NextText != "" {
			text += "\n\n" + hit.NextText
		}
		parts = append(parts, fmt.Sprintf("[Source %d: %s]\n%s\n", i+1, hit.Filename, text))
	}
	return strings.Join(parts, "\n")
}

// Status reports build progress and graph totals. Totals are best
// effort; an unreachable graph leaves them at zero.
func (k *Knowledge) Status(ctx context.Context) (*driving.IndexStatus, error) {
	k.mu.RLock()
	status := k.progress
	status.Building = k.building
	closed := k.closed
	k.mu.RUnlock()

	if closed {
		return nil, domain.ErrClosed
	}

	if chunks, err := k.graph.CountChunks(ctx); err == nil {
		status.TotalChunks = chunks
	} else {
		logger.Debug("Chunk count unavailable: %v", err)
	}
	if sources, err := k.graph.CountSources(ctx); err == nil {
		status.TotalSources = sources
	} else {
		logger.Debug("Source count unavailable: %v", err)
	}

	return &status, nil
}

// Close releases the graph and embedding connections.
func (k *Knowledge) Close(ctx context.Context) error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	return errors.Join(k.graph.Close(ctx), k.embedder.Close())
}

func (k *Knowledge) beginBuild() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return domain.ErrClosed
	}
	if k.building {
		return domain.ErrBuildInProgress
	}
	k.building = true
	k.progress = driving.IndexStatus{}
	return nil
}

func (k *Knowledge) endBuild() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.building = false
}

func (k *Knowledge) setReady() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ready = true
}

func (k *Knowledge) bumpFiles() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.progress.FilesProcessed++
}

func (k *Knowledge) bumpChunks() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.progress.ChunksIndexed++
}

func (k *Knowledge) bumpErrors(n int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.progress.ErrorCount += n
}
