package driving

import "context"

// KnowledgeService maintains the knowledge graph index and answers
// context queries against it.
type KnowledgeService interface {
	// BuildIndex synchronises the graph with the knowledge directory,
	// processing new and modified files and removing deleted ones.
	// With force set, every file is reprocessed regardless of its
	// tracked checksum. Only one build runs at a time; a concurrent
	// call returns domain.ErrBuildInProgress.
	BuildIndex(ctx context.Context, force bool) (*BuildReport, error)

	// ContextForQuery embeds the query, retrieves the topK most
	// similar chunks with their sequential successors, and formats
	// them as a ranked, source-attributed text block. Before any
	// successful build it returns domain.NoContextFound rather than
	// an error. A topK of zero or less uses the configured default.
	ContextForQuery(ctx context.Context, query string, topK int) (string, error)

	// Status reports progress of the current or most recent build
	// together with graph totals.
	Status(ctx context.Context) (*IndexStatus, error)

	// Close releases the graph and embedding connections.
	// Subsequent calls are no-ops.
	Close(ctx context.Context) error
}

// BuildReport summarises a completed index build.
type BuildReport struct {
	// FilesScanned is the total number of supported files found.
	FilesScanned int

	// FilesProcessed is the number of files indexed in this build.
	FilesProcessed int

	// FilesUnchanged is the number of files skipped as up to date.
	FilesUnchanged int

	// FilesRemoved is the number of deleted files purged from the graph.
	FilesRemoved int

	// ChunksIndexed is the number of chunk nodes created.
	ChunksIndexed int

	// ErrorCount is the number of per-item failures logged and skipped.
	ErrorCount int
}

// IndexStatus represents the current state of the index.
type IndexStatus struct {
	// Building indicates if a build is currently in progress.
	Building bool

	// FilesProcessed is the count of files processed so far in the
	// running build, or in the last completed one.
	FilesProcessed int

	// ChunksIndexed is the count of chunks created so far in the
	// running build, or in the last completed one.
	ChunksIndexed int

	// ErrorCount is the number of errors encountered.
	ErrorCount int

	// TotalChunks is the number of chunk nodes in the graph.
	TotalChunks int64

	// TotalSources is the number of distinct indexed files.
	TotalSources int64
}
