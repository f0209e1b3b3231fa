package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file format no loader handles.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoExtractableText indicates a file was read successfully but
	// yielded no text content. Such files are skipped with a warning,
	// not treated as failures.
	ErrNoExtractableText = errors.New("no extractable text")

	// ErrBuildInProgress indicates an index build is already running.
	ErrBuildInProgress = errors.New("index build in progress")

	// ErrClosed indicates the service has been closed.
	ErrClosed = errors.New("service closed")

	// ErrGraphUnavailable indicates the graph database cannot be
	// reached. Raised at startup when the initial connection fails,
	// it is fatal and never retried.
	ErrGraphUnavailable = errors.New("graph database unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// NoContextFound is returned by retrieval when the index holds no
// relevant chunks or has not been built yet. Callers treat it as a
// normal answer, not an error.
const NoContextFound = "No relevant information found in the knowledge base."
