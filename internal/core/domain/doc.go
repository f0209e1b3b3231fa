// Package domain defines the core business entities for Lorekeep.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceFile: A file discovered in the knowledge directory
//   - Document: Extracted text of a source file
//   - Chunk: A searchable window of document text
//   - TrackingRecord: Processed state of a source file
//   - ContextHit: A single retrieval result
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
