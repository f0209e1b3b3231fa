// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Loader: Extracts text from a source file format
//   - LoaderRegistry: Dispatches files to the right loader
//   - Chunker: Splits document text into indexed chunks
//   - GraphStore: Chunk persistence and vector search in the graph database
//   - EmbeddingService: Generates vector embeddings
//   - BlobStore: Opaque blob persistence for tracking state
//   - SettingsStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or loader package
package driven
