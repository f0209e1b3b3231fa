package domain

import "time"

// GraphSettings holds graph database connection configuration.
type GraphSettings struct {
	// URI is the bolt/neo4j connection URI.
	URI string

	// Username is the database username.
	Username string

	// Password is the database password.
	Password string

	// Database is the target database name, empty for the default.
	Database string

	// MaxRetryAttempts bounds retries of transient failures.
	MaxRetryAttempts int

	// RetryBaseDelay is the base of the exponential backoff between
	// retries. The wait before attempt n is RetryBaseDelay * 2^n.
	RetryBaseDelay time.Duration
}

// IsConfigured returns true if a connection can be attempted.
func (g GraphSettings) IsConfigured() bool {
	return g.URI != "" && g.Username != ""
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider selects the embedding backend, "openai" or "ollama".
	Provider string

	// Model is the embedding model name.
	Model string

	// APIKey is the provider API key.
	APIKey string

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string

	// Dimensions is the embedding vector size. It must match the
	// vector index configuration.
	Dimensions int

	// BatchSize is the number of chunks embedded per request.
	BatchSize int

	// RatePerSecond throttles embedding requests, zero disables
	// throttling.
	RatePerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
// Ollama runs locally and needs no API key.
func (e EmbeddingSettings) IsConfigured() bool {
	return e.Provider == "ollama" || e.APIKey != ""
}

// IndexSettings holds knowledge index configuration.
type IndexSettings struct {
	// KnowledgeDir is the directory scanned for source files.
	KnowledgeDir string

	// ChunkSize is the target chunk size in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int

	// VectorIndexName is the name of the vector index in the graph.
	VectorIndexName string

	// DefaultTopK is the result count used when a query does not
	// specify one.
	DefaultTopK int

	// TrackingKey is the blob store key of the tracking map.
	TrackingKey string
}

// StorageSettings holds local state storage configuration.
type StorageSettings struct {
	// Backend selects the tracking state store, "file" or "sqlite".
	Backend string

	// Dir overrides the state directory, empty for ~/.lorekeep.
	Dir string
}

// Settings holds all application settings.
type Settings struct {
	// Graph holds graph database settings.
	Graph GraphSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Index holds knowledge index settings.
	Index IndexSettings

	// Storage holds local state storage settings.
	Storage StorageSettings
}

// DefaultSettings returns settings with sensible defaults.
// Credentials are left unconfigured and must be supplied via the
// config file or the configure command.
func DefaultSettings() Settings {
	return Settings{
		Graph: GraphSettings{
			URI:              "bolt://localhost:7687",
			Username:         "neo4j",
			MaxRetryAttempts: 3,
			RetryBaseDelay:   time.Second,
		},
		Embedding: EmbeddingSettings{
			Provider:   "openai",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			BatchSize:  10,
		},
		Storage: StorageSettings{
			Backend: "file",
		},
		Index: IndexSettings{
			KnowledgeDir:    "knowledge_base",
			ChunkSize:       1000,
			ChunkOverlap:    200,
			VectorIndexName: "document_embeddings",
			DefaultTopK:     10,
			TrackingKey:     "knowledge_base_tracking.json",
		},
	}
}
