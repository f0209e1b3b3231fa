// Command lorekeep is the knowledge base CLI. It wires the adapters
// to the core services and hands control to the command tree.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	configfile "github.com/lorekeep/lorekeep-cli/internal/adapters/driven/config/file"
	"github.com/lorekeep/lorekeep-cli/internal/adapters/driven/embedding/ollama"
	"github.com/lorekeep/lorekeep-cli/internal/adapters/driven/embedding/openai"
	"github.com/lorekeep/lorekeep-cli/internal/adapters/driven/graph/neo4j"
	storagefile "github.com/lorekeep/lorekeep-cli/internal/adapters/driven/storage/file"
	"github.com/lorekeep/lorekeep-cli/internal/adapters/driven/storage/sqlite"
	"github.com/lorekeep/lorekeep-cli/internal/adapters/driving/cli"
	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
	"github.com/lorekeep/lorekeep-cli/internal/core/services"
	"github.com/lorekeep/lorekeep-cli/internal/loaders"
	"github.com/lorekeep/lorekeep-cli/internal/loaders/markdown"
	"github.com/lorekeep/lorekeep-cli/internal/loaders/pdf"
	"github.com/lorekeep/lorekeep-cli/internal/postprocessors/chunker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	store, err := configfile.NewSettingsStore(os.Getenv("LOREKEEP_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	cli.SetSettingsStore(store)

	settings := loadSettings(store)
	cli.SetKnowledgeDir(settings.Index.KnowledgeDir)

	// Commands that never touch the graph or the embedder must work
	// without either being reachable, so the knowledge service is
	// assembled lazily on first use.
	if needsKnowledgeService(os.Args[1:]) {
		svc, cleanup, err := buildKnowledgeService(ctx, settings)
		if err != nil {
			return err
		}
		defer cleanup()
		cli.SetKnowledgeService(svc)
	}

	return cli.Execute()
}

// needsKnowledgeService reports whether the invoked command requires
// the full service stack. Configuration and help must not fail just
// because Neo4j is down.
func needsKnowledgeService(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "build", "query", "status", "watch", "mcp":
			return true
		case "configure", "version", "help", "completion", "--help", "-h":
			return false
		}
	}
	return false
}

// buildKnowledgeService assembles the driven adapters and the core
// service. The returned cleanup closes everything it opened.
func buildKnowledgeService(ctx context.Context, settings domain.Settings) (*services.Knowledge, func(), error) {
	if !settings.Graph.IsConfigured() {
		return nil, nil, fmt.Errorf("graph connection not configured, run 'lorekeep configure'")
	}
	if !settings.Embedding.IsConfigured() {
		return nil, nil, fmt.Errorf("embedding provider not configured, run 'lorekeep configure'")
	}

	blob, err := openBlobStore(settings.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("opening state storage: %w", err)
	}

	client, err := neo4j.Connect(ctx, neo4j.Config{
		URI:              settings.Graph.URI,
		Username:         settings.Graph.Username,
		Password:         settings.Graph.Password,
		Database:         settings.Graph.Database,
		MaxRetryAttempts: settings.Graph.MaxRetryAttempts,
		RetryBaseDelay:   settings.Graph.RetryBaseDelay,
	})
	if err != nil {
		_ = blob.Close()
		return nil, nil, err
	}
	graph := neo4j.NewStore(client, settings.Index.VectorIndexName)

	embedder, err := openEmbedder(settings.Embedding)
	if err != nil {
		_ = graph.Close(ctx)
		_ = blob.Close()
		return nil, nil, fmt.Errorf("creating embedding service: %w", err)
	}

	registry := loaders.NewRegistry()
	registry.Register(pdf.New())
	registry.Register(markdown.New())

	splitter := chunker.New(
		chunker.WithChunkSize(settings.Index.ChunkSize),
		chunker.WithOverlap(settings.Index.ChunkOverlap),
	)

	tracking := services.NewTrackingStore(blob, settings.Index.TrackingKey)

	svc := services.NewKnowledge(tracking, registry, splitter, embedder, graph, services.KnowledgeConfig{
		KnowledgeDir:       settings.Index.KnowledgeDir,
		DefaultTopK:        settings.Index.DefaultTopK,
		EmbedBatchSize:     settings.Embedding.BatchSize,
		EmbedRatePerSecond: settings.Embedding.RatePerSecond,
	})

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Close(shutdownCtx)
		_ = blob.Close()
	}
	return svc, cleanup, nil
}

// openEmbedder builds the embedding service for the configured
// provider. Unknown providers fall back to OpenAI.
func openEmbedder(cfg domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if cfg.Provider == "ollama" {
		return ollama.New(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	}
	return openai.New(openai.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
	})
}

// openBlobStore picks the state backend. "sqlite" keeps all state in
// one database file, anything else uses plain files.
func openBlobStore(cfg domain.StorageSettings) (driven.BlobStore, error) {
	if cfg.Backend == "sqlite" {
		return sqlite.NewBlobStore(cfg.Dir)
	}
	return storagefile.NewBlobStore(cfg.Dir)
}

// loadSettings merges the config file over the defaults.
func loadSettings(store driven.SettingsStore) domain.Settings {
	settings := domain.DefaultSettings()

	if v := store.GetString("graph.uri"); v != "" {
		settings.Graph.URI = v
	}
	if v := store.GetString("graph.username"); v != "" {
		settings.Graph.Username = v
	}
	if v := store.GetString("graph.password"); v != "" {
		settings.Graph.Password = v
	}
	if v := store.GetString("graph.database"); v != "" {
		settings.Graph.Database = v
	}
	if v := store.GetInt("graph.max_retry_attempts"); v > 0 {
		settings.Graph.MaxRetryAttempts = v
	}
	if v := store.GetFloat("graph.retry_base_delay_seconds"); v > 0 {
		settings.Graph.RetryBaseDelay = time.Duration(v * float64(time.Second))
	}

	if v := store.GetString("embedding.provider"); v != "" {
		settings.Embedding.Provider = v
		if v == "ollama" {
			// Let the adapter pick its own model and dimensions
			// unless the config names them explicitly.
			settings.Embedding.Model = ""
			settings.Embedding.Dimensions = 0
		}
	}
	if v := store.GetString("embedding.model"); v != "" {
		settings.Embedding.Model = v
	}
	if v := store.GetString("embedding.api_key"); v != "" {
		settings.Embedding.APIKey = v
	}
	if v := store.GetString("embedding.base_url"); v != "" {
		settings.Embedding.BaseURL = v
	}
	if v := store.GetInt("embedding.dimensions"); v > 0 {
		settings.Embedding.Dimensions = v
	}
	if v := store.GetInt("embedding.batch_size"); v > 0 {
		settings.Embedding.BatchSize = v
	}
	if v := store.GetFloat("embedding.rate_per_second"); v > 0 {
		settings.Embedding.RatePerSecond = v
	}

	if v := store.GetString("index.knowledge_dir"); v != "" {
		settings.Index.KnowledgeDir = v
	}
	if v := store.GetInt("index.chunk_size"); v > 0 {
		settings.Index.ChunkSize = v
	}
	if v := store.GetInt("index.chunk_overlap"); v > 0 {
		settings.Index.ChunkOverlap = v
	}
	if v := store.GetString("index.vector_index_name"); v != "" {
		settings.Index.VectorIndexName = v
	}
	if v := store.GetInt("index.default_top_k"); v > 0 {
		settings.Index.DefaultTopK = v
	}
	if v := store.GetString("index.tracking_key"); v != "" {
		settings.Index.TrackingKey = v
	}

	if v := store.GetString("storage.backend"); v != "" {
		settings.Storage.Backend = v
	}
	if v := store.GetString("storage.dir"); v != "" {
		settings.Storage.Dir = v
	}
	if v := os.Getenv("LOREKEEP_STATE_BACKEND"); v != "" {
		settings.Storage.Backend = v
	}
	if v := os.Getenv("LOREKEEP_STATE_DIR"); v != "" {
		settings.Storage.Dir = v
	}

	// Environment overrides for secrets, so keys need not live in
	// the config file.
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" && settings.Graph.Password == "" {
		settings.Graph.Password = v
	}

	return settings
}
