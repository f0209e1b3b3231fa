package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lorekeep/lorekeep-cli/internal/core/domain"
	"github.com/lorekeep/lorekeep-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.GraphStore = (*Store)(nil)

// DefaultIndexName is the vector index used when none is configured.
const DefaultIndexName = "document_embeddings"

// Store persists chunks as :Chunk nodes and answers similarity
// queries through the vector index. All operations run through the
// client's retry wrapper and are idempotent, so a retried operation
// never duplicates effects.
type Store struct {
	client    *Client
	indexName string
}

// NewStore creates a graph store over an established client.
func NewStore(client *Client, indexName string) *Store {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &Store{client: client, indexName: indexName}
}

// EnsureIndexes drops and recreates the vector index and creates the
// (source, chunk_index) lookup index if absent. Index names cannot be
// parameterised in Cypher, so the statements are formatted.
func (s *Store) EnsureIndexes(ctx context.Context, dimensions int) error {
	return s.client.invoke(ctx, "ensure indexes", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeWrite)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		if _, err := session.Run(ctx,
			fmt.Sprintf("DROP INDEX %s IF EXISTS", s.indexName), nil); err != nil {
			return err
		}

		createVector := fmt.Sprintf(`
			CREATE VECTOR INDEX %s IF NOT EXISTS
			FOR (c:Chunk)
			ON c.embedding
			OPTIONS {indexConfig: {
				`+"`vector.dimensions`"+`: %d,
				`+"`vector.similarity_function`"+`: 'cosine'
			}}`, s.indexName, dimensions)
		if _, err := session.Run(ctx, createVector, nil); err != nil {
			return err
		}

		_, err = session.Run(ctx, `
			CREATE INDEX chunk_sequence_index IF NOT EXISTS
			FOR (c:Chunk)
			ON (c.source, c.chunk_index)`, nil)
		return err
	})
}

// RemoveSource deletes all chunks owned by the source path together
// with their relationships. Removing an absent source is a no-op.
func (s *Store) RemoveSource(ctx context.Context, source string) error {
	return s.client.invoke(ctx, "remove source chunks", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeWrite)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		_, err = session.Run(ctx,
			"MATCH (c:Chunk {source: $source}) DETACH DELETE c",
			map[string]any{"source": source})
		return err
	})
}

// CreateChunk stores one chunk node with its embedding.
func (s *Store) CreateChunk(ctx context.Context, chunk *domain.Chunk) error {
	return s.client.invoke(ctx, "create chunk", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeWrite)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		_, err = session.Run(ctx, `
			MERGE (c:Chunk {id: $id})
			SET c.text = $text,
			    c.source = $source,
			    c.filename = $filename,
			    c.chunk_index = $chunkIndex,
			    c.embedding = $embedding`,
			map[string]any{
				"id":         chunk.ID,
				"text":       chunk.Text,
				"source":     chunk.Source,
				"filename":   chunk.Filename,
				"chunkIndex": chunk.SequenceIndex,
				"embedding":  vectorParam(chunk.Embedding),
			})
		return err
	})
}

// LinkSequence merges NEXT_CHUNK edges between consecutive chunks of
// the source path. The merge is derivable from (source, chunk_index)
// alone and safe to rerun.
func (s *Store) LinkSequence(ctx context.Context, source string) error {
	return s.client.invoke(ctx, "link chunk sequence", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeWrite)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		_, err = session.Run(ctx, `
			MATCH (c1:Chunk {source: $source})
			MATCH (c2:Chunk {source: $source})
			WHERE c2.chunk_index = c1.chunk_index + 1
			MERGE (c1)-[:NEXT_CHUNK]->(c2)`,
			map[string]any{"source": source})
		return err
	})
}

// SimilaritySearch returns the topK nearest chunks, highest score
// first, each extended with its sequential successor's text.
func (s *Store) SimilaritySearch(ctx context.Context, embedding []float32, topK int) ([]domain.ContextHit, error) {
	var hits []domain.ContextHit

	err := s.client.invoke(ctx, "similarity search", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeRead)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		result, err := session.Run(ctx, `
			CALL db.index.vector.queryNodes($indexName, $topK, $embedding)
			YIELD node, score
			OPTIONAL MATCH (node)-[:NEXT_CHUNK]->(next:Chunk)
			RETURN node.text AS text,
			       node.filename AS filename,
			       next.text AS next_text,
			       score
			ORDER BY score DESC
			LIMIT $topK`,
			map[string]any{
				"indexName": s.indexName,
				"topK":      topK,
				"embedding": vectorParam(embedding),
			})
		if err != nil {
			return err
		}

		hits = hits[:0]
		for result.Next(ctx) {
			record := result.Record()
			hits = append(hits, domain.ContextHit{
				Text:     getString(record, "text"),
				Filename: getString(record, "filename"),
				NextText: getString(record, "next_text"),
				Score:    getFloat(record, "score"),
			})
		}
		return result.Err()
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// CountChunks returns the number of chunk nodes in the graph.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	return s.count(ctx, "MATCH (c:Chunk) RETURN count(c) AS total")
}

// CountSources returns the number of distinct source paths.
func (s *Store) CountSources(ctx context.Context) (int64, error) {
	return s.count(ctx, "MATCH (c:Chunk) RETURN count(DISTINCT c.source) AS total")
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var total int64
	err := s.client.invoke(ctx, "count", func(ctx context.Context) error {
		session, err := s.client.session(ctx, neo4j.AccessModeRead)
		if err != nil {
			return err
		}
		defer session.Close(ctx)

		result, err := session.Run(ctx, query, nil)
		if err != nil {
			return err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return err
		}
		total = getInt64(record, "total")
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Ping verifies connectivity to the graph database.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// vectorParam converts an embedding to the element type the driver
// transmits natively.
func vectorParam(embedding []float32) []float64 {
	out := make([]float64, len(embedding))
	for i, v := range embedding {
		out[i] = float64(v)
	}
	return out
}

func getString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getFloat(record *neo4j.Record, key string) float64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if f, ok := val.(float64); ok {
		return f
	}
	return 0
}

func getInt64(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if n, ok := val.(int64); ok {
		return n
	}
	return 0
}
