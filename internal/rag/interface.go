// Package rag defines the interfaces and value types for the
// retrieval-augmented generation core: vector storage, similarity search
// results, and embedding. Concrete implementations (Qdrant, the HTTP
// embedders) satisfy these interfaces so the search and engine layers never
// depend on a specific backend.
package rag

import (
	"context"

	"github.com/devrag/devrag-go/internal/metadata"
)

// Record is the persisted unit of the vector index: an embedding plus its
// sanitized metadata. The ID is composed from the source filename, the
// chunk index, and a random suffix so re-ingesting the same file never
// collides with a concurrent ingest. The metadata "text" field holds a
// bounded preview of the originating chunk, not the full chunk — full
// chunk text is not retrievable after ingestion.
type Record struct {
	// ID uniquely identifies the record (e.g. "main.py_3_9f2c41aa").
	ID string

	// Values is the embedding vector, fixed dimension per collection.
	Values []float32

	// Metadata holds the sanitized payload stored alongside the vector.
	Metadata metadata.Map
}

// SearchResult is one similarity match returned by a query. It is transient
// and never persisted.
type SearchResult struct {
	// ID is the matched record's identifier.
	ID string

	// Content is the stored preview text of the matched chunk.
	Content string

	// Score is the cosine similarity assigned by the backend; higher is
	// more relevant. Results arrive already ordered by descending score.
	Score float32

	// Metadata is the full stored mapping of the matched record.
	Metadata metadata.Map
}

// Filter is an equality/membership predicate over metadata fields. A string
// value matches records whose field equals it; a string-list value matches
// records whose field equals any element. Semantics beyond that are
// backend-defined.
type Filter map[string]metadata.Value

// IndexStats summarises the state of the backing collection.
type IndexStats struct {
	// TotalVectors is the number of points currently stored.
	TotalVectors uint64

	// Dimension is the configured embedding vector size.
	Dimension uint64

	// Collection is the backing collection name.
	Collection string

	// Status is the backend-reported collection status, empty when the
	// backend does not expose one.
	Status string
}

// VectorIndex is the client interface for the external vector store.
// Implementations must be safe to call from multiple goroutines.
type VectorIndex interface {
	// Upsert stores or overwrites records keyed by ID. Records are
	// submitted in bounded batches; on a batch failure the remaining
	// batches are abandoned and the error is returned, but batches
	// already accepted by the backend stay persisted.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK matches for the given embedding, ordered
	// by descending score as returned by the backend. A nil filter
	// matches everything.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]SearchResult, error)

	// Stats reports collection-level statistics.
	Stats(ctx context.Context) (IndexStats, error)

	// Close releases any resources held by the client.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding
	// embeddings. The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
