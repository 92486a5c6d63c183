// Package ingestion implements the document ingestion pipeline: it chunks
// loaded documents, embeds each chunk, sanitizes the document metadata, and
// upserts the results into the vector index. The pipeline is invoked by the
// `devrag ingest` CLI command.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/devrag/devrag-go/internal/chunker"
	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/rag"
	"github.com/devrag/devrag-go/internal/source"
)

// previewLength caps the chunk text stored in the index payload.
const previewLength = 1000

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per chunk.
	// Defaults to chunker.DefaultMaxSize if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between consecutive
	// chunks. Defaults to chunker.DefaultOverlap if zero.
	ChunkOverlap int
}

// Result summarizes one ingestion run.
type Result struct {
	// FilesProcessed is the number of documents fully indexed.
	FilesProcessed int
	// FilesFailed is the number of documents skipped after an error.
	FilesFailed int
	// ChunksIngested is the total number of chunks upserted.
	ChunksIngested int
}

// Pipeline orchestrates the chunk → embed → sanitize → upsert flow.
type Pipeline struct {
	// embedder converts chunks into dense vectors. Per-item failures are
	// expected to degrade inside the embedder, not surface here.
	embedder rag.Embedder

	// index persists the embedded chunks.
	index rag.VectorIndex

	// cfg holds the resolved pipeline configuration.
	cfg *Config

	// metrics records ingestion counters. May be nil.
	metrics *metrics.Metrics

	// log reports per-document failures. Never nil.
	log *slog.Logger
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, index rag.VectorIndex, cfg *Config, m *metrics.Metrics, log *slog.Logger) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultMaxSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("ingestion: chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}, nil
}

// Ingest chunks, embeds, and indexes all documents. Documents are processed
// sequentially; a document that fails at any step is logged and skipped so
// one bad file cannot abort a long run. Only context cancellation stops the
// pipeline early.
func (p *Pipeline) Ingest(ctx context.Context, docs []source.Document, progress func(msg string)) (Result, error) {
	if progress == nil {
		progress = func(string) {}
	}

	var res Result
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("ingestion: cancelled: %w", err)
		}

		name := docName(doc)
		n, err := p.ingestOne(ctx, doc)
		if err != nil {
			res.FilesFailed++
			p.log.Warn("ingestion: document skipped",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			continue
		}

		res.FilesProcessed++
		res.ChunksIngested += n
		progress(fmt.Sprintf("indexed %s (%d chunks)", name, n))
	}
	return res, nil
}

// ingestOne processes a single document and returns the number of chunks
// upserted.
func (p *Pipeline) ingestOne(ctx context.Context, doc source.Document) (int, error) {
	chunks, err := chunker.Split(doc.Text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("chunking: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no ingestible content")
	}
	if p.metrics != nil {
		p.metrics.ChunksIngested.Add(float64(len(chunks)))
	}

	embeddings, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedding count %d does not match chunk count %d", len(embeddings), len(chunks))
	}

	base := metadata.Sanitize(doc.Metadata)
	name := docName(doc)

	records := make([]rag.Record, 0, len(chunks))
	for i, chunk := range chunks {
		meta := base.Clone()
		meta["text"] = metadata.String(preview(chunk))
		meta["chunk_index"] = metadata.Number(float64(i))
		meta["total_chunks"] = metadata.Number(float64(len(chunks)))

		records = append(records, rag.Record{
			ID:       chunkID(name, i),
			Values:   embeddings[i],
			Metadata: meta,
		})
	}

	if err := p.index.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordsUpserted.Add(float64(len(records)))
	}
	return len(records), nil
}

// chunkID builds the record ID: filename, chunk index, and a random suffix
// so re-ingesting a changed file never collides with stale records.
func chunkID(filename string, index int) string {
	u := uuid.New()
	return fmt.Sprintf("%s_%d_%x", filename, index, u[:4])
}

// preview truncates chunk text to the stored payload limit.
func preview(chunk string) string {
	if len(chunk) > previewLength {
		return chunk[:previewLength]
	}
	return chunk
}

// docName returns the document's filename, or a placeholder when missing.
func docName(doc source.Document) string {
	if name, ok := doc.Metadata["filename"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}
