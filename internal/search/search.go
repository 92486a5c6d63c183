// Package search implements semantic search over the vector index: it
// embeds the query text and delegates similarity search to the index
// client, returning results in backend relevance order.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/rag"
)

// DefaultTopK is the number of results returned when the caller passes 0.
const DefaultTopK = 5

// Metadata keys used by the convenience filter constructors. These mirror
// the keys the ingestion side writes.
const (
	keyRepoName      = "repo_name"
	keyLanguage      = "analysis_language"
	keyFileExtension = "file_extension"
)

// SemanticSearch embeds queries and runs similarity search against the
// vector index. It is safe to call from multiple goroutines.
type SemanticSearch struct {
	// embedder converts query text to a dense vector.
	embedder rag.Embedder

	// index performs the vector similarity search.
	index rag.VectorIndex

	// defaultTopK is the result count used when the caller passes 0.
	defaultTopK int

	// metrics records search outcomes and latency. May be nil.
	metrics *metrics.Metrics

	// log reports masked failures. Never nil.
	log *slog.Logger
}

// New constructs a SemanticSearch from the given embedder and index.
func New(embedder rag.Embedder, index rag.VectorIndex, m *metrics.Metrics, log *slog.Logger) (*SemanticSearch, error) {
	if embedder == nil {
		return nil, fmt.Errorf("search: embedder must not be nil")
	}
	if index == nil {
		return nil, fmt.Errorf("search: index must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SemanticSearch{
		embedder:    embedder,
		index:       index,
		defaultTopK: DefaultTopK,
		metrics:     m,
		log:         log,
	}, nil
}

// Search returns up to topK results for the query, or an empty slice on
// any failure. Embedding and index errors are masked: callers cannot
// distinguish "backend down" from "zero matches" through this method —
// that degradation keeps an interactive assistant responsive when the
// index is unreachable. Callers that need the distinction use SearchE.
func (s *SemanticSearch) Search(ctx context.Context, query string, topK int, filter rag.Filter) []rag.SearchResult {
	results, err := s.SearchE(ctx, query, topK, filter)
	if err != nil {
		s.log.Warn("search: degraded to empty result", slog.String("error", err.Error()))
		return nil
	}
	return results
}

// SearchE is the error-reporting variant of Search: it embeds the query,
// runs the index query, and propagates any failure instead of masking it.
func (s *SemanticSearch) SearchE(ctx context.Context, query string, topK int, filter rag.Filter) ([]rag.SearchResult, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}

	start := time.Now()
	results, err := s.run(ctx, query, topK, filter)
	s.observe(start, len(results), err)
	return results, err
}

// run performs the embed + query steps.
func (s *SemanticSearch) run(ctx context.Context, query string, topK int, filter rag.Filter) ([]rag.SearchResult, error) {
	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("search: embedding query failed: %w", err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("search: embedder returned empty vector for query")
	}

	results, err := s.index.Query(ctx, embeddings[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("search: index query failed: %w", err)
	}
	return results, nil
}

// observe records metrics for one search.
func (s *SemanticSearch) observe(start time.Time, resultCount int, err error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case resultCount == 0:
		outcome = metrics.OutcomeEmpty
	}
	s.metrics.SearchesTotal.WithLabelValues(outcome).Inc()
	s.metrics.SearchDuration.Observe(time.Since(start).Seconds())
}

// SearchByRepository searches within a single repository.
func (s *SemanticSearch) SearchByRepository(ctx context.Context, query, repoName string, topK int) []rag.SearchResult {
	return s.Search(ctx, query, topK, rag.Filter{keyRepoName: metadata.String(repoName)})
}

// SearchByLanguage searches for code in a specific programming language.
func (s *SemanticSearch) SearchByLanguage(ctx context.Context, query, language string, topK int) []rag.SearchResult {
	return s.Search(ctx, query, topK, rag.Filter{keyLanguage: metadata.String(language)})
}

// SearchByFileType searches within files of a specific extension. The
// leading dot is added when missing, matching how extensions are stored.
func (s *SemanticSearch) SearchByFileType(ctx context.Context, query, extension string, topK int) []rag.SearchResult {
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return s.Search(ctx, query, topK, rag.Filter{keyFileExtension: metadata.String(extension)})
}

// Stats reports the backing index statistics.
func (s *SemanticSearch) Stats(ctx context.Context) (rag.IndexStats, error) {
	return s.index.Stats(ctx)
}
