package embedder

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/rag"
)

// Sequential wraps a rag.Embedder with the ingestion pipeline's failure
// policy: each text is embedded in its own blocking request, and a request
// that fails (non-success status, transport error, or timeout) yields a
// zero vector of the configured dimension at that position instead of
// aborting the batch. Output order always matches input order, and Embed
// never returns an error — callers that care about degraded entries must
// check for all-zero vectors.
//
// One request per text is a deliberate throughput ceiling, not a bug: it
// keeps a single slow or rejected item from poisoning its neighbours.
type Sequential struct {
	// inner performs the actual embedding calls.
	inner rag.Embedder

	// dimensions is the vector size used for zero-vector placeholders.
	dimensions int

	// limiter optionally paces requests toward the provider.
	limiter *rate.Limiter

	// metrics records per-item outcomes. May be nil.
	metrics *metrics.Metrics

	// log reports degraded items. Never nil.
	log *slog.Logger
}

// NewSequential constructs a Sequential wrapper around inner. dimensions
// must match the collection's vector size so zero-vector placeholders stay
// upsertable. limiter and m may be nil; log falls back to slog.Default.
func NewSequential(inner rag.Embedder, dimensions int, limiter *rate.Limiter, m *metrics.Metrics, log *slog.Logger) *Sequential {
	if log == nil {
		log = slog.Default()
	}
	return &Sequential{
		inner:      inner,
		dimensions: dimensions,
		limiter:    limiter,
		metrics:    m,
		log:        log,
	}
}

// Embed embeds each text with its own request, substituting a zero vector
// for any item whose request fails. The error result is always nil.
func (s *Sequential) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.embedOne(ctx, text)
		if s.metrics != nil {
			s.metrics.EmbeddingRequests.Inc()
		}
	}
	return out, nil
}

// embedOne returns the embedding for a single text, or a zero vector when
// the request fails for any reason.
func (s *Sequential) embedOne(ctx context.Context, text string) []float32 {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return s.degrade(err)
		}
	}

	vecs, err := s.inner.Embed(ctx, []string{text})
	if err != nil {
		return s.degrade(err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		s.log.Warn("embedder: backend returned empty vector, substituting zeros")
		if s.metrics != nil {
			s.metrics.EmbeddingFailures.Inc()
		}
		return make([]float32, s.dimensions)
	}
	return vecs[0]
}

// degrade logs the failure, counts it, and returns a zero vector.
func (s *Sequential) degrade(err error) []float32 {
	s.log.Warn("embedder: request failed, substituting zero vector", slog.String("error", err.Error()))
	if s.metrics != nil {
		s.metrics.EmbeddingFailures.Inc()
	}
	return make([]float32, s.dimensions)
}
