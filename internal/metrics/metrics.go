// Package metrics registers the Prometheus instruments shared across the
// ingestion pipeline, semantic search, and the RAG engine. A Metrics value
// is constructed once per process against an explicit registry (so unit
// tests stay hermetic) and passed down as a dependency; components treat a
// nil *Metrics as "metrics disabled".
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values used by the search and query counters.
const (
	// OutcomeOK marks a successful operation.
	OutcomeOK = "ok"
	// OutcomeEmpty marks an operation that completed with no results.
	OutcomeEmpty = "empty"
	// OutcomeError marks a failed operation.
	OutcomeError = "error"
)

// Metrics holds all Prometheus instruments owned by the devrag core.
type Metrics struct {
	// ChunksIngested counts chunks produced by the ingestion pipeline.
	ChunksIngested prometheus.Counter

	// EmbeddingRequests counts individual embedding requests issued.
	EmbeddingRequests prometheus.Counter

	// EmbeddingFailures counts embedding requests degraded to zero vectors.
	EmbeddingFailures prometheus.Counter

	// RecordsUpserted counts vector records accepted by the index.
	RecordsUpserted prometheus.Counter

	// SearchesTotal counts semantic searches, partitioned by outcome.
	SearchesTotal *prometheus.CounterVec

	// SearchDuration records end-to-end search latency (embed + query).
	SearchDuration prometheus.Histogram

	// QueriesTotal counts RAG engine queries, partitioned by outcome.
	QueriesTotal *prometheus.CounterVec
}

// New registers all instruments against reg and returns the populated
// Metrics. promauto.With(reg) is used so each call registers into the
// provided registry rather than the global default.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks produced by the ingestion pipeline.",
		}),
		EmbeddingRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "embed",
			Name:      "requests_total",
			Help:      "Total number of individual embedding requests issued.",
		}),
		EmbeddingFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "embed",
			Name:      "failures_total",
			Help:      "Total number of embedding requests degraded to zero vectors.",
		}),
		RecordsUpserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "index",
			Name:      "records_upserted_total",
			Help:      "Total number of vector records accepted by the index.",
		}),
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total number of semantic searches, partitioned by outcome.",
		}, []string{"outcome"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "devrag",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end semantic search latency including query embedding.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devrag",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Total number of RAG engine queries, partitioned by outcome.",
		}, []string{"outcome"}),
	}
}
