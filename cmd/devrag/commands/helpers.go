package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/devrag/devrag-go/internal/embedder"
	"github.com/devrag/devrag-go/internal/engine"
	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/provider"
	"github.com/devrag/devrag-go/internal/rag"
	"github.com/devrag/devrag-go/internal/search"
	"github.com/devrag/devrag-go/internal/store"
	"github.com/devrag/devrag-go/internal/tracing"
)

// defaultCollection is the Qdrant collection used when QDRANT_COLLECTION is
// unset.
const defaultCollection = "devrag-code"

// openIndex connects to Qdrant using env configuration. The collection's
// vector size follows the resolved embedding backend.
func openIndex(ctx context.Context) (*rag.QdrantIndex, error) {
	backend := embedder.ResolveBackend()
	return rag.NewQdrantIndex(ctx, &rag.QdrantConfig{
		Host:       getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:       getEnvInt("QDRANT_PORT", 6334),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		VectorSize: uint64(embedder.DefaultDimensions(backend)), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
}

// buildEmbedder validates the embedding configuration and wraps the backend
// embedder with sequential per-item degradation and rate limiting.
func buildEmbedder(log *slog.Logger, m *metrics.Metrics) (rag.Embedder, error) {
	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	inner, err := embedder.NewFromEnv()
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Limit(getEnvInt("EMBEDDING_RPS", 10)), 1)
	dims := embedder.DefaultDimensions(embedder.ResolveBackend())
	return embedder.NewSequential(inner, dims, limiter, m, log), nil
}

// buildSearcher wires the embedder and index into a SemanticSearch. The
// returned index must be closed by the caller.
func buildSearcher(ctx context.Context, log *slog.Logger, m *metrics.Metrics) (*search.SemanticSearch, *rag.QdrantIndex, error) {
	emb, err := buildEmbedder(log, m)
	if err != nil {
		return nil, nil, err
	}
	idx, err := openIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := search.New(emb, idx, m, log)
	if err != nil {
		_ = idx.Close()
		return nil, nil, err
	}
	return s, idx, nil
}

// buildEngine wires the model provider, searcher, and optional history into
// a query engine. The returned index must be closed by the caller.
func buildEngine(ctx context.Context, log *slog.Logger, m *metrics.Metrics, history store.HistoryStore) (*engine.Engine, *rag.QdrantIndex, error) {
	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}

	s, idx, err := buildSearcher(ctx, log, m)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(&engine.Config{
		Search:           s,
		ChatModel:        chatModel,
		History:          history,
		Collection:       getEnvOrDefault("QDRANT_COLLECTION", defaultCollection),
		TopK:             getEnvInt("DEVRAG_TOP_K", 0),
		MaxContextLength: getEnvInt("DEVRAG_MAX_CONTEXT_LENGTH", 0),
		Temperature:      getEnvFloat32("MODEL_TEMPERATURE", provider.DefaultTemperature),
		MaxTokens:        getEnvInt("MODEL_MAX_TOKENS", provider.DefaultMaxTokens),
		Metrics:          m,
		Log:              log,
	})
	if err != nil {
		_ = idx.Close()
		return nil, nil, err
	}
	return eng, idx, nil
}

// openHistory opens the conversation history store. DEVRAG_HISTORY_DB
// overrides the default path (~/.devrag/history.db); set to "disabled" to
// turn persistence off. Failures degrade to a nil store with a warning so
// chat still works without history.
func openHistory(log *slog.Logger) (store.HistoryStore, func()) {
	dbPath := os.Getenv("DEVRAG_HISTORY_DB")
	if dbPath == "disabled" {
		log.Info("history: disabled via DEVRAG_HISTORY_DB=disabled")
		return nil, func() {}
	}
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
			return nil, func() {}
		}
	}

	hs, err := store.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store, disabling", slog.Any("error", err))
		return nil, func() {}
	}
	log.Info("history: store opened", slog.String("path", dbPath))
	return hs, func() { _ = hs.Close() }
}

// serveMetrics starts a Prometheus scrape endpoint on addr in the
// background. Listen failures are logged, not fatal — metrics are an
// observability extra, never a reason to abort the command.
func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics: listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics: listener failed", slog.Any("error", err))
		}
	}()
}

// tracingSetup initialises Langfuse tracing and logs whether it is active.
func tracingSetup(log *slog.Logger) (callbacks.Handler, func(), bool) {
	handler, flush, ok := tracing.Setup()
	if ok {
		log.Info("langfuse tracing enabled")
	} else {
		log.Debug("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
	}
	return handler, flush, ok
}

// answer runs one engine query, optionally restricted by language and/or
// repository. showContext echoes the assembled context in the response.
func answer(ctx context.Context, eng *engine.Engine, question, language, repo string, showContext bool) (*engine.Response, error) {
	filter := rag.Filter{}
	if language != "" {
		filter["analysis_language"] = metadata.String(language)
	}
	if repo != "" {
		filter["repo_name"] = metadata.String(repo)
	}
	if len(filter) == 0 {
		filter = nil
	}
	return eng.Query(ctx, question, filter, showContext)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment
// variable, or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
