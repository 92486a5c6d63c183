package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devrag/devrag-go/internal/ingestion"
	"github.com/devrag/devrag-go/internal/logging"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/source"
)

// NewIngestCmd constructs the `devrag ingest` command, which loads local
// files or directories, chunks and embeds them, and upserts the chunks into
// the vector index.
func NewIngestCmd() *cobra.Command {
	var repoName string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "ingest [path...]",
		Short: "Index local source files into the knowledge base",
		Long: `Chunk, embed, and index local source files into the Qdrant collection.

Each path may be a file or a directory; directories are walked recursively
and only recognized text/code file types are loaded.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: devrag-code)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider overrides (MODEL, API_KEY, ENDPOINT, DIMENSIONS, RPS)

Examples:
  devrag ingest ./src
  devrag ingest --repo payments ./services/payments
  devrag ingest --metrics-addr :9102 ./big-monorepo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			if metricsAddr != "" {
				serveMetrics(metricsAddr, reg, log)
			}

			emb, err := buildEmbedder(log, m)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			idx, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("ingest: failed to connect to Qdrant: %w", err)
			}
			defer idx.Close()

			chunkCfg := &ingestion.Config{
				ChunkSize:    getEnvInt("DEVRAG_CHUNK_SIZE", 0),
				ChunkOverlap: getEnvInt("DEVRAG_CHUNK_OVERLAP", 0),
			}
			pipeline, err := ingestion.NewPipeline(emb, idx, chunkCfg, m, log)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			var docs []source.Document
			for _, path := range args {
				repo := repoName
				if repo == "" {
					repo = repoLabel(path)
				}

				loaded, err := loadPath(path, repo, log)
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				docs = append(docs, loaded...)
			}
			if len(docs) == 0 {
				return fmt.Errorf("ingest: no ingestible files found under %v", args)
			}

			log.Info("starting ingestion", slog.Int("files", len(docs)))

			res, err := pipeline.Ingest(ctx, docs, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			log.Info("ingestion complete",
				slog.Int("files_processed", res.FilesProcessed),
				slog.Int("files_failed", res.FilesFailed),
				slog.Int("chunks_ingested", res.ChunksIngested),
			)
			fmt.Printf("Indexed %d files (%d chunks, %d failed)\n",
				res.FilesProcessed, res.ChunksIngested, res.FilesFailed)
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoName, "repo", "r", "", "Repository label for indexed files (default: path basename)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during ingestion (e.g. :9102)")

	return cmd
}

// loadPath loads a single file or a directory tree.
func loadPath(path, repo string, log *slog.Logger) ([]source.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if !info.IsDir() {
		doc, err := source.LoadFile(path, repo)
		if err != nil {
			return nil, err
		}
		return []source.Document{doc}, nil
	}

	return source.LoadDir(path, repo, func(skipped string, err error) {
		log.Warn("ingest: skipping file", slog.String("path", skipped), slog.Any("error", err))
	})
}

// repoLabel derives a repository label from a path.
func repoLabel(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.Base(abs)
}
