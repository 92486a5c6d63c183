package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devrag/devrag-go/internal/logging"
	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/metrics"
	"github.com/devrag/devrag-go/internal/rag"
)

// NewSearchCmd constructs the `devrag search` command, which runs a raw
// semantic search against the index without calling the chat model.
func NewSearchCmd() *cobra.Command {
	var topK int
	var repo string
	var language string
	var extension string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base without generating an answer",
		Long: `Embed the query and list the most similar indexed chunks.

Useful for inspecting what the ask/chat commands would retrieve, and for
debugging ingestion quality.

Examples:
  devrag search "connection pooling"
  devrag search --repo payments "retry logic"
  devrag search --language go --top-k 10 "context cancellation"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			m := metrics.New(prometheus.NewRegistry())
			s, idx, err := buildSearcher(ctx, log, m)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer idx.Close()

			filter := rag.Filter{}
			if repo != "" {
				filter["repo_name"] = metadata.String(repo)
			}
			if language != "" {
				filter["analysis_language"] = metadata.String(language)
			}
			if extension != "" {
				if extension[0] != '.' {
					extension = "." + extension
				}
				filter["file_extension"] = metadata.String(extension)
			}
			if len(filter) == 0 {
				filter = nil
			}

			// SearchE, not Search: a CLI invocation should report backend
			// failures instead of printing zero results.
			results, err := s.SearchE(ctx, args[0], topK, filter)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}

			for i, res := range results {
				fmt.Printf("%d. %s/%s (relevance %.3f)\n",
					i+1,
					res.Metadata.GetString("repo_name"),
					res.Metadata.GetString("filename"),
					res.Score,
				)
				fmt.Printf("   %s\n\n", snippet(res.Content, 160))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results to return (default: 5)")
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "Restrict results to one repository")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Restrict results to one programming language")
	cmd.Flags().StringVarP(&extension, "ext", "e", "", "Restrict results to one file extension")

	return cmd
}

// snippet returns the first n characters of s on a single line.
func snippet(s string, n int) string {
	flat := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\t' {
			flat = append(flat, ' ')
			continue
		}
		flat = append(flat, s[i])
	}
	if len(flat) > n {
		return string(flat[:n]) + "..."
	}
	return string(flat)
}
