package commands

import (
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devrag/devrag-go/internal/logging"
	"github.com/devrag/devrag-go/internal/metrics"
)

// NewAskCmd constructs the `devrag ask` command, which answers a single
// question and exits.
func NewAskCmd() *cobra.Command {
	var language string
	var repo string
	var showContext bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question about the indexed code",
		Long: `Retrieve relevant chunks for the question, assemble a context, and
generate an answer with the configured chat model.

Examples:
  devrag ask "how does the payment retry logic work?"
  devrag ask --language go "where are database connections opened?"
  devrag ask --repo payments "how are refunds issued?"
  devrag ask --show-context "what does the scheduler do?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if handler, flush, ok := tracingSetup(log); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			m := metrics.New(prometheus.NewRegistry())
			eng, idx, err := buildEngine(ctx, log, m, nil)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer idx.Close()

			question := args[0]
			resp, err := answer(ctx, eng, question, language, repo, showContext)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(resp.Answer)
			if resp.TokensUsed != nil {
				fmt.Printf("\n(%d tokens)\n", *resp.TokensUsed)
			}
			if len(resp.Sources) > 0 {
				fmt.Println("\nSources:")
				for i, src := range resp.Sources {
					fmt.Printf("  %d. %s/%s (relevance %.3f)\n",
						i+1,
						src.Metadata.GetString("repo_name"),
						src.Metadata.GetString("filename"),
						src.Score,
					)
				}
			}
			if showContext && resp.ContextUsed != "" {
				fmt.Println("\nContext used:")
				fmt.Println(resp.ContextUsed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Restrict retrieval to one programming language")
	cmd.Flags().StringVarP(&repo, "repo", "r", "", "Restrict retrieval to one repository")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "Print the assembled context after the answer")

	return cmd
}
