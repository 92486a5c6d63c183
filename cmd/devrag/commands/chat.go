package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devrag/devrag-go/internal/logging"
	"github.com/devrag/devrag-go/internal/metrics"
)

// NewChatCmd constructs the `devrag chat` command, which starts an
// interactive question-answering session with conversation memory.
func NewChatCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session over the knowledge base",
		Long: `Start a read-eval-print loop that answers questions about the indexed
code. Recent exchanges are replayed into each prompt so follow-up questions
work, and persisted to the history database across sessions.

Session commands:
  context      show the context used for the previous answer
  stats        show knowledge-base statistics
  quit|exit|q  leave the session

Examples:
  devrag chat
  devrag chat --metrics-addr :9102
  DEVRAG_HISTORY_DB=disabled devrag chat`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if handler, flush, ok := tracingSetup(log); ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
			}

			reg := prometheus.NewRegistry()
			m := metrics.New(reg)
			if metricsAddr != "" {
				serveMetrics(metricsAddr, reg, log)
			}

			history, closeHistory := openHistory(log)
			defer closeHistory()

			eng, idx, err := buildEngine(ctx, log, m, history)
			if err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			defer idx.Close()

			return eng.InteractiveSession(ctx, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the session (e.g. :9102)")

	return cmd
}
