// Package commands defines all Cobra CLI commands for the devrag binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devrag/devrag-go/internal/audit"
	"github.com/devrag/devrag-go/internal/config"
	"github.com/devrag/devrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devrag",
		Short: "devrag — ask questions about your source code with RAG",
		Long: `devrag is a local-first retrieval-augmented assistant for developers.

It chunks and embeds source repositories into a Qdrant collection, then
answers natural language questions about the code by retrieving relevant
chunks and calling a chat-completion model.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.devrag/config.yaml).
See 'devrag --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env from the working directory if present; real env
			// vars are never overwritten.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.devrag/config.yaml)")

	root.AddCommand(
		NewIngestCmd(),
		NewSearchCmd(),
		NewAskCmd(),
		NewChatCmd(),
		NewStatsCmd(),
		NewVersionCmd(),
	)

	return root
}
