package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd constructs the `devrag stats` command, which prints
// knowledge-base statistics.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge-base statistics",
		Long: `Report the total vector count, vector dimension, and status of the
configured Qdrant collection.

Examples:
  devrag stats
  QDRANT_COLLECTION=payments devrag stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			idx, err := openIndex(ctx)
			if err != nil {
				return fmt.Errorf("stats: failed to connect to Qdrant: %w", err)
			}
			defer idx.Close()

			stats, err := idx.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			fmt.Printf("Collection: %s\n", stats.Collection)
			fmt.Printf("Vectors:    %d\n", stats.TotalVectors)
			fmt.Printf("Dimension:  %d\n", stats.Dimension)
			fmt.Printf("Status:     %s\n", stats.Status)
			return nil
		},
	}
}
