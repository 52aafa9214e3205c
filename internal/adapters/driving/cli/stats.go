package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and queue counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	stats, err := s.Pipeline.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		return printJSON(cmd, stats)
	}

	outf(cmd, "Documents:  %d\n", stats.DocumentCount)
	outf(cmd, "Chunks:     %d\n", stats.ChunkCount)
	outf(cmd, "Queue:      %d\n", stats.QueueDepth)
	outf(cmd, "Processing: %t\n", stats.IsProcessing)
	if cfg := s.Config; cfg != nil {
		outln(cmd)
		outf(cmd, "Vector store: %s (%s)\n", cfg.VectorStore.Backend, cfg.VectorStore.Collection)
		outf(cmd, "Embeddings:   %s/%s, %d dimensions\n",
			cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		outf(cmd, "Chunking:     %s, size %d, overlap %d\n",
			cfg.Chunking.Strategy, cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	return nil
}
