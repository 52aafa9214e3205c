package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/connectors/filesystem"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

var (
	watchExisting bool
	watchPrune    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest PDFs as they appear in a folder",
	Long: `Watch a folder and ingest documents dropped into it.

New and modified files are submitted once they stop changing. A modified
file replaces its earlier chunks. With --prune, removing a file deletes its
document from the index. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchExisting, "existing", true, "ingest files already in the folder on start")
	watchCmd.Flags().BoolVar(&watchPrune, "prune", false, "delete documents whose files are removed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	ctx := commandContext(cmd)
	w := filesystem.New(filesystem.ResolvePath(args[0]), filesystem.WithFilter(allowFunc(s.Config)))
	defer w.Close()

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	if err := startWorker(cmd, s); err != nil {
		return err
	}

	if watchExisting {
		existing, err := w.Scan()
		if err != nil {
			return err
		}
		for _, path := range existing {
			handleChange(ctx, s.Pipeline, filesystem.Change{Type: filesystem.ChangeCreated, Path: path}, false)
		}
	}

	outf(cmd, "Watching %s (Ctrl+C to stop)\n", w.Root())
	for change := range changes {
		handleChange(ctx, s.Pipeline, change, watchPrune)
	}
	return nil
}

// handleChange applies one settled file change to the index.
// Failures are logged, never returned.
func handleChange(ctx context.Context, pipeline driving.PipelineService, change filesystem.Change, prune bool) {
	switch change.Type {
	case filesystem.ChangeCreated, filesystem.ChangeUpdated:
		res, err := submitPath(ctx, pipeline, change.Path)
		if err != nil {
			logger.Warn("watch: %s: %v", change.Path, err)
			return
		}
		logger.Info("watch: %s %s queued as %s", change.Type, res.Filename, res.FileID)

	case filesystem.ChangeDeleted:
		if !prune {
			return
		}
		n, err := pipeline.Delete(ctx, filesystem.FileID(change.Path))
		if err != nil {
			logger.Warn("watch: deleting %s: %v", change.Path, err)
			return
		}
		logger.Info("watch: removed %s (%s)", change.Path, pluralChunks(n))
	}
}

func pluralChunks(n int) string {
	if n == 1 {
		return "1 chunk"
	}
	return fmt.Sprintf("%d chunks", n)
}
