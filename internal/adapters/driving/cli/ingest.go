package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/connectors/filesystem"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

var ingestWait bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|dir>...",
	Short: "Ingest PDF files into the index",
	Long: `Submit files for ingestion and wait for the queue to empty.

Directories contribute their top-level files with an allowed extension.
Arguments may be plain paths or file:// URIs. A file keeps the same id
across runs, so ingesting it again replaces its chunks.

With --wait, the final status of every document is printed and the command
fails if any document failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "print the final status of each document")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	paths, err := expandPaths(args, allowFunc(s.Config))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no files to ingest")
	}

	if err := startWorker(cmd, s); err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var submitted []*driving.SubmitResult
	failures := 0
	for _, path := range paths {
		res, err := submitPath(ctx, s.Pipeline, path)
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", path, err)
			failures++
			continue
		}
		outf(cmd, "Queued %s (%s)\n", res.Filename, res.FileID)
		submitted = append(submitted, res)
	}

	if err := s.Pipeline.Drain(ctx); err != nil {
		return fmt.Errorf("waiting for ingestion: %w", err)
	}

	if ingestWait {
		failures += reportStatuses(cmd, s.Pipeline, submitted)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(paths))
	}
	outf(cmd, "Ingested %d file(s)\n", len(submitted))
	return nil
}

// reportStatuses prints each document's terminal status and returns the failure count.
func reportStatuses(cmd *cobra.Command, pipeline driving.PipelineService, submitted []*driving.SubmitResult) int {
	failures := 0
	for _, res := range submitted {
		doc, err := pipeline.WaitForDocument(commandContext(cmd), res.FileID)
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", res.Filename, err)
			failures++
			continue
		}
		switch doc.Status {
		case domain.StatusProcessed:
			outf(cmd, "  %s: processed (%d pages, %d chunks)\n", doc.Filename, doc.PageCount, doc.ChunkCount)
		default:
			outf(cmd, "  %s: %s: %s\n", doc.Filename, doc.Status, doc.Error)
			failures++
		}
	}
	return failures
}

// submitPath submits a local file under its stable id.
func submitPath(ctx context.Context, pipeline driving.PipelineService, path string) (*driving.SubmitResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return pipeline.Submit(ctx, driving.Upload{
		FileID:   filesystem.FileID(path),
		Filename: filepath.Base(path),
		Reader:   f,
	})
}

// expandPaths resolves arguments to files, listing directories one level deep.
func expandPaths(args []string, accept func(name string) bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		path := filesystem.ResolvePath(arg)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, path)
			continue
		}
		found, err := filesystem.New(path, filesystem.WithFilter(accept)).Scan()
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

// allowFunc returns the extension filter of the configured upload settings.
func allowFunc(cfg *domain.Settings) func(name string) bool {
	uploads := domain.DefaultSettings("").Uploads
	if cfg != nil {
		uploads = cfg.Uploads
	}
	return uploads.AllowsExtension
}
