package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question about the ingested documents",
	Long: `Answer a question from the most similar document chunks.

On a terminal the answer is streamed as it is produced, followed by the
cited sources. When output is redirected, or with --json, the complete
result is printed as JSON.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", domain.DefaultTopK, "number of sources to retrieve")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	req := domain.QueryRequest{Text: strings.Join(args, " "), TopK: queryTopK}
	if queryJSON || !isTerminal(cmd.OutOrStdout()) {
		return queryBlocking(cmd, s, req)
	}
	return queryStreaming(cmd, s, req)
}

func queryBlocking(cmd *cobra.Command, s *Services, req domain.QueryRequest) error {
	result, err := s.Pipeline.Query(commandContext(cmd), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	return printJSON(cmd, result)
}

func queryStreaming(cmd *cobra.Command, s *Services, req domain.QueryRequest) error {
	out := cmd.OutOrStdout()
	for frame := range s.Pipeline.QueryStream(commandContext(cmd), req) {
		switch frame.Type {
		case domain.FrameAnswerChunk:
			fmt.Fprint(out, frame.Content)
		case domain.FrameSources:
			fmt.Fprintln(out)
			printSources(cmd, frame.Sources)
			return nil
		case domain.FrameError:
			return errors.New(frame.Message)
		}
	}
	// The stream closed without a terminal frame: the context was cancelled.
	return commandContext(cmd).Err()
}

func printSources(cmd *cobra.Command, sources []domain.RetrievedChunk) {
	if len(sources) == 0 {
		return
	}
	outln(cmd)
	outln(cmd, "Sources:")
	for i, src := range sources {
		location := src.Filename()
		if page := src.Page(); page > 0 {
			location = fmt.Sprintf("%s, page %d", location, page)
		}
		outf(cmd, "  [%d] %s (%.2f)\n", i+1, location, src.Score)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	outln(cmd, string(data))
	return nil
}
