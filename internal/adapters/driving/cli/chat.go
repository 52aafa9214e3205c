package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/neuroquery/internal/adapters/driving/tui"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

var chatTopK int

// runProgram runs the chat program. Tests replace it to avoid a terminal.
var runProgram = func(app *tui.App) error { return app.Run() }

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long: `Launch an interactive chat over the ingested documents.

Answers stream in as they are produced. The status bar shows document,
chunk and queue counts, and the ingestion worker keeps running in the
background.

Controls:
  Enter     - Ask
  Esc       - Stop the current answer
  Tab       - Show or hide sources
  Ctrl+L    - Clear the transcript
  PgUp/PgDn - Scroll
  Ctrl+C    - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", domain.DefaultTopK, "number of sources per answer")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	s, err := requireServices(cmd)
	if err != nil {
		return err
	}
	if err := startWorker(cmd, s); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Pipeline: s.Pipeline})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(commandContext(cmd)).WithTopK(chatTopK)

	// Log lines would tear the alternate screen.
	logger.SetQuiet(true)
	defer logger.SetQuiet(false)

	if err := runProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
