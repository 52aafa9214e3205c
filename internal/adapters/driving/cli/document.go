package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsJSON bool

const timeLayout = "2006-01-02 15:04:05"

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List ingested documents",
	Args:    cobra.NoArgs,
	RunE:    runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show <file_id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <file_id>",
	Short: "Delete a document and its chunks",
	Long: `Remove a document, every chunk indexed from it and its retained upload.

Deleting an unknown id succeeds and removes nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "print as JSON")
	documentsCmd.AddCommand(documentsShowCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	docs, err := s.Pipeline.Documents(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		outln(cmd, "No documents ingested.")
		return nil
	}

	for i := range docs {
		d := &docs[i]
		outf(cmd, "  %s  %-10s %s\n", d.FileID, d.Status, d.Filename)
		if d.Error != "" {
			outf(cmd, "      error: %s\n", d.Error)
		}
	}
	outln(cmd)
	outf(cmd, "Total: %d documents\n", len(docs))
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	doc, err := s.Pipeline.Document(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, doc)
	}

	outf(cmd, "Document: %s\n\n", doc.FileID)
	outf(cmd, "  Filename: %s\n", doc.Filename)
	outf(cmd, "  Status:   %s\n", doc.Status)
	if doc.Error != "" {
		outf(cmd, "  Error:    %s\n", doc.Error)
	}
	outf(cmd, "  Size:     %d bytes\n", doc.ByteSize)
	outf(cmd, "  Pages:    %d\n", doc.PageCount)
	outf(cmd, "  Chunks:   %d\n", doc.ChunkCount)
	outf(cmd, "  Created:  %s\n", doc.CreatedAt.Format(timeLayout))
	outf(cmd, "  Updated:  %s\n", doc.UpdatedAt.Format(timeLayout))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := requireServices(cmd)
	if err != nil {
		return err
	}

	n, err := s.Pipeline.Delete(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	outf(cmd, "Deleted %s (%d chunks)\n", args[0], n)
	return nil
}
